package staking

import (
	"math/big"
	"testing"

	"stakehub/core/events"
	coretypes "stakehub/core/types"
)

// memState is an in-memory State implementation with all-or-nothing commit
// semantics: Begin clones the whole store and Commit swaps the clone back in.
type memState struct {
	operators map[[20]byte]*Operator
	apps      map[[20]byte]*Application
	params    *Params
	queue     []*SlashingEvent
	head      uint64
	treasury  *big.Int
	accounts  map[[20]byte]*coretypes.Account
}

func newMemState() *memState {
	return &memState{
		operators: make(map[[20]byte]*Operator),
		apps:      make(map[[20]byte]*Application),
		treasury:  big.NewInt(0),
		accounts:  make(map[[20]byte]*coretypes.Account),
	}
}

func (s *memState) clone() *memState {
	out := newMemState()
	for addr, op := range s.operators {
		out.operators[addr] = copyOperator(op)
	}
	for addr, app := range s.apps {
		copied := *app
		out.apps[addr] = &copied
	}
	if s.params != nil {
		copied := *s.params
		out.params = &copied
	}
	for _, ev := range s.queue {
		out.queue = append(out.queue, &SlashingEvent{Operator: ev.Operator, Amount: cloneBigInt(ev.Amount)})
	}
	out.head = s.head
	out.treasury = cloneBigInt(s.treasury)
	for addr, acc := range s.accounts {
		copied := coretypes.Account{Balance: cloneBigInt(acc.Balance)}
		if acc.Allowances != nil {
			copied.Allowances = make(map[string]*big.Int, len(acc.Allowances))
			for k, v := range acc.Allowances {
				copied.Allowances[k] = cloneBigInt(v)
			}
		}
		out.accounts[addr] = &copied
	}
	return out
}

func (s *memState) Begin() (Tx, error) {
	return &memTx{parent: s, work: s.clone()}, nil
}

type memTx struct {
	parent *memState
	work   *memState
}

func (t *memTx) OperatorGet(addr [20]byte) (*Operator, bool, error) {
	op, ok := t.work.operators[addr]
	return op, ok, nil
}

func (t *memTx) OperatorPut(op *Operator) error {
	t.work.operators[op.Address] = op
	return nil
}

func (t *memTx) ApplicationGet(addr [20]byte) (*Application, bool, error) {
	app, ok := t.work.apps[addr]
	return app, ok, nil
}

func (t *memTx) ApplicationPut(app *Application) error {
	t.work.apps[app.Address] = app
	return nil
}

func (t *memTx) ParamsGet() (Params, bool, error) {
	if t.work.params == nil {
		return Params{}, false, nil
	}
	return *t.work.params, true, nil
}

func (t *memTx) ParamsPut(p Params) error {
	t.work.params = &p
	return nil
}

func (t *memTx) QueueBounds() (uint64, uint64, error) {
	return t.work.head, uint64(len(t.work.queue)), nil
}

func (t *memTx) QueueAppend(ev *SlashingEvent) error {
	t.work.queue = append(t.work.queue, ev)
	return nil
}

func (t *memTx) QueueEntry(index uint64) (*SlashingEvent, bool, error) {
	if index >= uint64(len(t.work.queue)) {
		return nil, false, nil
	}
	return t.work.queue[index], true, nil
}

func (t *memTx) QueueSetHead(head uint64) error {
	t.work.head = head
	return nil
}

func (t *memTx) TreasuryBalance() (*big.Int, error) {
	return cloneBigInt(t.work.treasury), nil
}

func (t *memTx) TreasurySet(balance *big.Int) error {
	t.work.treasury = cloneBigInt(balance)
	return nil
}

func (t *memTx) AccountGet(addr [20]byte) (*coretypes.Account, error) {
	if acc, ok := t.work.accounts[addr]; ok {
		return acc, nil
	}
	return &coretypes.Account{Balance: big.NewInt(0)}, nil
}

func (t *memTx) AccountPut(addr [20]byte, account *coretypes.Account) error {
	t.work.accounts[addr] = account
	return nil
}

func (t *memTx) Commit() error {
	*t.parent = *t.work
	return nil
}

func (t *memTx) Discard() {}

type recordingEmitter struct {
	emitted []events.Event
}

func (r *recordingEmitter) Emit(ev events.Event) {
	r.emitted = append(r.emitted, ev)
}

func (r *recordingEmitter) types() []string {
	out := make([]string, 0, len(r.emitted))
	for _, ev := range r.emitted {
		out = append(out, ev.EventType())
	}
	return out
}

type seizure struct {
	amount     *big.Int
	multiplier uint64
	notifier   [20]byte
	operators  [][20]byte
}

// mirrorStub is a programmable LegacyMirror.
type mirrorStub struct {
	delegations   map[[20]byte]DelegationInfo
	owners        map[[20]byte][20]byte
	authorizers   map[[20]byte][20]byte
	beneficiaries map[[20]byte][20]byte
	seized        []seizure
	seizeErr      error
}

func newMirrorStub() *mirrorStub {
	return &mirrorStub{
		delegations:   make(map[[20]byte]DelegationInfo),
		owners:        make(map[[20]byte][20]byte),
		authorizers:   make(map[[20]byte][20]byte),
		beneficiaries: make(map[[20]byte][20]byte),
	}
}

func (m *mirrorStub) delegate(operator [20]byte, amount int64) {
	m.delegations[operator] = DelegationInfo{Amount: big.NewInt(amount), CreatedAt: 1}
}

func (m *mirrorStub) DelegationInfo(operator [20]byte) (DelegationInfo, error) {
	return m.delegations[operator], nil
}

func (m *mirrorStub) OwnerOf(operator [20]byte) ([20]byte, error) {
	return m.owners[operator], nil
}

func (m *mirrorStub) AuthorizerOf(operator [20]byte) ([20]byte, error) {
	return m.authorizers[operator], nil
}

func (m *mirrorStub) BeneficiaryOf(operator [20]byte) ([20]byte, error) {
	return m.beneficiaries[operator], nil
}

func (m *mirrorStub) Seize(amount *big.Int, rewardMultiplier uint64, notifier [20]byte, operators [][20]byte) error {
	if m.seizeErr != nil {
		return m.seizeErr
	}
	m.seized = append(m.seized, seizure{
		amount:     cloneBigInt(amount),
		multiplier: rewardMultiplier,
		notifier:   notifier,
		operators:  operators,
	})
	// Mimic the real mirror: seizing shrinks the live delegation.
	for _, op := range operators {
		info := m.delegations[op]
		if info.Amount == nil {
			continue
		}
		info.Amount = new(big.Int).Sub(info.Amount, amount)
		if info.Amount.Sign() < 0 {
			info.Amount = big.NewInt(0)
		}
		m.delegations[op] = info
	}
	return nil
}

// ratioOracle converts at a fixed integer rate of native units per legacy
// unit.
type ratioOracle struct {
	rate int64
}

func (o ratioOracle) ToNative(legacyAmount *big.Int) (*big.Int, *big.Int, error) {
	if legacyAmount == nil {
		return big.NewInt(0), big.NewInt(0), nil
	}
	return new(big.Int).Mul(legacyAmount, big.NewInt(o.rate)), big.NewInt(0), nil
}

func (o ratioOracle) FromNative(nativeAmount *big.Int) (*big.Int, *big.Int, error) {
	if nativeAmount == nil {
		return big.NewInt(0), big.NewInt(0), nil
	}
	rate := big.NewInt(o.rate)
	legacy := new(big.Int).Quo(nativeAmount, rate)
	remainder := new(big.Int).Mod(nativeAmount, rate)
	return legacy, remainder, nil
}

type hookCall struct {
	operator [20]byte
	amount   *big.Int
}

// hookStub records application callbacks and optionally rejects them.
type hookStub struct {
	increased       []hookCall
	decreaseReq     []hookCall
	involuntary     []hookCall
	failIncrease    error
	failDecrease    error
	failInvoluntary error
}

func (h *hookStub) AuthorizationIncreased(operator [20]byte, amount *big.Int) error {
	if h.failIncrease != nil {
		return h.failIncrease
	}
	h.increased = append(h.increased, hookCall{operator: operator, amount: cloneBigInt(amount)})
	return nil
}

func (h *hookStub) AuthorizationDecreaseRequested(operator [20]byte, amount *big.Int) error {
	if h.failDecrease != nil {
		return h.failDecrease
	}
	h.decreaseReq = append(h.decreaseReq, hookCall{operator: operator, amount: cloneBigInt(amount)})
	return nil
}

func (h *hookStub) InvoluntaryAuthorizationDecrease(operator [20]byte, amount *big.Int) error {
	if h.failInvoluntary != nil {
		return h.failInvoluntary
	}
	h.involuntary = append(h.involuntary, hookCall{operator: operator, amount: cloneBigInt(amount)})
	return nil
}

func testAddr(b byte) [20]byte {
	var a [20]byte
	a[0] = b
	return a
}

var (
	moduleAccount = testAddr(0xFF)
	govAccount    = testAddr(0xEE)
)

const testNow = int64(1_700_000_000)

func newTestEngine(t *testing.T) (*Engine, *memState, *recordingEmitter) {
	t.Helper()
	state := newMemState()
	emitter := &recordingEmitter{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetEmitter(emitter)
	engine.SetGovernance(govAccount)
	engine.SetModuleAddress(moduleAccount)
	engine.SetNowFunc(func() int64 { return testNow })
	return engine, state, emitter
}

func fund(state *memState, addr [20]byte, amount int64) {
	state.accounts[addr] = &coretypes.Account{Balance: big.NewInt(amount)}
}

func balanceOf(t *testing.T, state *memState, addr [20]byte) *big.Int {
	t.Helper()
	acc, ok := state.accounts[addr]
	if !ok || acc.Balance == nil {
		return big.NewInt(0)
	}
	return acc.Balance
}

func approveApp(state *memState, app [20]byte) {
	state.apps[app] = &Application{Address: app, Approved: true}
}

func seedOperator(state *memState, op *Operator) {
	if op.NativeStake == nil {
		op.NativeStake = big.NewInt(0)
	}
	if op.LegacyAStake == nil {
		op.LegacyAStake = big.NewInt(0)
	}
	if op.LegacyBStake == nil {
		op.LegacyBStake = big.NewInt(0)
	}
	state.operators[op.Address] = op
}

func requireBig(t *testing.T, got *big.Int, want int64, label string) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s: got nil, want %d", label, want)
	}
	if got.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("%s: got %s, want %d", label, got, want)
	}
}
