package staking

import (
	"math/big"
	"time"

	"stakehub/core/events"
	coretypes "stakehub/core/types"
	"stakehub/native/common"
	"stakehub/native/token"
	"stakehub/observability/metrics"
)

const moduleName = "staking"

// Tx is a single all-or-nothing unit of work over the staking store. Every
// mutating engine operation runs against exactly one Tx and either commits it
// or discards it as a whole; no partial state is ever observable.
type Tx interface {
	OperatorGet(addr [20]byte) (*Operator, bool, error)
	OperatorPut(op *Operator) error
	ApplicationGet(addr [20]byte) (*Application, bool, error)
	ApplicationPut(app *Application) error
	ParamsGet() (Params, bool, error)
	ParamsPut(Params) error
	// QueueBounds returns the index of the next unprocessed entry and the
	// index the next append will take.
	QueueBounds() (head, tail uint64, err error)
	QueueAppend(ev *SlashingEvent) error
	QueueEntry(index uint64) (*SlashingEvent, bool, error)
	QueueSetHead(head uint64) error
	TreasuryBalance() (*big.Int, error)
	TreasurySet(balance *big.Int) error

	AccountGet(addr [20]byte) (*coretypes.Account, error)
	AccountPut(addr [20]byte, account *coretypes.Account) error

	Commit() error
	Discard()
}

// State opens atomic units against the backing staking store.
type State interface {
	Begin() (Tx, error)
}

type stakingEvent struct {
	evt *coretypes.Event
}

func (e stakingEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e stakingEvent) Event() *coretypes.Event { return e.evt }

type payloadEvent interface {
	events.Event
	Event() *coretypes.Event
}

// Engine wires the staking ledger business logic with external state, the
// legacy mirrors, the conversion oracle and the application callbacks.
type Engine struct {
	state      State
	emitter    events.Emitter
	mirrorA    LegacyMirror
	mirrorB    LegacyMirror
	oracleA    ConversionOracle
	oracleB    ConversionOracle
	hooks      HookRegistry
	pauses     common.PauseView
	governance [20]byte
	moduleAddr [20]byte
	nowFn      func() int64
	telemetry  *metrics.StakingMetrics
}

// NewEngine creates a staking engine with a no-op emitter. Callers wire the
// collaborators via the Set* methods before use.
func NewEngine() *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
		telemetry: metrics.Staking(),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetLegacyMirrorA wires the legacy-A mirror and its conversion oracle.
func (e *Engine) SetLegacyMirrorA(mirror LegacyMirror, oracle ConversionOracle) {
	e.mirrorA = mirror
	e.oracleA = oracle
}

// SetLegacyMirrorB wires the legacy-B mirror and its conversion oracle.
func (e *Engine) SetLegacyMirrorB(mirror LegacyMirror, oracle ConversionOracle) {
	e.mirrorB = mirror
	e.oracleB = oracle
}

// SetHooks configures the application callback registry.
func (e *Engine) SetHooks(hooks HookRegistry) { e.hooks = hooks }

// SetPauses wires the governance pause view consulted before every mutation.
func (e *Engine) SetPauses(pauses common.PauseView) { e.pauses = pauses }

// SetGovernance configures the address allowed to use the admin surface.
func (e *Engine) SetGovernance(addr [20]byte) { e.governance = addr }

// SetModuleAddress configures the account escrowing native stake and the
// notifier treasury.
func (e *Engine) SetModuleAddress(addr [20]byte) { e.moduleAddr = addr }

// emitAll broadcasts the buffered payloads of a committed unit. Events are
// never emitted for discarded units.
func (e *Engine) emitAll(payloads []payloadEvent) {
	if e == nil || e.emitter == nil {
		return
	}
	for _, payload := range payloads {
		if payload == nil {
			continue
		}
		e.emitter.Emit(stakingEvent{evt: payload.Event()})
	}
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) begin() (Tx, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	return e.state.Begin()
}

// view runs fn against a read-only unit that is always discarded.
func (e *Engine) view(fn func(Tx) error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	tx, err := e.state.Begin()
	if err != nil {
		return err
	}
	defer tx.Discard()
	return fn(tx)
}

func (e *Engine) token(tx Tx) *token.Ledger {
	return token.NewLedger(tx)
}

func (e *Engine) params(tx Tx) (Params, error) {
	params, ok, err := tx.ParamsGet()
	if err != nil {
		return Params{}, err
	}
	if !ok {
		return DefaultParams(), nil
	}
	return params.normalized(), nil
}

func (e *Engine) hook(app [20]byte) (AuthorizationHook, bool) {
	if e == nil || e.hooks == nil {
		return nil, false
	}
	return e.hooks.Hook(app)
}

// loadOperator fetches a claimed operator record or fails.
func (e *Engine) loadOperator(tx Tx, addr [20]byte) (*Operator, error) {
	op, ok, err := tx.OperatorGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok || !op.Claimed() {
		return nil, ErrOperatorNotFound
	}
	return op, nil
}

// loadApprovedApplication fetches an application that is approved and not
// disabled.
func (e *Engine) loadApprovedApplication(tx Tx, addr [20]byte) (*Application, error) {
	app, ok, err := tx.ApplicationGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok || !app.Approved {
		return nil, ErrApplicationNotApproved
	}
	if app.Disabled {
		return nil, ErrApplicationDisabled
	}
	return app, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func minBigInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func requirePositive(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return new(big.Int).Set(amount), nil
}
