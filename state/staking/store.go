// Package staking persists the staking ledger over a generic key-value
// database and exposes buffered all-or-nothing transactions to the engine.
package staking

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	coretypes "stakehub/core/types"
	"stakehub/native/staking"
	"stakehub/storage"
)

const (
	operatorPrefix    = "staking/operator/"
	applicationPrefix = "staking/application/"
	accountPrefix     = "staking/account/"
	queueEntryPrefix  = "staking/queue/entry/"
	paramsKey         = "staking/params"
	queueHeadKey      = "staking/queue/head"
	queueTailKey      = "staking/queue/tail"
	treasuryKey       = "staking/treasury"
)

// Store implements the engine's State interface on top of a storage.Database.
// A mutex serialises transactions; the ledger mutates sequentially.
type Store struct {
	mu sync.Mutex
	db storage.Database
}

// NewStore wraps the database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// Begin opens a buffered transaction. Writes are staged in memory and only
// reach the database on Commit; Discard drops them.
func (s *Store) Begin() (staking.Tx, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("staking store: database not configured")
	}
	s.mu.Lock()
	return &storeTx{store: s, writes: make(map[string][]byte)}, nil
}

func operatorKey(addr [20]byte) string {
	return operatorPrefix + hex.EncodeToString(addr[:])
}

func applicationKey(addr [20]byte) string {
	return applicationPrefix + hex.EncodeToString(addr[:])
}

func accountKey(addr [20]byte) string {
	return accountPrefix + hex.EncodeToString(addr[:])
}

func queueEntryKey(index uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], index)
	return queueEntryPrefix + hex.EncodeToString(buf[:])
}

// storeTx buffers writes until Commit. Reads see the buffered writes first and
// fall back to the database.
type storeTx struct {
	store    *Store
	writes   map[string][]byte
	finished bool
}

func (t *storeTx) get(key string) ([]byte, bool, error) {
	if raw, ok := t.writes[key]; ok {
		return raw, true, nil
	}
	ok, err := t.store.db.Has([]byte(key))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	raw, err := t.store.db.Get([]byte(key))
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (t *storeTx) putJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("staking store: encode %s: %w", key, err)
	}
	t.writes[key] = raw
	return nil
}

func (t *storeTx) getJSON(key string, v interface{}) (bool, error) {
	raw, ok, err := t.get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("staking store: decode %s: %w", key, err)
	}
	return true, nil
}

func (t *storeTx) getUint(key string) (uint64, error) {
	raw, ok, err := t.get(key)
	if err != nil || !ok {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("staking store: malformed counter %s", key)
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (t *storeTx) putUint(key string, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	t.writes[key] = buf[:]
}

// OperatorGet implements staking.Tx.
func (t *storeTx) OperatorGet(addr [20]byte) (*staking.Operator, bool, error) {
	op := &staking.Operator{}
	ok, err := t.getJSON(operatorKey(addr), op)
	if err != nil || !ok {
		return nil, false, err
	}
	return op, true, nil
}

// OperatorPut implements staking.Tx.
func (t *storeTx) OperatorPut(op *staking.Operator) error {
	if op == nil {
		return fmt.Errorf("staking store: nil operator")
	}
	return t.putJSON(operatorKey(op.Address), op)
}

// ApplicationGet implements staking.Tx.
func (t *storeTx) ApplicationGet(addr [20]byte) (*staking.Application, bool, error) {
	app := &staking.Application{}
	ok, err := t.getJSON(applicationKey(addr), app)
	if err != nil || !ok {
		return nil, false, err
	}
	return app, true, nil
}

// ApplicationPut implements staking.Tx.
func (t *storeTx) ApplicationPut(app *staking.Application) error {
	if app == nil {
		return fmt.Errorf("staking store: nil application")
	}
	return t.putJSON(applicationKey(app.Address), app)
}

// ParamsGet implements staking.Tx.
func (t *storeTx) ParamsGet() (staking.Params, bool, error) {
	params := staking.Params{}
	ok, err := t.getJSON(paramsKey, &params)
	if err != nil || !ok {
		return staking.Params{}, false, err
	}
	return params, true, nil
}

// ParamsPut implements staking.Tx.
func (t *storeTx) ParamsPut(params staking.Params) error {
	return t.putJSON(paramsKey, params)
}

// QueueBounds implements staking.Tx.
func (t *storeTx) QueueBounds() (uint64, uint64, error) {
	head, err := t.getUint(queueHeadKey)
	if err != nil {
		return 0, 0, err
	}
	tail, err := t.getUint(queueTailKey)
	if err != nil {
		return 0, 0, err
	}
	return head, tail, nil
}

// QueueAppend implements staking.Tx.
func (t *storeTx) QueueAppend(ev *staking.SlashingEvent) error {
	if ev == nil {
		return fmt.Errorf("staking store: nil queue entry")
	}
	tail, err := t.getUint(queueTailKey)
	if err != nil {
		return err
	}
	if err := t.putJSON(queueEntryKey(tail), ev); err != nil {
		return err
	}
	t.putUint(queueTailKey, tail+1)
	return nil
}

// QueueEntry implements staking.Tx.
func (t *storeTx) QueueEntry(index uint64) (*staking.SlashingEvent, bool, error) {
	ev := &staking.SlashingEvent{}
	ok, err := t.getJSON(queueEntryKey(index), ev)
	if err != nil || !ok {
		return nil, false, err
	}
	return ev, true, nil
}

// QueueSetHead implements staking.Tx.
func (t *storeTx) QueueSetHead(head uint64) error {
	t.putUint(queueHeadKey, head)
	return nil
}

// TreasuryBalance implements staking.Tx.
func (t *storeTx) TreasuryBalance() (*big.Int, error) {
	raw, ok, err := t.get(treasuryKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(raw), nil
}

// TreasurySet implements staking.Tx.
func (t *storeTx) TreasurySet(balance *big.Int) error {
	if balance == nil || balance.Sign() < 0 {
		return fmt.Errorf("staking store: invalid treasury balance")
	}
	t.writes[treasuryKey] = balance.Bytes()
	return nil
}

// AccountGet implements staking.Tx. Unknown addresses yield a zero-valued
// account.
func (t *storeTx) AccountGet(addr [20]byte) (*coretypes.Account, error) {
	acc := &coretypes.Account{}
	ok, err := t.getJSON(accountKey(addr), acc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &coretypes.Account{Balance: big.NewInt(0)}, nil
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc, nil
}

// AccountPut implements staking.Tx.
func (t *storeTx) AccountPut(addr [20]byte, account *coretypes.Account) error {
	if account == nil {
		return fmt.Errorf("staking store: nil account")
	}
	return t.putJSON(accountKey(addr), account)
}

// Commit flushes the buffered writes to the database and releases the store.
func (t *storeTx) Commit() error {
	if t.finished {
		return fmt.Errorf("staking store: transaction already finished")
	}
	for key, raw := range t.writes {
		if err := t.store.db.Put([]byte(key), raw); err != nil {
			t.finished = true
			t.store.mu.Unlock()
			return fmt.Errorf("staking store: flush %s: %w", key, err)
		}
	}
	t.finished = true
	t.store.mu.Unlock()
	return nil
}

// Discard drops the buffered writes. Safe to call after Commit.
func (t *storeTx) Discard() {
	if t.finished {
		return
	}
	t.finished = true
	t.store.mu.Unlock()
}
