package staking

import (
	"math/big"
	"testing"

	coretypes "stakehub/core/types"
	native "stakehub/native/staking"
	"stakehub/storage"
)

func testAddr(b byte) [20]byte {
	var a [20]byte
	a[0] = b
	return a
}

func TestStoreOperatorRoundTrip(t *testing.T) {
	store := NewStore(storage.NewMemDB())
	operator := testAddr(1)

	tx, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, ok, err := tx.OperatorGet(operator); err != nil || ok {
		t.Fatalf("unexpected operator: ok=%v err=%v", ok, err)
	}
	op := &native.Operator{
		Address:     operator,
		Owner:       testAddr(2),
		NativeStake: big.NewInt(500),
		StakedAt:    42,
		Authorizations: []native.AppAuthorization{
			{Application: testAddr(9), Authorized: big.NewInt(300), Deauthorizing: big.NewInt(10)},
		},
	}
	if err := tx.OperatorPut(op); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Reads inside the transaction see the buffered write.
	buffered, ok, err := tx.OperatorGet(operator)
	if err != nil || !ok {
		t.Fatalf("read-through: ok=%v err=%v", ok, err)
	}
	if buffered.NativeStake.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("buffered stake = %s", buffered.NativeStake)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx2.Discard()
	stored, ok, err := tx2.OperatorGet(operator)
	if err != nil || !ok {
		t.Fatalf("reload: ok=%v err=%v", ok, err)
	}
	if stored.Owner != testAddr(2) || stored.StakedAt != 42 {
		t.Fatalf("stored = %+v", stored)
	}
	if len(stored.Authorizations) != 1 || stored.Authorizations[0].Authorized.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("authorizations = %+v", stored.Authorizations)
	}
}

func TestStoreDiscardDropsWrites(t *testing.T) {
	store := NewStore(storage.NewMemDB())
	operator := testAddr(1)

	tx, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.OperatorPut(&native.Operator{Address: operator, Owner: testAddr(2)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := tx.TreasurySet(big.NewInt(77)); err != nil {
		t.Fatalf("treasury: %v", err)
	}
	tx.Discard()

	tx2, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx2.Discard()
	if _, ok, err := tx2.OperatorGet(operator); err != nil || ok {
		t.Fatalf("discarded write leaked: ok=%v err=%v", ok, err)
	}
	treasury, err := tx2.TreasuryBalance()
	if err != nil {
		t.Fatalf("treasury: %v", err)
	}
	if treasury.Sign() != 0 {
		t.Fatalf("treasury = %s", treasury)
	}
}

func TestStoreQueueFIFO(t *testing.T) {
	store := NewStore(storage.NewMemDB())

	tx, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	head, tail, err := tx.QueueBounds()
	if err != nil || head != 0 || tail != 0 {
		t.Fatalf("fresh bounds = %d/%d err=%v", head, tail, err)
	}
	for i := int64(1); i <= 3; i++ {
		if err := tx.QueueAppend(&native.SlashingEvent{Operator: testAddr(byte(i)), Amount: big.NewInt(i * 10)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	head, tail, err = tx2.QueueBounds()
	if err != nil || head != 0 || tail != 3 {
		t.Fatalf("bounds = %d/%d err=%v", head, tail, err)
	}
	entry, ok, err := tx2.QueueEntry(1)
	if err != nil || !ok {
		t.Fatalf("entry: ok=%v err=%v", ok, err)
	}
	if entry.Operator != testAddr(2) || entry.Amount.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("entry = %+v", entry)
	}
	if _, ok, _ := tx2.QueueEntry(3); ok {
		t.Fatalf("entry past tail must not exist")
	}
	if err := tx2.QueueSetHead(2); err != nil {
		t.Fatalf("set head: %v", err)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx3, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx3.Discard()
	head, tail, err = tx3.QueueBounds()
	if err != nil || head != 2 || tail != 3 {
		t.Fatalf("bounds after drain = %d/%d err=%v", head, tail, err)
	}
}

func TestStoreAccountsDefaultToZero(t *testing.T) {
	store := NewStore(storage.NewMemDB())
	addr := testAddr(5)

	tx, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	acc, err := tx.AccountGet(addr)
	if err != nil {
		t.Fatalf("account get: %v", err)
	}
	if acc.Balance.Sign() != 0 {
		t.Fatalf("fresh balance = %s", acc.Balance)
	}
	acc.Balance = big.NewInt(1234)
	acc.Allowances = map[string]*big.Int{"aa": big.NewInt(9)}
	if err := tx.AccountPut(addr, acc); err != nil {
		t.Fatalf("account put: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx2.Discard()
	stored, err := tx2.AccountGet(addr)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Balance.Cmp(big.NewInt(1234)) != 0 {
		t.Fatalf("balance = %s", stored.Balance)
	}
	if stored.Allowances["aa"].Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("allowances = %+v", stored.Allowances)
	}
}

func TestStoreParamsAndTreasury(t *testing.T) {
	store := NewStore(storage.NewMemDB())

	tx, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, ok, err := tx.ParamsGet(); err != nil || ok {
		t.Fatalf("fresh params: ok=%v err=%v", ok, err)
	}
	params := native.Params{
		MinimumStake:                big.NewInt(500),
		AuthorizationCeiling:        2,
		NotificationReward:          big.NewInt(10),
		DiscrepancyPenalty:          big.NewInt(5),
		DiscrepancyRewardMultiplier: 90,
	}
	if err := tx.ParamsPut(params); err != nil {
		t.Fatalf("params put: %v", err)
	}
	if err := tx.TreasurySet(big.NewInt(333)); err != nil {
		t.Fatalf("treasury set: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx2.Discard()
	stored, ok, err := tx2.ParamsGet()
	if err != nil || !ok {
		t.Fatalf("params reload: ok=%v err=%v", ok, err)
	}
	if stored.MinimumStake.Cmp(big.NewInt(500)) != 0 || stored.AuthorizationCeiling != 2 {
		t.Fatalf("params = %+v", stored)
	}
	treasury, err := tx2.TreasuryBalance()
	if err != nil {
		t.Fatalf("treasury: %v", err)
	}
	if treasury.Cmp(big.NewInt(333)) != 0 {
		t.Fatalf("treasury = %s", treasury)
	}
}

func TestStoreBacksEngine(t *testing.T) {
	store := NewStore(storage.NewMemDB())
	engine := native.NewEngine()
	engine.SetState(store)
	module := testAddr(0xFF)
	engine.SetModuleAddress(module)
	owner := testAddr(1)
	operator := testAddr(2)

	// Seed the owner's token balance through a raw transaction.
	tx, err := store.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.AccountPut(owner, &coretypes.Account{Balance: big.NewInt(1000)}); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := engine.StakeNative(owner, operator, [20]byte{}, [20]byte{}, big.NewInt(600)); err != nil {
		t.Fatalf("stake through store: %v", err)
	}
	info, err := engine.OperatorInfo(operator)
	if err != nil {
		t.Fatalf("operator info: %v", err)
	}
	if info.NativeStake.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("stake = %s", info.NativeStake)
	}
}
