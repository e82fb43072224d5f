package staking

import (
	"errors"
	"math/big"
	"testing"

	"stakehub/core/events"
)

func TestStakeNativeEscrowsTokens(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	fund(state, owner, 1_000)

	if err := engine.StakeNative(owner, operator, [20]byte{}, [20]byte{}, big.NewInt(600)); err != nil {
		t.Fatalf("stake native: %v", err)
	}

	op := state.operators[operator]
	if op == nil {
		t.Fatalf("operator record not persisted")
	}
	requireBig(t, op.NativeStake, 600, "native stake")
	if op.Owner != owner || op.Beneficiary != owner || op.Authorizer != owner {
		t.Fatalf("roles should default to the caller")
	}
	if op.StakedAt != uint64(testNow) {
		t.Fatalf("stakedAt = %d, want %d", op.StakedAt, testNow)
	}
	requireBig(t, balanceOf(t, state, owner), 400, "owner balance")
	requireBig(t, balanceOf(t, state, moduleAccount), 600, "module balance")
	if got := emitter.types(); len(got) != 1 || got[0] != events.TypeOperatorStaked {
		t.Fatalf("events = %v", got)
	}
}

func TestStakeNativeRejectsBelowMinimum(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	state.params = &Params{MinimumStake: big.NewInt(500), DiscrepancyRewardMultiplier: 100}
	owner := testAddr(1)
	fund(state, owner, 1_000)

	err := engine.StakeNative(owner, testAddr(2), [20]byte{}, [20]byte{}, big.NewInt(500))
	if !errors.Is(err, ErrBelowMinimumStake) {
		t.Fatalf("expected ErrBelowMinimumStake, got %v", err)
	}
	err = engine.StakeNative(owner, testAddr(2), [20]byte{}, [20]byte{}, big.NewInt(501))
	if err != nil {
		t.Fatalf("stake just above minimum: %v", err)
	}
}

func TestStakeNativeRejectsZeroAmount(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	err := engine.StakeNative(testAddr(1), testAddr(2), [20]byte{}, [20]byte{}, big.NewInt(0))
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestStakeNativeInsufficientFunds(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	fund(state, owner, 100)

	err := engine.StakeNative(owner, operator, [20]byte{}, [20]byte{}, big.NewInt(600))
	if err == nil {
		t.Fatalf("expected transfer failure")
	}
	if _, ok := state.operators[operator]; ok {
		t.Fatalf("failed stake must not persist an operator record")
	}
	requireBig(t, balanceOf(t, state, owner), 100, "owner balance untouched")
}

func TestStakeNativeRejectsClaimedOperator(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	fund(state, owner, 2_000)

	if err := engine.StakeNative(owner, operator, [20]byte{}, [20]byte{}, big.NewInt(600)); err != nil {
		t.Fatalf("first stake: %v", err)
	}
	err := engine.StakeNative(testAddr(3), operator, [20]byte{}, [20]byte{}, big.NewInt(600))
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestStakeLegacyCopiesMirrorRoles(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	operator := testAddr(2)
	owner := testAddr(3)
	authorizer := testAddr(4)
	beneficiary := testAddr(5)

	mirror := newMirrorStub()
	mirror.delegate(operator, 40)
	mirror.owners[operator] = owner
	mirror.authorizers[operator] = authorizer
	mirror.beneficiaries[operator] = beneficiary
	engine.SetLegacyMirrorA(mirror, ratioOracle{rate: 10})

	if err := engine.StakeLegacyA(operator); err != nil {
		t.Fatalf("stake legacy A: %v", err)
	}
	op := state.operators[operator]
	requireBig(t, op.LegacyAStake, 400, "cached legacy-A stake")
	requireBig(t, op.NativeStake, 0, "native stake")
	if op.Owner != owner || op.Authorizer != authorizer || op.Beneficiary != beneficiary {
		t.Fatalf("roles must come from the mirror")
	}
	if got := emitter.types(); len(got) != 1 || got[0] != events.TypeOperatorStaked {
		t.Fatalf("events = %v", got)
	}
}

func TestStakeLegacyRequiresLiveDelegation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	operator := testAddr(2)
	mirror := newMirrorStub()
	mirror.delegations[operator] = DelegationInfo{Amount: big.NewInt(40), CreatedAt: 1, UndelegatedAt: 9}
	engine.SetLegacyMirrorA(mirror, ratioOracle{rate: 1})

	err := engine.StakeLegacyA(operator)
	if !errors.Is(err, ErrDelegationNotActive) {
		t.Fatalf("expected ErrDelegationNotActive, got %v", err)
	}
}

func TestStakeNativeRejectsLiveLegacyDelegation(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	fund(state, owner, 1_000)
	mirror := newMirrorStub()
	mirror.delegate(operator, 40)
	engine.SetLegacyMirrorB(mirror, ratioOracle{rate: 1})

	err := engine.StakeNative(owner, operator, [20]byte{}, [20]byte{}, big.NewInt(600))
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestTopUpNativeAddsStake(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	fund(state, owner, 1_000)

	if err := engine.StakeNative(owner, operator, [20]byte{}, [20]byte{}, big.NewInt(600)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := engine.TopUpNative(owner, operator, big.NewInt(150)); err != nil {
		t.Fatalf("top up: %v", err)
	}
	requireBig(t, state.operators[operator].NativeStake, 750, "native stake")
	requireBig(t, balanceOf(t, state, moduleAccount), 750, "module balance")
}

func TestTopUpNativeUnknownOperator(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	fund(state, testAddr(1), 1_000)
	err := engine.TopUpNative(testAddr(1), testAddr(9), big.NewInt(10))
	if !errors.Is(err, ErrOperatorNotFound) {
		t.Fatalf("expected ErrOperatorNotFound, got %v", err)
	}
}

func TestTopUpLegacyRatchetsUpward(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	operator := testAddr(2)
	mirror := newMirrorStub()
	mirror.delegate(operator, 400)
	mirror.owners[operator] = testAddr(3)
	engine.SetLegacyMirrorA(mirror, ratioOracle{rate: 1})

	if err := engine.StakeLegacyA(operator); err != nil {
		t.Fatalf("stake legacy: %v", err)
	}
	// Mirror unchanged: nothing to sync.
	if err := engine.TopUpLegacyA(operator); !errors.Is(err, ErrNothingToSync) {
		t.Fatalf("expected ErrNothingToSync, got %v", err)
	}
	// Mirror shrank: the cache never ratchets down through top-up.
	mirror.delegate(operator, 300)
	if err := engine.TopUpLegacyA(operator); !errors.Is(err, ErrNothingToSync) {
		t.Fatalf("expected ErrNothingToSync after shrink, got %v", err)
	}
	requireBig(t, state.operators[operator].LegacyAStake, 400, "cache after shrink")
	// Mirror grew: cache follows.
	mirror.delegate(operator, 550)
	if err := engine.TopUpLegacyA(operator); err != nil {
		t.Fatalf("top up after growth: %v", err)
	}
	requireBig(t, state.operators[operator].LegacyAStake, 550, "cache after growth")
}

func TestUnstakeNativeRefundsOwner(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	fund(state, owner, 1_000)

	if err := engine.StakeNative(owner, operator, [20]byte{}, [20]byte{}, big.NewInt(600)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := engine.UnstakeNative(owner, operator, big.NewInt(200)); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	requireBig(t, state.operators[operator].NativeStake, 400, "native stake")
	requireBig(t, balanceOf(t, state, owner), 600, "owner balance")
}

func TestUnstakeNativeKeepsAuthorizationCovered(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	operator := testAddr(2)
	app := testAddr(9)
	approveApp(state, app)
	seedOperator(state, &Operator{
		Address:     operator,
		Owner:       testAddr(1),
		Authorizer:  testAddr(1),
		NativeStake: big.NewInt(600),
		Authorizations: []AppAuthorization{
			{Application: app, Authorized: big.NewInt(500), Deauthorizing: big.NewInt(0)},
		},
	})
	fund(state, moduleAccount, 600)

	err := engine.UnstakeNative(testAddr(1), operator, big.NewInt(200))
	if !errors.Is(err, ErrInsufficientStake) {
		t.Fatalf("expected ErrInsufficientStake, got %v", err)
	}
	if err := engine.UnstakeNative(testAddr(1), operator, big.NewInt(100)); err != nil {
		t.Fatalf("unstake within headroom: %v", err)
	}
	requireBig(t, state.operators[operator].NativeStake, 500, "native stake")
}

func TestUnstakeNativeBelowMinimumNeedsHoldingTime(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	fund(state, owner, 1_000)
	state.params = &Params{MinimumStake: big.NewInt(100), DiscrepancyRewardMultiplier: 100}

	if err := engine.StakeNative(owner, operator, [20]byte{}, [20]byte{}, big.NewInt(600)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	// Dropping below the minimum right away is blocked.
	err := engine.UnstakeNative(owner, operator, big.NewInt(550))
	if !errors.Is(err, ErrStakeHeldTooBriefly) {
		t.Fatalf("expected ErrStakeHeldTooBriefly, got %v", err)
	}
	// Staying at or above the minimum is always allowed.
	if err := engine.UnstakeNative(owner, operator, big.NewInt(500)); err != nil {
		t.Fatalf("unstake to minimum: %v", err)
	}
	// After the holding period the remainder can leave too.
	engine.SetNowFunc(func() int64 { return testNow + int64(MinStakeTimeSeconds) })
	if err := engine.UnstakeNative(owner, operator, big.NewInt(100)); err != nil {
		t.Fatalf("unstake after holding period: %v", err)
	}
	requireBig(t, state.operators[operator].NativeStake, 0, "native stake")
}

func TestUnstakeNativeRequiresOwnerOrOperator(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	fund(state, owner, 1_000)
	if err := engine.StakeNative(owner, operator, [20]byte{}, [20]byte{}, big.NewInt(600)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	err := engine.UnstakeNative(testAddr(7), operator, big.NewInt(100))
	if !errors.Is(err, ErrUnauthorizedCaller) {
		t.Fatalf("expected ErrUnauthorizedCaller, got %v", err)
	}
	if err := engine.UnstakeNative(operator, operator, big.NewInt(100)); err != nil {
		t.Fatalf("operator self-unstake: %v", err)
	}
}

func TestUnstakeLegacyAZeroesCache(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	operator := testAddr(2)
	seedOperator(state, &Operator{
		Address:      operator,
		Owner:        testAddr(1),
		LegacyAStake: big.NewInt(400),
	})

	if err := engine.UnstakeLegacyA(testAddr(1), operator); err != nil {
		t.Fatalf("unstake legacy A: %v", err)
	}
	requireBig(t, state.operators[operator].LegacyAStake, 0, "legacy-A cache")
	// Second call has nothing left to release.
	err := engine.UnstakeLegacyA(testAddr(1), operator)
	if !errors.Is(err, ErrInsufficientStake) {
		t.Fatalf("expected ErrInsufficientStake, got %v", err)
	}
}

func TestUnstakeLegacyABlockedWhileAuthorizationDepends(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	operator := testAddr(2)
	app := testAddr(9)
	seedOperator(state, &Operator{
		Address:      operator,
		Owner:        testAddr(1),
		NativeStake:  big.NewInt(100),
		LegacyAStake: big.NewInt(400),
		Authorizations: []AppAuthorization{
			{Application: app, Authorized: big.NewInt(300), Deauthorizing: big.NewInt(0)},
		},
	})

	err := engine.UnstakeLegacyA(testAddr(1), operator)
	if !errors.Is(err, ErrInsufficientStake) {
		t.Fatalf("expected ErrInsufficientStake, got %v", err)
	}
}

func TestUnstakeLegacyBPartial(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	operator := testAddr(2)
	app := testAddr(9)
	seedOperator(state, &Operator{
		Address:      operator,
		Owner:        testAddr(1),
		NativeStake:  big.NewInt(100),
		LegacyBStake: big.NewInt(400),
		Authorizations: []AppAuthorization{
			{Application: app, Authorized: big.NewInt(300), Deauthorizing: big.NewInt(0)},
		},
	})

	// 100 native covers part of the 300 authorization; legacy-B must keep 200.
	err := engine.UnstakeLegacyB(testAddr(1), operator, big.NewInt(300))
	if !errors.Is(err, ErrInsufficientStake) {
		t.Fatalf("expected ErrInsufficientStake, got %v", err)
	}
	if err := engine.UnstakeLegacyB(testAddr(1), operator, big.NewInt(200)); err != nil {
		t.Fatalf("unstake within headroom: %v", err)
	}
	requireBig(t, state.operators[operator].LegacyBStake, 200, "legacy-B cache")
}

func TestUnstakeAll(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	seedOperator(state, &Operator{
		Address:      operator,
		Owner:        owner,
		NativeStake:  big.NewInt(500),
		LegacyAStake: big.NewInt(300),
	})
	fund(state, moduleAccount, 500)

	if err := engine.UnstakeAll(owner, operator); err != nil {
		t.Fatalf("unstake all: %v", err)
	}
	op := state.operators[operator]
	requireBig(t, op.NativeStake, 0, "native stake")
	requireBig(t, op.LegacyAStake, 0, "legacy-A cache")
	requireBig(t, balanceOf(t, state, owner), 500, "owner refund")
	if got := emitter.types(); len(got) != 2 {
		t.Fatalf("expected one withdrawal event per funded source, got %v", got)
	}
}

func TestUnstakeAllRejectsOutstandingAuthorizations(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	operator := testAddr(2)
	seedOperator(state, &Operator{
		Address:     operator,
		Owner:       testAddr(1),
		NativeStake: big.NewInt(500),
		Authorizations: []AppAuthorization{
			{Application: testAddr(9), Authorized: big.NewInt(1), Deauthorizing: big.NewInt(0)},
		},
	})

	err := engine.UnstakeAll(testAddr(1), operator)
	if !errors.Is(err, ErrOutstandingAuthorizations) {
		t.Fatalf("expected ErrOutstandingAuthorizations, got %v", err)
	}
}

func TestMinStakedResidual(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	operator := testAddr(2)
	seedOperator(state, &Operator{
		Address:      operator,
		Owner:        testAddr(1),
		NativeStake:  big.NewInt(100),
		LegacyAStake: big.NewInt(50),
		LegacyBStake: big.NewInt(25),
		Authorizations: []AppAuthorization{
			{Application: testAddr(9), Authorized: big.NewInt(120), Deauthorizing: big.NewInt(0)},
		},
	})

	// Other sources cover 75, so native must keep 45.
	got, err := engine.MinStaked(operator, SourceNative)
	if err != nil {
		t.Fatalf("min staked: %v", err)
	}
	requireBig(t, got, 45, "native floor")
	// Native and legacy-B cover the full authorization.
	got, err = engine.MinStaked(operator, SourceLegacyA)
	if err != nil {
		t.Fatalf("min staked: %v", err)
	}
	requireBig(t, got, 0, "legacy-A floor")
}

func TestOperatorInfoReturnsCopy(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	operator := testAddr(2)
	seedOperator(state, &Operator{
		Address:     operator,
		Owner:       testAddr(1),
		NativeStake: big.NewInt(500),
	})

	info, err := engine.OperatorInfo(operator)
	if err != nil {
		t.Fatalf("operator info: %v", err)
	}
	info.NativeStake.SetInt64(1)
	requireBig(t, state.operators[operator].NativeStake, 500, "stored stake")
}
