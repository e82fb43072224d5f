package staking

import (
	"errors"
	"math/big"
	"testing"

	"stakehub/core/events"
)

func stakeTestOperator(t *testing.T, engine *Engine, state *memState, owner, operator [20]byte, amount int64) {
	t.Helper()
	fund(state, owner, amount)
	if err := engine.StakeNative(owner, operator, [20]byte{}, [20]byte{}, big.NewInt(amount)); err != nil {
		t.Fatalf("stake: %v", err)
	}
}

func TestIncreaseAuthorization(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	app := testAddr(9)
	approveApp(state, app)
	hook := &hookStub{}
	engine.SetHooks(StaticHooks{app: hook})
	stakeTestOperator(t, engine, state, owner, operator, 1_000)

	if err := engine.IncreaseAuthorization(owner, operator, app, big.NewInt(600)); err != nil {
		t.Fatalf("increase: %v", err)
	}
	got, err := engine.AuthorizedAmount(operator, app)
	if err != nil {
		t.Fatalf("authorized amount: %v", err)
	}
	requireBig(t, got, 600, "authorized")
	if len(hook.increased) != 1 {
		t.Fatalf("application not notified")
	}
	requireBig(t, hook.increased[0].amount, 600, "hook amount")
	types := emitter.types()
	if types[len(types)-1] != events.TypeAuthorizationIncreased {
		t.Fatalf("events = %v", types)
	}

	// Headroom shrinks with the grant.
	available, err := engine.AvailableToAuthorize(operator, app)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	requireBig(t, available, 400, "available to authorize")
	err = engine.IncreaseAuthorization(owner, operator, app, big.NewInt(500))
	if !errors.Is(err, ErrInsufficientStake) {
		t.Fatalf("expected ErrInsufficientStake, got %v", err)
	}
}

func TestIncreaseAuthorizationPerApplicationHeadroom(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	appA := testAddr(9)
	appB := testAddr(10)
	approveApp(state, appA)
	approveApp(state, appB)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)

	if err := engine.IncreaseAuthorization(owner, operator, appA, big.NewInt(1_000)); err != nil {
		t.Fatalf("increase appA: %v", err)
	}
	// A second application can still be backed by the full stake.
	if err := engine.IncreaseAuthorization(owner, operator, appB, big.NewInt(1_000)); err != nil {
		t.Fatalf("increase appB: %v", err)
	}
	available, err := engine.AvailableToAuthorize(operator, appB)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	requireBig(t, available, 0, "appB headroom")
}

func TestIncreaseAuthorizationOnlyAuthorizer(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	app := testAddr(9)
	approveApp(state, app)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)

	err := engine.IncreaseAuthorization(operator, operator, app, big.NewInt(100))
	if !errors.Is(err, ErrUnauthorizedCaller) {
		t.Fatalf("expected ErrUnauthorizedCaller, got %v", err)
	}
}

func TestIncreaseAuthorizationRequiresApproval(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	app := testAddr(9)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)

	err := engine.IncreaseAuthorization(owner, operator, app, big.NewInt(100))
	if !errors.Is(err, ErrApplicationNotApproved) {
		t.Fatalf("expected ErrApplicationNotApproved, got %v", err)
	}
	state.apps[app] = &Application{Address: app, Approved: true, Disabled: true}
	err = engine.IncreaseAuthorization(owner, operator, app, big.NewInt(100))
	if !errors.Is(err, ErrApplicationDisabled) {
		t.Fatalf("expected ErrApplicationDisabled, got %v", err)
	}
}

func TestIncreaseAuthorizationCeiling(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	state.params = &Params{MinimumStake: big.NewInt(0), AuthorizationCeiling: 1, DiscrepancyRewardMultiplier: 100}
	appA := testAddr(9)
	appB := testAddr(10)
	approveApp(state, appA)
	approveApp(state, appB)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)

	if err := engine.IncreaseAuthorization(owner, operator, appA, big.NewInt(100)); err != nil {
		t.Fatalf("first authorization: %v", err)
	}
	err := engine.IncreaseAuthorization(owner, operator, appB, big.NewInt(100))
	if !errors.Is(err, ErrTooManyApplications) {
		t.Fatalf("expected ErrTooManyApplications, got %v", err)
	}
	// Growing an existing pair is not limited by the ceiling.
	if err := engine.IncreaseAuthorization(owner, operator, appA, big.NewInt(100)); err != nil {
		t.Fatalf("grow existing pair: %v", err)
	}
}

func TestIncreaseAuthorizationHookFailureRollsBack(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	app := testAddr(9)
	approveApp(state, app)
	hook := &hookStub{failIncrease: errors.New("application refuses")}
	engine.SetHooks(StaticHooks{app: hook})
	stakeTestOperator(t, engine, state, owner, operator, 1_000)
	emitter.emitted = nil

	err := engine.IncreaseAuthorization(owner, operator, app, big.NewInt(600))
	if err == nil {
		t.Fatalf("expected hook failure to propagate")
	}
	got, viewErr := engine.AuthorizedAmount(operator, app)
	if viewErr != nil {
		t.Fatalf("authorized amount: %v", viewErr)
	}
	requireBig(t, got, 0, "authorization must not survive a rejected callback")
	if len(emitter.emitted) != 0 {
		t.Fatalf("no events may leak from a discarded unit, got %v", emitter.types())
	}
}

func TestRequestAuthorizationDecreaseOverwrites(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	app := testAddr(9)
	approveApp(state, app)
	hook := &hookStub{}
	engine.SetHooks(StaticHooks{app: hook})
	stakeTestOperator(t, engine, state, owner, operator, 1_000)
	if err := engine.IncreaseAuthorization(owner, operator, app, big.NewInt(600)); err != nil {
		t.Fatalf("increase: %v", err)
	}

	if err := engine.RequestAuthorizationDecrease(owner, operator, app, big.NewInt(400)); err != nil {
		t.Fatalf("first request: %v", err)
	}
	// A fresh request replaces the pending amount instead of accumulating.
	if err := engine.RequestAuthorizationDecrease(owner, operator, app, big.NewInt(100)); err != nil {
		t.Fatalf("second request: %v", err)
	}
	auth := state.operators[operator].authorization(app)
	requireBig(t, auth.Deauthorizing, 100, "pending decrease")
	requireBig(t, auth.Authorized, 600, "authorized untouched until approval")
	if len(hook.decreaseReq) != 2 {
		t.Fatalf("application must see every request, got %d", len(hook.decreaseReq))
	}
}

func TestRequestAuthorizationDecreaseBounds(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	app := testAddr(9)
	approveApp(state, app)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)
	if err := engine.IncreaseAuthorization(owner, operator, app, big.NewInt(600)); err != nil {
		t.Fatalf("increase: %v", err)
	}

	err := engine.RequestAuthorizationDecrease(owner, operator, app, big.NewInt(601))
	if !errors.Is(err, ErrInsufficientStake) {
		t.Fatalf("expected ErrInsufficientStake, got %v", err)
	}
	err = engine.RequestAuthorizationDecrease(owner, operator, app, big.NewInt(0))
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestApproveAuthorizationDecreaseLifecycle(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	app := testAddr(9)
	approveApp(state, app)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)
	if err := engine.IncreaseAuthorization(owner, operator, app, big.NewInt(600)); err != nil {
		t.Fatalf("increase: %v", err)
	}

	// Nothing pending yet.
	err := engine.ApproveAuthorizationDecrease(app, operator)
	if !errors.Is(err, ErrNothingToDecrease) {
		t.Fatalf("expected ErrNothingToDecrease, got %v", err)
	}

	if err := engine.RequestAuthorizationDecrease(owner, operator, app, big.NewInt(200)); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := engine.ApproveAuthorizationDecrease(app, operator); err != nil {
		t.Fatalf("approve: %v", err)
	}
	auth := state.operators[operator].authorization(app)
	requireBig(t, auth.Authorized, 400, "authorized after approval")
	requireBig(t, auth.Deauthorizing, 0, "pending cleared")

	// Approval is one-shot.
	err = engine.ApproveAuthorizationDecrease(app, operator)
	if !errors.Is(err, ErrNothingToDecrease) {
		t.Fatalf("expected ErrNothingToDecrease after consumption, got %v", err)
	}
	types := emitter.types()
	if types[len(types)-1] != events.TypeAuthorizationDecreaseApproved {
		t.Fatalf("events = %v", types)
	}
}

func TestApproveAuthorizationDecreaseToZeroRemovesPair(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	app := testAddr(9)
	approveApp(state, app)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)
	if err := engine.IncreaseAuthorization(owner, operator, app, big.NewInt(600)); err != nil {
		t.Fatalf("increase: %v", err)
	}

	if err := engine.RequestAuthorizationDecreaseAll(owner, operator, app); err != nil {
		t.Fatalf("request all: %v", err)
	}
	if err := engine.ApproveAuthorizationDecrease(app, operator); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(state.operators[operator].Authorizations) != 0 {
		t.Fatalf("zeroed pair must be removed from the operator")
	}
	// With no authorizations left the full stake can exit.
	fund(state, moduleAccount, 1_000)
	if err := engine.UnstakeAll(owner, operator); err != nil {
		t.Fatalf("unstake all: %v", err)
	}
}

func TestRequestAuthorizationDecreaseEverywhere(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	appA := testAddr(9)
	appB := testAddr(10)
	approveApp(state, appA)
	approveApp(state, appB)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)
	if err := engine.IncreaseAuthorization(owner, operator, appA, big.NewInt(600)); err != nil {
		t.Fatalf("increase appA: %v", err)
	}
	if err := engine.IncreaseAuthorization(owner, operator, appB, big.NewInt(300)); err != nil {
		t.Fatalf("increase appB: %v", err)
	}

	if err := engine.RequestAuthorizationDecreaseEverywhere(owner, operator); err != nil {
		t.Fatalf("request everywhere: %v", err)
	}
	op := state.operators[operator]
	requireBig(t, op.authorization(appA).Deauthorizing, 600, "appA pending")
	requireBig(t, op.authorization(appB).Deauthorizing, 300, "appB pending")
}

func TestRequestAuthorizationDecreaseEverywhereEmpty(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)

	err := engine.RequestAuthorizationDecreaseEverywhere(owner, operator)
	if !errors.Is(err, ErrNothingToDecrease) {
		t.Fatalf("expected ErrNothingToDecrease, got %v", err)
	}
}

func TestApproveAuthorizationDecreaseDisabledApplication(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	app := testAddr(9)
	approveApp(state, app)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)
	if err := engine.IncreaseAuthorization(owner, operator, app, big.NewInt(600)); err != nil {
		t.Fatalf("increase: %v", err)
	}
	if err := engine.RequestAuthorizationDecrease(owner, operator, app, big.NewInt(200)); err != nil {
		t.Fatalf("request: %v", err)
	}
	state.apps[app].Disabled = true

	err := engine.ApproveAuthorizationDecrease(app, operator)
	if !errors.Is(err, ErrApplicationDisabled) {
		t.Fatalf("expected ErrApplicationDisabled, got %v", err)
	}
}

func TestEligibleStake(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	app := testAddr(9)
	approveApp(state, app)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)

	// No authorization yet.
	got, err := engine.EligibleStake(operator, app)
	if err != nil {
		t.Fatalf("eligible stake: %v", err)
	}
	requireBig(t, got, 0, "eligible before authorization")

	if err := engine.IncreaseAuthorization(owner, operator, app, big.NewInt(600)); err != nil {
		t.Fatalf("increase: %v", err)
	}
	got, err = engine.EligibleStake(operator, app)
	if err != nil {
		t.Fatalf("eligible stake: %v", err)
	}
	requireBig(t, got, 600, "eligible after authorization")

	// A disabled application has no eligible stake.
	state.apps[app].PanicButton = testAddr(7)
	state.apps[app].Disabled = true
	got, err = engine.EligibleStake(operator, app)
	if err != nil {
		t.Fatalf("eligible stake: %v", err)
	}
	requireBig(t, got, 0, "eligible while disabled")

	// Unknown operators and unapproved applications yield zero, not errors.
	got, err = engine.EligibleStake(testAddr(0x55), app)
	if err != nil {
		t.Fatalf("eligible stake: %v", err)
	}
	requireBig(t, got, 0, "eligible for unknown operator")
}

func TestAuthorizedApplicationsAndMaxAuthorization(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)
	appA := testAddr(9)
	appB := testAddr(10)
	approveApp(state, appA)
	approveApp(state, appB)
	stakeTestOperator(t, engine, state, owner, operator, 1_000)

	if err := engine.IncreaseAuthorization(owner, operator, appA, big.NewInt(400)); err != nil {
		t.Fatalf("increase: %v", err)
	}
	if err := engine.IncreaseAuthorization(owner, operator, appB, big.NewInt(700)); err != nil {
		t.Fatalf("increase: %v", err)
	}

	apps, err := engine.AuthorizedApplications(operator)
	if err != nil {
		t.Fatalf("authorized applications: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("unexpected application count: %d", len(apps))
	}

	max, err := engine.MaxAuthorization(operator)
	if err != nil {
		t.Fatalf("max authorization: %v", err)
	}
	requireBig(t, max, 700, "max authorization")
}

func TestHasStakeDelegated(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testAddr(1)
	operator := testAddr(2)

	delegated, err := engine.HasStakeDelegated(operator)
	if err != nil {
		t.Fatalf("has stake delegated: %v", err)
	}
	if delegated {
		t.Fatalf("unknown operator reported as delegated")
	}

	stakeTestOperator(t, engine, state, owner, operator, 1_000)
	delegated, err = engine.HasStakeDelegated(operator)
	if err != nil {
		t.Fatalf("has stake delegated: %v", err)
	}
	if !delegated {
		t.Fatalf("staked operator not reported as delegated")
	}

	if err := engine.UnstakeAll(owner, operator); err != nil {
		t.Fatalf("unstake all: %v", err)
	}
	delegated, err = engine.HasStakeDelegated(operator)
	if err != nil {
		t.Fatalf("has stake delegated: %v", err)
	}
	if delegated {
		t.Fatalf("emptied operator still reported as delegated")
	}
}
