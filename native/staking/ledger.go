package staking

import (
	"errors"
	"math/big"

	"stakehub/core/events"
)

// StakeNative claims the operator identity through the native path, escrowing
// amount tokens from the caller. Beneficiary and authorizer default to the
// caller when left zero.
func (e *Engine) StakeNative(caller, operator, beneficiary, authorizer [20]byte, amount *big.Int) error {
	amt, err := requirePositive(amount)
	if err != nil {
		return err
	}
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	params, err := e.params(tx)
	if err != nil {
		return err
	}
	if amt.Cmp(params.MinimumStake) <= 0 {
		return ErrBelowMinimumStake
	}
	if err := e.ensureUnclaimed(tx, operator); err != nil {
		return err
	}
	if beneficiary == ([20]byte{}) {
		beneficiary = caller
	}
	if authorizer == ([20]byte{}) {
		authorizer = caller
	}
	op := &Operator{
		Address:      operator,
		Owner:        caller,
		Beneficiary:  beneficiary,
		Authorizer:   authorizer,
		NativeStake:  amt,
		LegacyAStake: big.NewInt(0),
		LegacyBStake: big.NewInt(0),
		StakedAt:     uint64(e.now()),
	}
	if err := e.token(tx).TransferFrom(caller, caller, e.moduleAddr, amt); err != nil {
		return err
	}
	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncStakeMutation("stake", string(SourceNative))
	e.emitAll([]payloadEvent{events.OperatorStaked{
		Operator:    operator,
		Owner:       caller,
		Beneficiary: beneficiary,
		Authorizer:  authorizer,
		Source:      string(SourceNative),
		Amount:      amt,
	}})
	return nil
}

// StakeLegacyA claims the operator identity by copying the live legacy-A
// delegation into the ledger. Roles are read from the mirror.
func (e *Engine) StakeLegacyA(operator [20]byte) error {
	return e.stakeLegacy(operator, SourceLegacyA)
}

// StakeLegacyB claims the operator identity by copying the live legacy-B
// delegation into the ledger. Roles are read from the mirror.
func (e *Engine) StakeLegacyB(operator [20]byte) error {
	return e.stakeLegacy(operator, SourceLegacyB)
}

func (e *Engine) stakeLegacy(operator [20]byte, source StakeSource) error {
	mirror, oracle, err := e.legacy(source)
	if err != nil {
		return err
	}
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := e.ensureUnclaimed(tx, operator); err != nil {
		return err
	}
	equivalent, err := liveEquivalent(mirror, oracle, operator)
	if err != nil {
		return err
	}
	if equivalent.Sign() == 0 {
		return ErrDelegationNotActive
	}
	owner, err := mirror.OwnerOf(operator)
	if err != nil {
		return err
	}
	authorizer, err := mirror.AuthorizerOf(operator)
	if err != nil {
		return err
	}
	beneficiary, err := mirror.BeneficiaryOf(operator)
	if err != nil {
		return err
	}
	op := &Operator{
		Address:      operator,
		Owner:        owner,
		Beneficiary:  beneficiary,
		Authorizer:   authorizer,
		NativeStake:  big.NewInt(0),
		LegacyAStake: big.NewInt(0),
		LegacyBStake: big.NewInt(0),
	}
	op.balance(source).Set(equivalent)
	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncStakeMutation("stake", string(source))
	e.emitAll([]payloadEvent{events.OperatorStaked{
		Operator:    operator,
		Owner:       owner,
		Beneficiary: beneficiary,
		Authorizer:  authorizer,
		Source:      string(source),
		Amount:      equivalent,
	}})
	return nil
}

// TopUpNative escrows additional native tokens from the caller on behalf of
// the operator.
func (e *Engine) TopUpNative(caller, operator [20]byte, amount *big.Int) error {
	amt, err := requirePositive(amount)
	if err != nil {
		return err
	}
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	op, err := e.loadOperator(tx, operator)
	if err != nil {
		return err
	}
	if err := e.token(tx).TransferFrom(caller, caller, e.moduleAddr, amt); err != nil {
		return err
	}
	newTotal := new(big.Int).Add(op.balance(SourceNative), amt)
	op.NativeStake = newTotal
	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncStakeMutation("topUp", string(SourceNative))
	e.emitAll([]payloadEvent{events.StakeToppedUp{
		Operator: operator,
		Source:   string(SourceNative),
		Amount:   amt,
		NewTotal: newTotal,
	}})
	return nil
}

// TopUpLegacyA re-reads the legacy-A mirror and ratchets the cached snapshot
// up to a strictly larger value.
func (e *Engine) TopUpLegacyA(operator [20]byte) error {
	return e.topUpLegacy(operator, SourceLegacyA)
}

// TopUpLegacyB re-reads the legacy-B mirror and ratchets the cached snapshot
// up to a strictly larger value.
func (e *Engine) TopUpLegacyB(operator [20]byte) error {
	return e.topUpLegacy(operator, SourceLegacyB)
}

func (e *Engine) topUpLegacy(operator [20]byte, source StakeSource) error {
	mirror, oracle, err := e.legacy(source)
	if err != nil {
		return err
	}
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	op, err := e.loadOperator(tx, operator)
	if err != nil {
		return err
	}
	equivalent, err := liveEquivalent(mirror, oracle, operator)
	if err != nil {
		return err
	}
	cached := op.balance(source)
	// Monotonic ratchet: a top-up can never shrink the cached snapshot.
	if equivalent.Cmp(cached) <= 0 {
		return ErrNothingToSync
	}
	delta := new(big.Int).Sub(equivalent, cached)
	cached.Set(equivalent)
	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncStakeMutation("topUp", string(source))
	e.emitAll([]payloadEvent{events.StakeToppedUp{
		Operator: operator,
		Source:   string(source),
		Amount:   delta,
		NewTotal: equivalent,
	}})
	return nil
}

// UnstakeNative releases part of the native stake back to the owner. The
// remaining balance must still cover the operator's maximum authorization and
// either stay above the configured minimum or the stake must have been held
// for at least MinStakeTimeSeconds.
func (e *Engine) UnstakeNative(caller, operator [20]byte, amount *big.Int) error {
	amt, err := requirePositive(amount)
	if err != nil {
		return err
	}
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	op, err := e.loadOperator(tx, operator)
	if err != nil {
		return err
	}
	if err := requireOwnerOrOperator(op, caller); err != nil {
		return err
	}
	native := op.balance(SourceNative)
	if native.Cmp(amt) < 0 {
		return ErrInsufficientStake
	}
	remaining := new(big.Int).Sub(native, amt)
	if remaining.Cmp(minStakedResidual(op, SourceNative)) < 0 {
		return ErrInsufficientStake
	}
	params, err := e.params(tx)
	if err != nil {
		return err
	}
	if remaining.Cmp(params.MinimumStake) < 0 {
		if uint64(e.now()) < op.StakedAt+MinStakeTimeSeconds {
			return ErrStakeHeldTooBriefly
		}
	}
	op.NativeStake = remaining
	if err := e.token(tx).Transfer(e.moduleAddr, op.Owner, amt); err != nil {
		return err
	}
	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncStakeMutation("unstake", string(SourceNative))
	e.emitAll([]payloadEvent{events.StakeWithdrawn{
		Operator: operator,
		Source:   string(SourceNative),
		Amount:   amt,
		NewTotal: remaining,
	}})
	return nil
}

// UnstakeLegacyA zeroes the cached legacy-A snapshot. Permitted only when no
// authorization depends on the legacy-A stake.
func (e *Engine) UnstakeLegacyA(caller, operator [20]byte) error {
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	op, err := e.loadOperator(tx, operator)
	if err != nil {
		return err
	}
	if err := requireOwnerOrOperator(op, caller); err != nil {
		return err
	}
	cached := op.balance(SourceLegacyA)
	if cached.Sign() == 0 {
		return ErrInsufficientStake
	}
	if minStakedResidual(op, SourceLegacyA).Sign() != 0 {
		return ErrInsufficientStake
	}
	amount := new(big.Int).Set(cached)
	op.LegacyAStake = big.NewInt(0)
	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncStakeMutation("unstake", string(SourceLegacyA))
	e.emitAll([]payloadEvent{events.StakeWithdrawn{
		Operator: operator,
		Source:   string(SourceLegacyA),
		Amount:   amount,
		NewTotal: big.NewInt(0),
	}})
	return nil
}

// UnstakeLegacyB releases part of the cached legacy-B stake. The remaining
// balance must keep the maximum authorization satisfiable.
func (e *Engine) UnstakeLegacyB(caller, operator [20]byte, amount *big.Int) error {
	amt, err := requirePositive(amount)
	if err != nil {
		return err
	}
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	op, err := e.loadOperator(tx, operator)
	if err != nil {
		return err
	}
	if err := requireOwnerOrOperator(op, caller); err != nil {
		return err
	}
	cached := op.balance(SourceLegacyB)
	if cached.Cmp(amt) < 0 {
		return ErrInsufficientStake
	}
	remaining := new(big.Int).Sub(cached, amt)
	if remaining.Cmp(minStakedResidual(op, SourceLegacyB)) < 0 {
		return ErrInsufficientStake
	}
	op.LegacyBStake = remaining
	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncStakeMutation("unstake", string(SourceLegacyB))
	e.emitAll([]payloadEvent{events.StakeWithdrawn{
		Operator: operator,
		Source:   string(SourceLegacyB),
		Amount:   amt,
		NewTotal: remaining,
	}})
	return nil
}

// UnstakeAll refunds the full native balance and zeroes all three stake
// sources. The operator must have no outstanding authorizations.
func (e *Engine) UnstakeAll(caller, operator [20]byte) error {
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	op, err := e.loadOperator(tx, operator)
	if err != nil {
		return err
	}
	if err := requireOwnerOrOperator(op, caller); err != nil {
		return err
	}
	if len(op.Authorizations) != 0 {
		return ErrOutstandingAuthorizations
	}
	refund := cloneBigInt(op.NativeStake)
	payloads := make([]payloadEvent, 0, 3)
	for _, source := range []StakeSource{SourceNative, SourceLegacyA, SourceLegacyB} {
		balance := op.balance(source)
		if balance.Sign() == 0 {
			continue
		}
		payloads = append(payloads, events.StakeWithdrawn{
			Operator: operator,
			Source:   string(source),
			Amount:   new(big.Int).Set(balance),
			NewTotal: big.NewInt(0),
		})
	}
	op.NativeStake = big.NewInt(0)
	op.LegacyAStake = big.NewInt(0)
	op.LegacyBStake = big.NewInt(0)
	if refund.Sign() > 0 {
		if err := e.token(tx).Transfer(e.moduleAddr, op.Owner, refund); err != nil {
			return err
		}
	}
	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncStakeMutation("unstakeAll", "all")
	e.emitAll(payloads)
	return nil
}

// OperatorInfo returns a copy of the operator record.
func (e *Engine) OperatorInfo(operator [20]byte) (*Operator, error) {
	var out *Operator
	err := e.view(func(tx Tx) error {
		op, err := e.loadOperator(tx, operator)
		if err != nil {
			return err
		}
		out = copyOperator(op)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HasStakeDelegated reports whether the operator identity is claimed and
// holds any stake. Unknown operators report false rather than an error.
func (e *Engine) HasStakeDelegated(operator [20]byte) (bool, error) {
	var out bool
	err := e.view(func(tx Tx) error {
		op, ok, err := tx.OperatorGet(operator)
		if err != nil {
			return err
		}
		out = ok && op.TotalStake().Sign() > 0
		return nil
	})
	return out, err
}

// MinStaked reports the minimum amount of the given stake source that must
// remain, given the maximum outstanding authorization across all
// applications. Authorization is preferentially covered by the other two
// sources; the queried source's floor is the residual.
func (e *Engine) MinStaked(operator [20]byte, source StakeSource) (*big.Int, error) {
	if !source.Valid() {
		return nil, ErrInvalidAmount
	}
	var out *big.Int
	err := e.view(func(tx Tx) error {
		op, err := e.loadOperator(tx, operator)
		if err != nil {
			return err
		}
		out = minStakedResidual(op, source)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func minStakedResidual(op *Operator, source StakeSource) *big.Int {
	residual := op.maxAuthorization()
	for _, other := range []StakeSource{SourceNative, SourceLegacyA, SourceLegacyB} {
		if other == source {
			continue
		}
		residual.Sub(residual, op.balance(other))
	}
	if residual.Sign() < 0 {
		return big.NewInt(0)
	}
	return residual
}

func requireOwnerOrOperator(op *Operator, caller [20]byte) error {
	if caller != op.Owner && caller != op.Address {
		return ErrUnauthorizedCaller
	}
	return nil
}

func (e *Engine) ensureUnclaimed(tx Tx, operator [20]byte) error {
	op, ok, err := tx.OperatorGet(operator)
	if err != nil {
		return err
	}
	if ok && op.Claimed() {
		return ErrAlreadyClaimed
	}
	for _, source := range []StakeSource{SourceLegacyA, SourceLegacyB} {
		mirror, oracle, err := e.legacy(source)
		if err != nil {
			continue // mirror not wired, path cannot claim
		}
		equivalent, err := liveEquivalent(mirror, oracle, operator)
		if err != nil {
			if errors.Is(err, ErrConversionZero) {
				// A live delegation exists even if it rounds to zero.
				return ErrAlreadyClaimed
			}
			return err
		}
		if equivalent.Sign() > 0 {
			return ErrAlreadyClaimed
		}
	}
	return nil
}

func (e *Engine) legacy(source StakeSource) (LegacyMirror, ConversionOracle, error) {
	var mirror LegacyMirror
	var oracle ConversionOracle
	switch source {
	case SourceLegacyA:
		mirror, oracle = e.mirrorA, e.oracleA
	case SourceLegacyB:
		mirror, oracle = e.mirrorB, e.oracleB
	default:
		return nil, nil, ErrInvalidAmount
	}
	if mirror == nil {
		return nil, nil, errNilMirror
	}
	if oracle == nil {
		return nil, nil, errNilOracle
	}
	return mirror, oracle, nil
}

// liveEquivalent reads the mirror snapshot and converts it to the native
// denomination. Fully undelegated positions count as zero.
func liveEquivalent(mirror LegacyMirror, oracle ConversionOracle, operator [20]byte) (*big.Int, error) {
	info, err := mirror.DelegationInfo(operator)
	if err != nil {
		return nil, err
	}
	if info.UndelegatedAt != 0 || info.Amount == nil || info.Amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	equivalent, _, err := oracle.ToNative(info.Amount)
	if err != nil {
		return nil, err
	}
	if equivalent == nil || equivalent.Sign() == 0 {
		return nil, ErrConversionZero
	}
	return equivalent, nil
}

func copyOperator(op *Operator) *Operator {
	out := &Operator{
		Address:      op.Address,
		Owner:        op.Owner,
		Beneficiary:  op.Beneficiary,
		Authorizer:   op.Authorizer,
		NativeStake:  cloneBigInt(op.NativeStake),
		LegacyAStake: cloneBigInt(op.LegacyAStake),
		LegacyBStake: cloneBigInt(op.LegacyBStake),
		StakedAt:     op.StakedAt,
	}
	if len(op.Authorizations) > 0 {
		out.Authorizations = make([]AppAuthorization, len(op.Authorizations))
		for i, auth := range op.Authorizations {
			out.Authorizations[i] = AppAuthorization{
				Application:   auth.Application,
				Authorized:    cloneBigInt(auth.Authorized),
				Deauthorizing: cloneBigInt(auth.Deauthorizing),
			}
		}
	}
	return out
}
