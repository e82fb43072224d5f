package staking

import (
	"stakehub/core/events"
)

// NotifyLegacyADiscrepancy re-synchronises the cached legacy-A stake of an
// operator whose live delegation no longer backs it. Callable by anyone; the
// caller is rewarded through the legacy mirror's seize path.
func (e *Engine) NotifyLegacyADiscrepancy(caller, operator [20]byte) error {
	return e.notifyDiscrepancy(caller, operator, SourceLegacyA)
}

// NotifyLegacyBDiscrepancy re-synchronises the cached legacy-B stake of an
// operator whose live delegation no longer backs it.
func (e *Engine) NotifyLegacyBDiscrepancy(caller, operator [20]byte) error {
	return e.notifyDiscrepancy(caller, operator, SourceLegacyB)
}

func (e *Engine) notifyDiscrepancy(caller, operator [20]byte, source StakeSource) error {
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
	cached := op.balance(source)
	if cached.Sign() == 0 {
		return ErrNoDiscrepancy
	}
	live, liveErr := liveEquivalent(mirror, oracle, operator)
	if liveErr != nil {
		return liveErr
	}
	if live.Cmp(cached) >= 0 {
		return ErrNoDiscrepancy
	}

	params, err := e.params(tx)
	if err != nil {
		return err
	}
	if err := e.penalizeDiscrepancy(mirror, oracle, caller, operator, params); err != nil {
		return err
	}
	// The penalty may have shrunk or closed the live delegation; read it
	// again before re-syncing the cache.
	live, err = liveEquivalent(mirror, oracle, operator)
	if err != nil {
		return err
	}
	previous := cloneBigInt(cached)
	op.setBalance(source, live)

	payloads := []payloadEvent{events.DiscrepancyResolved{
		Operator:      operator,
		Source:        string(source),
		PreviousStake: previous,
		NewStake:      cloneBigInt(live),
		Notifier:      caller,
	}}
	corrections, err := e.correctAuthorizations(tx, op)
	if err != nil {
		return err
	}
	payloads = append(payloads, corrections...)

	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncDiscrepancy(string(source))
	e.emitAll(payloads)
	return nil
}

// penalizeDiscrepancy seizes the configured penalty from the stale delegation
// and routes the notifier reward through the legacy mirror.
func (e *Engine) penalizeDiscrepancy(mirror LegacyMirror, oracle ConversionOracle, caller, operator [20]byte, params Params) error {
	if params.DiscrepancyPenalty == nil || params.DiscrepancyPenalty.Sign() == 0 {
		return nil
	}
	penalty, _, err := oracle.FromNative(params.DiscrepancyPenalty)
	if err != nil {
		return err
	}
	if penalty == nil || penalty.Sign() == 0 {
		return ErrConversionZero
	}
	return mirror.Seize(penalty, params.DiscrepancyRewardMultiplier, caller, [][20]byte{operator})
}
