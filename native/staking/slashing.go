package staking

import (
	"fmt"
	"math/big"

	"stakehub/core/events"
)

// Slash enqueues one slashing event per operator on behalf of the calling
// application. Each operator must have at least amount authorized to the
// caller.
func (e *Engine) Slash(application [20]byte, amount *big.Int, operators [][20]byte) error {
	return e.enqueueSlash(application, amount, 0, [20]byte{}, operators)
}

// Seize enqueues one slashing event per operator and immediately pays the
// named notifier from the notifier treasury, scaled by rewardMultiplier
// (a percentage in (0,100]).
func (e *Engine) Seize(application [20]byte, amount *big.Int, rewardMultiplier uint64, notifier [20]byte, operators [][20]byte) error {
	if rewardMultiplier == 0 || rewardMultiplier > 100 {
		return ErrInvalidMultiplier
	}
	if notifier == ([20]byte{}) {
		return ErrInvalidAmount
	}
	return e.enqueueSlash(application, amount, rewardMultiplier, notifier, operators)
}

func (e *Engine) enqueueSlash(application [20]byte, amount *big.Int, rewardMultiplier uint64, notifier [20]byte, operators [][20]byte) error {
	amt, err := requirePositive(amount)
	if err != nil {
		return err
	}
	if len(operators) == 0 {
		return ErrInvalidAmount
	}
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if _, err := e.loadApprovedApplication(tx, application); err != nil {
		return err
	}
	_, tail, err := tx.QueueBounds()
	if err != nil {
		return err
	}
	payloads := make([]payloadEvent, 0, len(operators)+1)
	for _, operator := range operators {
		op, err := e.loadOperator(tx, operator)
		if err != nil {
			return err
		}
		auth := op.authorization(application)
		if auth == nil || auth.Authorized == nil || auth.Authorized.Cmp(amt) < 0 {
			return ErrInsufficientStake
		}
		if err := tx.QueueAppend(&SlashingEvent{Operator: operator, Amount: new(big.Int).Set(amt)}); err != nil {
			return err
		}
		payloads = append(payloads, events.SlashEnqueued{
			Application: application,
			Operator:    operator,
			Amount:      amt,
			QueueIndex:  tail,
		})
		tail++
	}
	if notifier != ([20]byte{}) {
		reward, treasury, err := e.payNotifier(tx, notifier, rewardMultiplier, uint64(len(operators)))
		if err != nil {
			return err
		}
		if reward.Sign() > 0 {
			payloads = append(payloads, events.NotifierRewarded{Notifier: notifier, Amount: reward})
			e.telemetry.SetTreasuryBalance(float64(treasury.Int64()))
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncSlashEnqueued(len(operators))
	e.emitAll(payloads)
	return nil
}

// payNotifier transfers min(n * notificationReward * multiplier/100, treasury)
// to the notifier and debits the treasury.
func (e *Engine) payNotifier(tx Tx, notifier [20]byte, rewardMultiplier, n uint64) (*big.Int, *big.Int, error) {
	params, err := e.params(tx)
	if err != nil {
		return nil, nil, err
	}
	treasury, err := tx.TreasuryBalance()
	if err != nil {
		return nil, nil, err
	}
	reward := new(big.Int).Mul(params.NotificationReward, new(big.Int).SetUint64(n))
	reward.Mul(reward, new(big.Int).SetUint64(rewardMultiplier))
	reward.Div(reward, big.NewInt(100))
	reward = minBigInt(reward, treasury)
	if reward.Sign() == 0 {
		return big.NewInt(0), treasury, nil
	}
	newTreasury := new(big.Int).Sub(treasury, reward)
	if err := tx.TreasurySet(newTreasury); err != nil {
		return nil, nil, err
	}
	if err := e.token(tx).Transfer(e.moduleAddr, notifier, reward); err != nil {
		return nil, nil, err
	}
	return reward, newTreasury, nil
}

// ProcessSlashing drains up to count entries from the slashing queue, starting
// at the shared index. Callable by anyone; the caller earns a fixed percentage
// of the native stake burned in the batch.
func (e *Engine) ProcessSlashing(caller [20]byte, count uint64) error {
	if count == 0 {
		return ErrInvalidAmount
	}
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	head, tail, err := tx.QueueBounds()
	if err != nil {
		return err
	}
	if head >= tail {
		return ErrNothingToProcess
	}
	if tail-head < count {
		count = tail - head
	}
	nativeBurned := big.NewInt(0)
	payloads := make([]payloadEvent, 0, count+1)
	for i := uint64(0); i < count; i++ {
		index := head + i
		entry, ok, err := tx.QueueEntry(index)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("staking: missing queue entry %d", index)
		}
		slashed, extra, err := e.processEntry(tx, entry, index, caller)
		if err != nil {
			return err
		}
		nativeBurned.Add(nativeBurned, slashed)
		payloads = append(payloads, extra...)
	}
	if err := tx.QueueSetHead(head + count); err != nil {
		return err
	}
	reward := new(big.Int).Mul(nativeBurned, big.NewInt(slashingRewardPercent))
	reward.Div(reward, big.NewInt(100))
	treasury, err := tx.TreasuryBalance()
	if err != nil {
		return err
	}
	newTreasury := new(big.Int).Add(treasury, new(big.Int).Sub(nativeBurned, reward))
	if err := tx.TreasurySet(newTreasury); err != nil {
		return err
	}
	if reward.Sign() > 0 {
		if err := e.token(tx).Transfer(e.moduleAddr, caller, reward); err != nil {
			return err
		}
	}
	payloads = append(payloads, events.SlashingDrained{
		Caller:    caller,
		Processed: count,
		Reward:    reward,
		Treasury:  newTreasury,
	})
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncSlashProcessed(int(count))
	e.telemetry.SetQueueDepth(float64(tail - head - count))
	e.telemetry.SetTreasuryBalance(float64(newTreasury.Int64()))
	e.emitAll(payloads)
	return nil
}

// processEntry apportions one queue entry across the operator's stake sources
// in fixed priority order: native first, then legacy-A, then legacy-B. It
// returns the native amount burned.
func (e *Engine) processEntry(tx Tx, entry *SlashingEvent, index uint64, caller [20]byte) (*big.Int, []payloadEvent, error) {
	op, err := e.loadOperator(tx, entry.Operator)
	if err != nil {
		return nil, nil, err
	}
	remaining := cloneBigInt(entry.Amount)

	nativeSlash := minBigInt(remaining, op.balance(SourceNative))
	if nativeSlash.Sign() > 0 {
		op.NativeStake = new(big.Int).Sub(op.NativeStake, nativeSlash)
		remaining.Sub(remaining, nativeSlash)
	}

	legacyASlash := big.NewInt(0)
	if remaining.Sign() > 0 && op.balance(SourceLegacyA).Sign() > 0 {
		legacyASlash, err = e.slashLegacy(op, SourceLegacyA, remaining, caller)
		if err != nil {
			return nil, nil, err
		}
		remaining.Sub(remaining, legacyASlash)
	}

	legacyBSlash := big.NewInt(0)
	if remaining.Sign() > 0 && op.balance(SourceLegacyB).Sign() > 0 {
		legacyBSlash, err = e.slashLegacy(op, SourceLegacyB, remaining, caller)
		if err != nil {
			return nil, nil, err
		}
		remaining.Sub(remaining, legacyBSlash)
	}

	payloads := []payloadEvent{events.SlashProcessed{
		Operator:     entry.Operator,
		QueueIndex:   index,
		Requested:    cloneBigInt(entry.Amount),
		NativeSlash:  nativeSlash,
		LegacyASlash: legacyASlash,
		LegacyBSlash: legacyBSlash,
	}}

	corrections, err := e.correctAuthorizations(tx, op)
	if err != nil {
		return nil, nil, err
	}
	payloads = append(payloads, corrections...)

	if err := tx.OperatorPut(op); err != nil {
		return nil, nil, err
	}
	return nativeSlash, payloads, nil
}

// slashLegacy burns up to remaining (native denomination) from the cached
// legacy source, seizing the converted amount from the live mirror.
func (e *Engine) slashLegacy(op *Operator, source StakeSource, remaining *big.Int, notifier [20]byte) (*big.Int, error) {
	mirror, oracle, err := e.legacy(source)
	if err != nil {
		return nil, err
	}
	target := minBigInt(remaining, op.balance(source))
	legacyAmount, remainder, err := oracle.FromNative(target)
	if err != nil {
		return nil, err
	}
	if legacyAmount == nil || legacyAmount.Sign() == 0 {
		return nil, ErrConversionZero
	}
	// The remainder cannot be expressed in the legacy denomination and
	// stays staked.
	slashed := new(big.Int).Sub(target, remainder)
	if slashed.Sign() <= 0 {
		return nil, ErrConversionZero
	}
	if err := mirror.Seize(legacyAmount, 100, notifier, [][20]byte{op.Address}); err != nil {
		return nil, err
	}
	op.balance(source).Sub(op.balance(source), slashed)
	return slashed, nil
}

// correctAuthorizations clamps every application's authorization down to the
// operator's remaining total stake, notifying each affected application of the
// involuntary decrease. Shared by the slashing and discrepancy paths.
func (e *Engine) correctAuthorizations(tx Tx, op *Operator) ([]payloadEvent, error) {
	total := op.TotalStake()
	payloads := make([]payloadEvent, 0)
	for i := 0; i < len(op.Authorizations); {
		auth := &op.Authorizations[i]
		if auth.Authorized == nil || auth.Authorized.Cmp(total) <= 0 {
			i++
			continue
		}
		delta := new(big.Int).Sub(auth.Authorized, total)
		application := auth.Application
		if hook, ok := e.hook(application); ok {
			if err := hook.InvoluntaryAuthorizationDecrease(op.Address, delta); err != nil {
				return nil, fmt.Errorf("staking: involuntary decrease rejected: %w", err)
			}
		}
		auth.Authorized = new(big.Int).Set(total)
		if auth.Deauthorizing != nil && auth.Deauthorizing.Cmp(auth.Authorized) > 0 {
			auth.Deauthorizing = new(big.Int).Set(auth.Authorized)
		}
		payloads = append(payloads, events.AuthorizationInvoluntaryDecreased{
			Operator:    op.Address,
			Application: application,
			Amount:      delta,
			Authorized:  new(big.Int).Set(total),
		})
		e.telemetry.IncAuthorizationChange("involuntaryDecrease")
		if auth.Authorized.Sign() == 0 {
			op.removeAuthorization(application)
			continue // slot i now holds the swapped-in entry
		}
		i++
	}
	return payloads, nil
}

// SlashingQueue reports the index of the next unprocessed entry and the total
// number of entries ever enqueued.
func (e *Engine) SlashingQueue() (head, tail uint64, err error) {
	err = e.view(func(tx Tx) error {
		var inner error
		head, tail, inner = tx.QueueBounds()
		return inner
	})
	return head, tail, err
}

// PendingSlashes returns the unprocessed queue entries in FIFO order.
func (e *Engine) PendingSlashes() ([]*SlashingEvent, error) {
	var out []*SlashingEvent
	err := e.view(func(tx Tx) error {
		head, tail, err := tx.QueueBounds()
		if err != nil {
			return err
		}
		for i := head; i < tail; i++ {
			entry, ok, err := tx.QueueEntry(i)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("staking: missing queue entry %d", i)
			}
			out = append(out, &SlashingEvent{Operator: entry.Operator, Amount: cloneBigInt(entry.Amount)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TreasuryBalance reports the current notifier treasury balance.
func (e *Engine) TreasuryBalance() (*big.Int, error) {
	var out *big.Int
	err := e.view(func(tx Tx) error {
		balance, err := tx.TreasuryBalance()
		if err != nil {
			return err
		}
		out = cloneBigInt(balance)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
