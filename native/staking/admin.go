package staking

import (
	"math/big"
	"strconv"

	"stakehub/core/events"
)

// ApproveApplication marks an application as eligible to receive
// authorizations. Governance only. Re-approving a disabled application
// re-enables it.
func (e *Engine) ApproveApplication(caller, application [20]byte) error {
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	app, ok, err := tx.ApplicationGet(application)
	if err != nil {
		return err
	}
	if !ok {
		app = &Application{Address: application}
	}
	app.Approved = true
	app.Disabled = false
	if err := tx.ApplicationPut(app); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.emitAll([]payloadEvent{events.ApplicationApproved{Application: application}})
	return nil
}

// SetPanicButton assigns the address allowed to disable the application.
// Governance only.
func (e *Engine) SetPanicButton(caller, application, panicButton [20]byte) error {
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	app, err := e.loadApprovedApplication(tx, application)
	if err != nil {
		return err
	}
	app.PanicButton = panicButton
	if err := tx.ApplicationPut(app); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.emitAll([]payloadEvent{events.PanicButtonSet{Application: application, PanicButton: panicButton}})
	return nil
}

// DisableApplication stops an application from receiving new authorizations
// and from approving pending decreases. Only the application's panic button
// may call it. Existing authorizations stay in place.
func (e *Engine) DisableApplication(caller, application [20]byte) error {
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	app, err := e.loadApprovedApplication(tx, application)
	if err != nil {
		return err
	}
	if app.PanicButton == ([20]byte{}) || app.PanicButton != caller {
		return ErrUnauthorizedCaller
	}
	app.Disabled = true
	if err := tx.ApplicationPut(app); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.emitAll([]payloadEvent{events.ApplicationDisabled{Application: application, PanicButton: caller}})
	return nil
}

// SetMinimumStake updates the floor enforced on new native stakes and on
// partial unstakes. Governance only.
func (e *Engine) SetMinimumStake(caller [20]byte, amount *big.Int) error {
	return e.updateParams(caller, "minimumStake", formatParam(amount), func(p *Params) error {
		amt, err := requirePositive(amount)
		if err != nil {
			return err
		}
		p.MinimumStake = amt
		return nil
	})
}

// SetAuthorizationCeiling caps how many applications a single operator may be
// authorized to. Zero removes the cap. Governance only.
func (e *Engine) SetAuthorizationCeiling(caller [20]byte, ceiling uint64) error {
	return e.updateParams(caller, "authorizationCeiling", formatUint(ceiling), func(p *Params) error {
		p.AuthorizationCeiling = ceiling
		return nil
	})
}

// SetNotificationReward updates the per-operator base reward paid out of the
// notifier treasury during seize. Governance only.
func (e *Engine) SetNotificationReward(caller [20]byte, amount *big.Int) error {
	return e.updateParams(caller, "notificationReward", formatParam(amount), func(p *Params) error {
		if amount == nil || amount.Sign() < 0 {
			return ErrInvalidAmount
		}
		p.NotificationReward = new(big.Int).Set(amount)
		return nil
	})
}

// SetDiscrepancyPenalty updates the penalty seized from stale legacy
// delegations, in the native denomination. Governance only.
func (e *Engine) SetDiscrepancyPenalty(caller [20]byte, amount *big.Int, rewardMultiplier uint64) error {
	if rewardMultiplier == 0 || rewardMultiplier > 100 {
		return ErrInvalidMultiplier
	}
	return e.updateParams(caller, "discrepancyPenalty", formatParam(amount), func(p *Params) error {
		if amount == nil || amount.Sign() < 0 {
			return ErrInvalidAmount
		}
		p.DiscrepancyPenalty = new(big.Int).Set(amount)
		p.DiscrepancyRewardMultiplier = rewardMultiplier
		return nil
	})
}

func (e *Engine) updateParams(caller [20]byte, name, value string, mutate func(*Params) error) error {
	if err := e.requireGovernance(caller); err != nil {
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
	if err := mutate(&params); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	if err := tx.ParamsPut(params); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.emitAll([]payloadEvent{events.ParamUpdated{Name: name, Value: value}})
	return nil
}

// TopUpNotifiersTreasury pulls tokens from the caller into the module account
// and credits the notifier treasury. Callable by anyone.
func (e *Engine) TopUpNotifiersTreasury(caller [20]byte, amount *big.Int) error {
	amt, err := requirePositive(amount)
	if err != nil {
		return err
	}
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := e.token(tx).TransferFrom(caller, caller, e.moduleAddr, amt); err != nil {
		return err
	}
	treasury, err := tx.TreasuryBalance()
	if err != nil {
		return err
	}
	newTreasury := new(big.Int).Add(treasury, amt)
	if err := tx.TreasurySet(newTreasury); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.SetTreasuryBalance(float64(newTreasury.Int64()))
	e.emitAll([]payloadEvent{events.TreasuryToppedUp{From: caller, Amount: amt, Treasury: newTreasury}})
	return nil
}

// ApplicationInfo returns a copy of the stored application record.
func (e *Engine) ApplicationInfo(application [20]byte) (*Application, error) {
	var out *Application
	err := e.view(func(tx Tx) error {
		app, ok, err := tx.ApplicationGet(application)
		if err != nil {
			return err
		}
		if !ok {
			return ErrApplicationNotApproved
		}
		copied := *app
		out = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CurrentParams returns the effective parameter set, defaults included.
func (e *Engine) CurrentParams() (Params, error) {
	var out Params
	err := e.view(func(tx Tx) error {
		params, err := e.params(tx)
		if err != nil {
			return err
		}
		out = params.normalized()
		return nil
	})
	return out, err
}

func (e *Engine) requireGovernance(caller [20]byte) error {
	if e.governance == ([20]byte{}) || caller != e.governance {
		return ErrUnauthorizedCaller
	}
	return nil
}

func formatParam(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
