package staking

import (
	"fmt"
	"math/big"

	"stakehub/core/events"
)

// IncreaseAuthorization grants amount of the operator's stake to the
// application. The caller must be the operator's authorizer; the application
// must be approved and enabled. The application is notified synchronously and
// the grant is only durable when the notification succeeds.
func (e *Engine) IncreaseAuthorization(caller, operator, application [20]byte, amount *big.Int) error {
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
	if caller != op.Authorizer {
		return ErrUnauthorizedCaller
	}
	if _, err := e.loadApprovedApplication(tx, application); err != nil {
		return err
	}
	auth := op.authorization(application)
	if auth == nil {
		params, err := e.params(tx)
		if err != nil {
			return err
		}
		if params.AuthorizationCeiling > 0 && uint64(len(op.Authorizations)) >= params.AuthorizationCeiling {
			return ErrTooManyApplications
		}
		op.Authorizations = append(op.Authorizations, AppAuthorization{
			Application:   application,
			Authorized:    big.NewInt(0),
			Deauthorizing: big.NewInt(0),
		})
		auth = &op.Authorizations[len(op.Authorizations)-1]
	}
	available := availableToAuthorize(op, application)
	if available.Cmp(amt) < 0 {
		return ErrInsufficientStake
	}
	auth.Authorized = new(big.Int).Add(cloneBigInt(auth.Authorized), amt)
	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if hook, ok := e.hook(application); ok {
		if err := hook.AuthorizationIncreased(operator, amt); err != nil {
			return fmt.Errorf("staking: authorization increase rejected: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncAuthorizationChange("increase")
	e.emitAll([]payloadEvent{events.AuthorizationIncreased{
		Operator:    operator,
		Application: application,
		Amount:      amt,
		Authorized:  cloneBigInt(auth.Authorized),
	}})
	return nil
}

// RequestAuthorizationDecrease files a decrease request for the pair,
// overwriting any earlier pending request. The application is notified
// synchronously; the decrease only takes effect once the application approves
// it.
func (e *Engine) RequestAuthorizationDecrease(caller, operator, application [20]byte, amount *big.Int) error {
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
	if caller != op.Authorizer {
		return ErrUnauthorizedCaller
	}
	if err := e.requestDecrease(tx, op, application, amt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncAuthorizationChange("decreaseRequested")
	e.emitAll([]payloadEvent{events.AuthorizationDecreaseRequested{
		Operator:    operator,
		Application: application,
		Amount:      amt,
	}})
	return nil
}

// RequestAuthorizationDecreaseAll files a decrease request for the full
// authorized amount of one application.
func (e *Engine) RequestAuthorizationDecreaseAll(caller, operator, application [20]byte) error {
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	op, err := e.loadOperator(tx, operator)
	if err != nil {
		return err
	}
	if caller != op.Authorizer {
		return ErrUnauthorizedCaller
	}
	auth := op.authorization(application)
	if auth == nil || auth.Authorized == nil || auth.Authorized.Sign() == 0 {
		return ErrNothingToDecrease
	}
	amount := cloneBigInt(auth.Authorized)
	if err := e.requestDecrease(tx, op, application, amount); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncAuthorizationChange("decreaseRequested")
	e.emitAll([]payloadEvent{events.AuthorizationDecreaseRequested{
		Operator:    operator,
		Application: application,
		Amount:      amount,
	}})
	return nil
}

// RequestAuthorizationDecreaseEverywhere files a full decrease request for
// every application the operator has authorized. Fails when the operator has
// no authorizations at all.
func (e *Engine) RequestAuthorizationDecreaseEverywhere(caller, operator [20]byte) error {
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	op, err := e.loadOperator(tx, operator)
	if err != nil {
		return err
	}
	if caller != op.Authorizer {
		return ErrUnauthorizedCaller
	}
	if len(op.Authorizations) == 0 {
		return ErrNothingToDecrease
	}
	payloads := make([]payloadEvent, 0, len(op.Authorizations))
	for i := range op.Authorizations {
		application := op.Authorizations[i].Application
		amount := cloneBigInt(op.Authorizations[i].Authorized)
		if amount.Sign() == 0 {
			continue
		}
		if err := e.requestDecrease(tx, op, application, amount); err != nil {
			return err
		}
		payloads = append(payloads, events.AuthorizationDecreaseRequested{
			Operator:    operator,
			Application: application,
			Amount:      amount,
		})
	}
	if len(payloads) == 0 {
		return ErrNothingToDecrease
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncAuthorizationChange("decreaseRequested")
	e.emitAll(payloads)
	return nil
}

// requestDecrease records the pending amount on the pair and notifies the
// application. The latest request always replaces the previous one.
func (e *Engine) requestDecrease(tx Tx, op *Operator, application [20]byte, amount *big.Int) error {
	if _, err := e.loadApprovedApplication(tx, application); err != nil {
		return err
	}
	auth := op.authorization(application)
	if auth == nil || auth.Authorized == nil || auth.Authorized.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}
	auth.Deauthorizing = new(big.Int).Set(amount)
	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if hook, ok := e.hook(application); ok {
		if err := hook.AuthorizationDecreaseRequested(op.Address, amount); err != nil {
			return fmt.Errorf("staking: decrease request rejected: %w", err)
		}
	}
	return nil
}

// ApproveAuthorizationDecrease finalises the pending decrease for the calling
// application. When the authorization drops to zero the application is removed
// from the operator's authorized list.
func (e *Engine) ApproveAuthorizationDecrease(application, operator [20]byte) error {
	tx, err := e.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	app, ok, err := tx.ApplicationGet(application)
	if err != nil {
		return err
	}
	if !ok || !app.Approved {
		return ErrApplicationNotApproved
	}
	if app.Disabled {
		return ErrApplicationDisabled
	}
	op, err := e.loadOperator(tx, operator)
	if err != nil {
		return err
	}
	auth := op.authorization(application)
	if auth == nil || auth.Deauthorizing == nil || auth.Deauthorizing.Sign() == 0 {
		return ErrNothingToDecrease
	}
	amount := cloneBigInt(auth.Deauthorizing)
	newAuthorized := new(big.Int).Sub(cloneBigInt(auth.Authorized), amount)
	auth.Authorized = newAuthorized
	auth.Deauthorizing = big.NewInt(0)
	if newAuthorized.Sign() == 0 {
		op.removeAuthorization(application)
	}
	if err := tx.OperatorPut(op); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.telemetry.IncAuthorizationChange("decreaseApproved")
	e.emitAll([]payloadEvent{events.AuthorizationDecreaseApproved{
		Operator:    operator,
		Application: application,
		Amount:      amount,
		Authorized:  newAuthorized,
	}})
	return nil
}

// AvailableToAuthorize reports the stake the operator can still commit to the
// given application.
func (e *Engine) AvailableToAuthorize(operator, application [20]byte) (*big.Int, error) {
	var out *big.Int
	err := e.view(func(tx Tx) error {
		op, err := e.loadOperator(tx, operator)
		if err != nil {
			return err
		}
		out = availableToAuthorize(op, application)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AuthorizedAmount reports the amount currently authorized for the pair.
func (e *Engine) AuthorizedAmount(operator, application [20]byte) (*big.Int, error) {
	var out *big.Int
	err := e.view(func(tx Tx) error {
		op, err := e.loadOperator(tx, operator)
		if err != nil {
			return err
		}
		if auth := op.authorization(application); auth != nil {
			out = cloneBigInt(auth.Authorized)
		} else {
			out = big.NewInt(0)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// availableToAuthorize is total stake minus the amount already authorized to
// this application. Each application may be backed by the full stake, so other
// applications' authorizations do not reduce the headroom.
func availableToAuthorize(op *Operator, application [20]byte) *big.Int {
	available := op.TotalStake()
	if auth := op.authorization(application); auth != nil && auth.Authorized != nil {
		available.Sub(available, auth.Authorized)
	}
	if available.Sign() < 0 {
		return big.NewInt(0)
	}
	return available
}

// EligibleStake reports the stake the application can currently rely on: the
// authorized amount, or zero when the application is not approved, disabled,
// or the pair does not exist. Unknown operators yield zero rather than an
// error so applications can poll without special-casing.
func (e *Engine) EligibleStake(operator, application [20]byte) (*big.Int, error) {
	out := big.NewInt(0)
	err := e.view(func(tx Tx) error {
		app, ok, err := tx.ApplicationGet(application)
		if err != nil {
			return err
		}
		if !ok || !app.Approved || app.Disabled {
			return nil
		}
		op, ok, err := tx.OperatorGet(operator)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if auth := op.authorization(application); auth != nil {
			out = cloneBigInt(auth.Authorized)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AuthorizedApplications lists the applications holding a nonzero
// authorization against the operator.
func (e *Engine) AuthorizedApplications(operator [20]byte) ([][20]byte, error) {
	var out [][20]byte
	err := e.view(func(tx Tx) error {
		op, err := e.loadOperator(tx, operator)
		if err != nil {
			return err
		}
		for _, auth := range op.Authorizations {
			if auth.Authorized != nil && auth.Authorized.Sign() > 0 {
				out = append(out, auth.Application)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MaxAuthorization reports the largest single-application authorized amount.
func (e *Engine) MaxAuthorization(operator [20]byte) (*big.Int, error) {
	var out *big.Int
	err := e.view(func(tx Tx) error {
		op, err := e.loadOperator(tx, operator)
		if err != nil {
			return err
		}
		out = op.maxAuthorization()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
