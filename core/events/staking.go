package events

import (
	"math/big"
	"strconv"

	"stakehub/core/types"
	"stakehub/crypto"
)

const (
	// TypeOperatorStaked is emitted when an operator identity is claimed via
	// any of the three origination paths.
	TypeOperatorStaked = "staking.staked"
	// TypeStakeToppedUp captures an increase of one stake source.
	TypeStakeToppedUp = "staking.toppedUp"
	// TypeStakeWithdrawn captures a voluntary decrease of one stake source.
	TypeStakeWithdrawn = "staking.unstaked"
	// TypeAuthorizationIncreased is emitted when an authorizer grants stake
	// to an application.
	TypeAuthorizationIncreased = "staking.authorizationIncreased"
	// TypeAuthorizationDecreaseRequested is emitted when an authorizer files
	// (or overwrites) a pending decrease.
	TypeAuthorizationDecreaseRequested = "staking.authorizationDecreaseRequested"
	// TypeAuthorizationDecreaseApproved is emitted when the application
	// confirms a pending decrease.
	TypeAuthorizationDecreaseApproved = "staking.authorizationDecreaseApproved"
	// TypeAuthorizationInvoluntaryDecreased is emitted when slashing or a
	// discrepancy clamps an authorization down to the remaining stake.
	TypeAuthorizationInvoluntaryDecreased = "staking.authorizationInvoluntaryDecreased"
	// TypeSlashEnqueued is emitted per operator when an application files a
	// slash or seize request.
	TypeSlashEnqueued = "staking.slashEnqueued"
	// TypeNotifierRewarded is emitted when a seize pays the named notifier
	// from the treasury.
	TypeNotifierRewarded = "staking.notifierRewarded"
	// TypeSlashProcessed is emitted per drained queue entry.
	TypeSlashProcessed = "staking.slashProcessed"
	// TypeSlashingDrained summarises one processSlashing batch.
	TypeSlashingDrained = "staking.slashingDrained"
	// TypeDiscrepancyResolved is emitted when a legacy stake cache is
	// re-synchronised against its mirror.
	TypeDiscrepancyResolved = "staking.discrepancyResolved"
	// TypeApplicationApproved is emitted when governance approves an
	// application.
	TypeApplicationApproved = "staking.applicationApproved"
	// TypeApplicationDisabled is emitted when a panic button disables an
	// application.
	TypeApplicationDisabled = "staking.applicationDisabled"
	// TypePanicButtonSet is emitted when governance assigns a panic button.
	TypePanicButtonSet = "staking.panicButtonSet"
	// TypeParamUpdated is emitted for every governance parameter change.
	TypeParamUpdated = "staking.paramUpdated"
	// TypeTreasuryToppedUp is emitted when the notifier treasury is funded.
	TypeTreasuryToppedUp = "staking.treasuryToppedUp"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func zeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}

func operatorAttr(attrs map[string]string, operator [20]byte) {
	attrs["operator"] = crypto.MustNewAddress(crypto.StakePrefix, operator[:]).String()
}

func applicationAttr(attrs map[string]string, app [20]byte) {
	attrs["application"] = crypto.MustNewAddress(crypto.AppPrefix, app[:]).String()
}

// OperatorStaked captures the creation of an operator record.
type OperatorStaked struct {
	Operator    [20]byte
	Owner       [20]byte
	Beneficiary [20]byte
	Authorizer  [20]byte
	Source      string
	Amount      *big.Int
}

// EventType satisfies the Event interface.
func (OperatorStaked) EventType() string { return TypeOperatorStaked }

// Event converts the structured payload into a broadcastable event.
func (e OperatorStaked) Event() *types.Event {
	attrs := map[string]string{
		"source": e.Source,
		"amount": formatAmount(e.Amount),
	}
	operatorAttr(attrs, e.Operator)
	attrs["owner"] = crypto.MustNewAddress(crypto.StakePrefix, e.Owner[:]).String()
	if !zeroAddress(e.Beneficiary) {
		attrs["beneficiary"] = crypto.MustNewAddress(crypto.StakePrefix, e.Beneficiary[:]).String()
	}
	if !zeroAddress(e.Authorizer) {
		attrs["authorizer"] = crypto.MustNewAddress(crypto.StakePrefix, e.Authorizer[:]).String()
	}
	return &types.Event{Type: TypeOperatorStaked, Attributes: attrs}
}

// StakeToppedUp captures an increase of a single stake source.
type StakeToppedUp struct {
	Operator [20]byte
	Source   string
	Amount   *big.Int
	NewTotal *big.Int
}

// EventType satisfies the Event interface.
func (StakeToppedUp) EventType() string { return TypeStakeToppedUp }

// Event converts the structured payload into a broadcastable event.
func (e StakeToppedUp) Event() *types.Event {
	attrs := map[string]string{
		"source":   e.Source,
		"amount":   formatAmount(e.Amount),
		"newTotal": formatAmount(e.NewTotal),
	}
	operatorAttr(attrs, e.Operator)
	return &types.Event{Type: TypeStakeToppedUp, Attributes: attrs}
}

// StakeWithdrawn captures a voluntary decrease of a single stake source.
type StakeWithdrawn struct {
	Operator [20]byte
	Source   string
	Amount   *big.Int
	NewTotal *big.Int
}

// EventType satisfies the Event interface.
func (StakeWithdrawn) EventType() string { return TypeStakeWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e StakeWithdrawn) Event() *types.Event {
	attrs := map[string]string{
		"source":   e.Source,
		"amount":   formatAmount(e.Amount),
		"newTotal": formatAmount(e.NewTotal),
	}
	operatorAttr(attrs, e.Operator)
	return &types.Event{Type: TypeStakeWithdrawn, Attributes: attrs}
}

// AuthorizationIncreased captures a granted authorization delta.
type AuthorizationIncreased struct {
	Operator    [20]byte
	Application [20]byte
	Amount      *big.Int
	Authorized  *big.Int
}

// EventType satisfies the Event interface.
func (AuthorizationIncreased) EventType() string { return TypeAuthorizationIncreased }

// Event converts the structured payload into a broadcastable event.
func (e AuthorizationIncreased) Event() *types.Event {
	attrs := map[string]string{
		"amount":     formatAmount(e.Amount),
		"authorized": formatAmount(e.Authorized),
	}
	operatorAttr(attrs, e.Operator)
	applicationAttr(attrs, e.Application)
	return &types.Event{Type: TypeAuthorizationIncreased, Attributes: attrs}
}

// AuthorizationDecreaseRequested captures a pending decrease request.
type AuthorizationDecreaseRequested struct {
	Operator    [20]byte
	Application [20]byte
	Amount      *big.Int
}

// EventType satisfies the Event interface.
func (AuthorizationDecreaseRequested) EventType() string { return TypeAuthorizationDecreaseRequested }

// Event converts the structured payload into a broadcastable event.
func (e AuthorizationDecreaseRequested) Event() *types.Event {
	attrs := map[string]string{
		"amount": formatAmount(e.Amount),
	}
	operatorAttr(attrs, e.Operator)
	applicationAttr(attrs, e.Application)
	return &types.Event{Type: TypeAuthorizationDecreaseRequested, Attributes: attrs}
}

// AuthorizationDecreaseApproved captures a confirmed decrease.
type AuthorizationDecreaseApproved struct {
	Operator    [20]byte
	Application [20]byte
	Amount      *big.Int
	Authorized  *big.Int
}

// EventType satisfies the Event interface.
func (AuthorizationDecreaseApproved) EventType() string { return TypeAuthorizationDecreaseApproved }

// Event converts the structured payload into a broadcastable event.
func (e AuthorizationDecreaseApproved) Event() *types.Event {
	attrs := map[string]string{
		"amount":     formatAmount(e.Amount),
		"authorized": formatAmount(e.Authorized),
	}
	operatorAttr(attrs, e.Operator)
	applicationAttr(attrs, e.Application)
	return &types.Event{Type: TypeAuthorizationDecreaseApproved, Attributes: attrs}
}

// AuthorizationInvoluntaryDecreased captures a clamp applied after slashing or
// a discrepancy correction.
type AuthorizationInvoluntaryDecreased struct {
	Operator    [20]byte
	Application [20]byte
	Amount      *big.Int
	Authorized  *big.Int
}

// EventType satisfies the Event interface.
func (AuthorizationInvoluntaryDecreased) EventType() string {
	return TypeAuthorizationInvoluntaryDecreased
}

// Event converts the structured payload into a broadcastable event.
func (e AuthorizationInvoluntaryDecreased) Event() *types.Event {
	attrs := map[string]string{
		"amount":     formatAmount(e.Amount),
		"authorized": formatAmount(e.Authorized),
	}
	operatorAttr(attrs, e.Operator)
	applicationAttr(attrs, e.Application)
	return &types.Event{Type: TypeAuthorizationInvoluntaryDecreased, Attributes: attrs}
}

// SlashEnqueued captures a slashing queue append.
type SlashEnqueued struct {
	Application [20]byte
	Operator    [20]byte
	Amount      *big.Int
	QueueIndex  uint64
}

// EventType satisfies the Event interface.
func (SlashEnqueued) EventType() string { return TypeSlashEnqueued }

// Event converts the structured payload into a broadcastable event.
func (e SlashEnqueued) Event() *types.Event {
	attrs := map[string]string{
		"amount":     formatAmount(e.Amount),
		"queueIndex": strconv.FormatUint(e.QueueIndex, 10),
	}
	operatorAttr(attrs, e.Operator)
	applicationAttr(attrs, e.Application)
	return &types.Event{Type: TypeSlashEnqueued, Attributes: attrs}
}

// NotifierRewarded captures an immediate notifier payout during seize.
type NotifierRewarded struct {
	Notifier [20]byte
	Amount   *big.Int
}

// EventType satisfies the Event interface.
func (NotifierRewarded) EventType() string { return TypeNotifierRewarded }

// Event converts the structured payload into a broadcastable event.
func (e NotifierRewarded) Event() *types.Event {
	attrs := map[string]string{
		"notifier": crypto.MustNewAddress(crypto.StakePrefix, e.Notifier[:]).String(),
		"amount":   formatAmount(e.Amount),
	}
	return &types.Event{Type: TypeNotifierRewarded, Attributes: attrs}
}

// SlashProcessed captures the apportionment applied for one queue entry.
type SlashProcessed struct {
	Operator     [20]byte
	QueueIndex   uint64
	Requested    *big.Int
	NativeSlash  *big.Int
	LegacyASlash *big.Int
	LegacyBSlash *big.Int
}

// EventType satisfies the Event interface.
func (SlashProcessed) EventType() string { return TypeSlashProcessed }

// Event converts the structured payload into a broadcastable event.
func (e SlashProcessed) Event() *types.Event {
	attrs := map[string]string{
		"queueIndex":   strconv.FormatUint(e.QueueIndex, 10),
		"requested":    formatAmount(e.Requested),
		"nativeSlash":  formatAmount(e.NativeSlash),
		"legacyASlash": formatAmount(e.LegacyASlash),
		"legacyBSlash": formatAmount(e.LegacyBSlash),
	}
	operatorAttr(attrs, e.Operator)
	return &types.Event{Type: TypeSlashProcessed, Attributes: attrs}
}

// SlashingDrained summarises one processing batch.
type SlashingDrained struct {
	Caller    [20]byte
	Processed uint64
	Reward    *big.Int
	Treasury  *big.Int
}

// EventType satisfies the Event interface.
func (SlashingDrained) EventType() string { return TypeSlashingDrained }

// Event converts the structured payload into a broadcastable event.
func (e SlashingDrained) Event() *types.Event {
	attrs := map[string]string{
		"caller":    crypto.MustNewAddress(crypto.StakePrefix, e.Caller[:]).String(),
		"processed": strconv.FormatUint(e.Processed, 10),
		"reward":    formatAmount(e.Reward),
		"treasury":  formatAmount(e.Treasury),
	}
	return &types.Event{Type: TypeSlashingDrained, Attributes: attrs}
}

// DiscrepancyResolved captures a legacy cache re-synchronisation.
type DiscrepancyResolved struct {
	Operator      [20]byte
	Source        string
	PreviousStake *big.Int
	NewStake      *big.Int
	Notifier      [20]byte
}

// EventType satisfies the Event interface.
func (DiscrepancyResolved) EventType() string { return TypeDiscrepancyResolved }

// Event converts the structured payload into a broadcastable event.
func (e DiscrepancyResolved) Event() *types.Event {
	attrs := map[string]string{
		"source":        e.Source,
		"previousStake": formatAmount(e.PreviousStake),
		"newStake":      formatAmount(e.NewStake),
		"notifier":      crypto.MustNewAddress(crypto.StakePrefix, e.Notifier[:]).String(),
	}
	operatorAttr(attrs, e.Operator)
	return &types.Event{Type: TypeDiscrepancyResolved, Attributes: attrs}
}

// ApplicationApproved captures a governance approval.
type ApplicationApproved struct {
	Application [20]byte
}

// EventType satisfies the Event interface.
func (ApplicationApproved) EventType() string { return TypeApplicationApproved }

// Event converts the structured payload into a broadcastable event.
func (e ApplicationApproved) Event() *types.Event {
	attrs := map[string]string{}
	applicationAttr(attrs, e.Application)
	return &types.Event{Type: TypeApplicationApproved, Attributes: attrs}
}

// ApplicationDisabled captures a panic-button press.
type ApplicationDisabled struct {
	Application [20]byte
	PanicButton [20]byte
}

// EventType satisfies the Event interface.
func (ApplicationDisabled) EventType() string { return TypeApplicationDisabled }

// Event converts the structured payload into a broadcastable event.
func (e ApplicationDisabled) Event() *types.Event {
	attrs := map[string]string{
		"panicButton": crypto.MustNewAddress(crypto.StakePrefix, e.PanicButton[:]).String(),
	}
	applicationAttr(attrs, e.Application)
	return &types.Event{Type: TypeApplicationDisabled, Attributes: attrs}
}

// PanicButtonSet captures a governance panic-button assignment.
type PanicButtonSet struct {
	Application [20]byte
	PanicButton [20]byte
}

// EventType satisfies the Event interface.
func (PanicButtonSet) EventType() string { return TypePanicButtonSet }

// Event converts the structured payload into a broadcastable event.
func (e PanicButtonSet) Event() *types.Event {
	attrs := map[string]string{
		"panicButton": crypto.MustNewAddress(crypto.StakePrefix, e.PanicButton[:]).String(),
	}
	applicationAttr(attrs, e.Application)
	return &types.Event{Type: TypePanicButtonSet, Attributes: attrs}
}

// ParamUpdated captures a governance parameter change.
type ParamUpdated struct {
	Name  string
	Value string
}

// EventType satisfies the Event interface.
func (ParamUpdated) EventType() string { return TypeParamUpdated }

// Event converts the structured payload into a broadcastable event.
func (e ParamUpdated) Event() *types.Event {
	return &types.Event{Type: TypeParamUpdated, Attributes: map[string]string{
		"name":  e.Name,
		"value": e.Value,
	}}
}

// TreasuryToppedUp captures a notifier treasury funding.
type TreasuryToppedUp struct {
	From     [20]byte
	Amount   *big.Int
	Treasury *big.Int
}

// EventType satisfies the Event interface.
func (TreasuryToppedUp) EventType() string { return TypeTreasuryToppedUp }

// Event converts the structured payload into a broadcastable event.
func (e TreasuryToppedUp) Event() *types.Event {
	return &types.Event{Type: TypeTreasuryToppedUp, Attributes: map[string]string{
		"from":     crypto.MustNewAddress(crypto.StakePrefix, e.From[:]).String(),
		"amount":   formatAmount(e.Amount),
		"treasury": formatAmount(e.Treasury),
	}}
}
