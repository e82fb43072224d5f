package staking

import "math/big"

// StakeSource identifies one of the three independent stake origins tracked
// per operator.
type StakeSource string

const (
	SourceNative  StakeSource = "native"
	SourceLegacyA StakeSource = "legacy-a"
	SourceLegacyB StakeSource = "legacy-b"
)

// Valid reports whether the source names one of the tracked stake origins.
func (s StakeSource) Valid() bool {
	switch s {
	case SourceNative, SourceLegacyA, SourceLegacyB:
		return true
	}
	return false
}

// AppAuthorization tracks the stake an operator has committed to a single
// application, together with at most one outstanding decrease request.
type AppAuthorization struct {
	Application   [20]byte `json:"application"`
	Authorized    *big.Int `json:"authorized"`
	Deauthorizing *big.Int `json:"deauthorizing"`
}

// Operator is the staking identity applications authorize against. All stake
// amounts are denominated in the native asset; the two legacy balances cache
// the native equivalent of the snapshot read from the corresponding mirror.
type Operator struct {
	Address        [20]byte           `json:"address"`
	Owner          [20]byte           `json:"owner"`
	Beneficiary    [20]byte           `json:"beneficiary"`
	Authorizer     [20]byte           `json:"authorizer"`
	NativeStake    *big.Int           `json:"nativeStake"`
	LegacyAStake   *big.Int           `json:"legacyAStake"`
	LegacyBStake   *big.Int           `json:"legacyBStake"`
	StakedAt       uint64             `json:"stakedAt"`
	Authorizations []AppAuthorization `json:"authorizations,omitempty"`
}

// Claimed reports whether the operator identity has been taken by any of the
// origination paths. Once claimed the roles are immutable.
func (o *Operator) Claimed() bool {
	return o != nil && o.Owner != ([20]byte{})
}

// TotalStake sums the three stake balances.
func (o *Operator) TotalStake() *big.Int {
	total := big.NewInt(0)
	if o == nil {
		return total
	}
	if o.NativeStake != nil {
		total.Add(total, o.NativeStake)
	}
	if o.LegacyAStake != nil {
		total.Add(total, o.LegacyAStake)
	}
	if o.LegacyBStake != nil {
		total.Add(total, o.LegacyBStake)
	}
	return total
}

// balance returns the live pointer for the given source, initialising it to
// zero when unset.
func (o *Operator) balance(source StakeSource) *big.Int {
	switch source {
	case SourceNative:
		if o.NativeStake == nil {
			o.NativeStake = big.NewInt(0)
		}
		return o.NativeStake
	case SourceLegacyA:
		if o.LegacyAStake == nil {
			o.LegacyAStake = big.NewInt(0)
		}
		return o.LegacyAStake
	default:
		if o.LegacyBStake == nil {
			o.LegacyBStake = big.NewInt(0)
		}
		return o.LegacyBStake
	}
}

// setBalance overwrites the balance for the given source with a copy of v.
func (o *Operator) setBalance(source StakeSource, v *big.Int) {
	fresh := big.NewInt(0)
	if v != nil {
		fresh.Set(v)
	}
	switch source {
	case SourceNative:
		o.NativeStake = fresh
	case SourceLegacyA:
		o.LegacyAStake = fresh
	default:
		o.LegacyBStake = fresh
	}
}

// authorization returns the entry for the application, or nil when the pair
// has never been authorized. Lists stay short so a linear scan is fine.
func (o *Operator) authorization(app [20]byte) *AppAuthorization {
	for i := range o.Authorizations {
		if o.Authorizations[i].Application == app {
			return &o.Authorizations[i]
		}
	}
	return nil
}

// removeAuthorization drops the entry via swap-with-last-and-pop. Order is not
// preserved.
func (o *Operator) removeAuthorization(app [20]byte) {
	for i := range o.Authorizations {
		if o.Authorizations[i].Application == app {
			last := len(o.Authorizations) - 1
			o.Authorizations[i] = o.Authorizations[last]
			o.Authorizations = o.Authorizations[:last]
			return
		}
	}
}

// maxAuthorization returns the largest single-application authorized amount.
func (o *Operator) maxAuthorization() *big.Int {
	max := big.NewInt(0)
	if o == nil {
		return max
	}
	for i := range o.Authorizations {
		if a := o.Authorizations[i].Authorized; a != nil && a.Cmp(max) > 0 {
			max = new(big.Int).Set(a)
		}
	}
	return max
}

// Application records a consumer registered with the ledger.
type Application struct {
	Address     [20]byte `json:"address"`
	Approved    bool     `json:"approved"`
	Disabled    bool     `json:"disabled"`
	PanicButton [20]byte `json:"panicButton"`
}

// SlashingEvent is an immutable slashing queue entry. Entries are consumed
// exactly once, in strict FIFO order.
type SlashingEvent struct {
	Operator [20]byte `json:"operator"`
	Amount   *big.Int `json:"amount"`
}

// DelegationInfo is the snapshot a legacy mirror reports for an operator. The
// amount is expressed in the mirror's own denomination.
type DelegationInfo struct {
	Amount        *big.Int
	CreatedAt     uint64
	UndelegatedAt uint64
}

// LegacyMirror is the narrow surface of a predecessor staking system the
// ledger reads snapshots from and seizes stake through.
type LegacyMirror interface {
	DelegationInfo(operator [20]byte) (DelegationInfo, error)
	OwnerOf(operator [20]byte) ([20]byte, error)
	AuthorizerOf(operator [20]byte) ([20]byte, error)
	BeneficiaryOf(operator [20]byte) ([20]byte, error)
	// Seize burns the amount (legacy denomination) from the operators'
	// delegations, paying the notifier a reward scaled by the multiplier.
	Seize(amount *big.Int, rewardMultiplier uint64, notifier [20]byte, operators [][20]byte) error
}

// ConversionOracle translates amounts between a legacy denomination and the
// native denomination. Lossy conversions report the remainder.
type ConversionOracle interface {
	ToNative(legacyAmount *big.Int) (nativeAmount, remainder *big.Int, err error)
	FromNative(nativeAmount *big.Int) (legacyAmount, remainder *big.Int, err error)
}

// AuthorizationHook is the callback surface every consumer application
// implements. Hooks run synchronously inside the ledger's atomic unit; a hook
// error aborts the whole enclosing operation.
type AuthorizationHook interface {
	AuthorizationIncreased(operator [20]byte, amount *big.Int) error
	AuthorizationDecreaseRequested(operator [20]byte, amount *big.Int) error
	InvoluntaryAuthorizationDecrease(operator [20]byte, amount *big.Int) error
}

// HookRegistry resolves the callback implementation for a registered
// application address. Applications without a hook are treated as accepting
// every notification.
type HookRegistry interface {
	Hook(app [20]byte) (AuthorizationHook, bool)
}

// StaticHooks is a fixed HookRegistry backed by a map.
type StaticHooks map[[20]byte]AuthorizationHook

// Hook implements the HookRegistry interface.
func (s StaticHooks) Hook(app [20]byte) (AuthorizationHook, bool) {
	hook, ok := s[app]
	return hook, ok
}
