package staking

import (
	"errors"
	"math/big"
)

// MinStakeTimeSeconds is the minimum holding duration a native stake below the
// configured minimum must satisfy before it can be withdrawn.
const MinStakeTimeSeconds uint64 = 24 * 60 * 60 // 24 hours

// slashingRewardPercent is the share of burned native stake paid to whoever
// drains the slashing queue. The remainder accrues to the notifier treasury.
const slashingRewardPercent = 5

// Params captures the governance-controlled knobs of the staking ledger.
type Params struct {
	// MinimumStake is the strict lower bound for starting a native stake.
	MinimumStake *big.Int `json:"minimumStake"`
	// AuthorizationCeiling caps how many distinct applications one operator
	// may authorize concurrently. Zero means unlimited.
	AuthorizationCeiling uint64 `json:"authorizationCeiling"`
	// NotificationReward is the per-operator base reward paid from the
	// notifier treasury when a seize names a notifier.
	NotificationReward *big.Int `json:"notificationReward"`
	// DiscrepancyPenalty is the native-denominated amount seized from a
	// legacy mirror when a stake discrepancy is reported.
	DiscrepancyPenalty *big.Int `json:"discrepancyPenalty"`
	// DiscrepancyRewardMultiplier scales the reward the mirror pays the
	// discrepancy notifier, expressed as a percentage in (0,100].
	DiscrepancyRewardMultiplier uint64 `json:"discrepancyRewardMultiplier"`
}

// DefaultParams returns the parameter set a fresh ledger starts with.
func DefaultParams() Params {
	return Params{
		MinimumStake:                big.NewInt(0),
		AuthorizationCeiling:        0,
		NotificationReward:          big.NewInt(0),
		DiscrepancyPenalty:          big.NewInt(0),
		DiscrepancyRewardMultiplier: 100,
	}
}

// Validate checks the parameter set for internal consistency.
func (p Params) Validate() error {
	if p.MinimumStake != nil && p.MinimumStake.Sign() < 0 {
		return errors.New("staking: minimum stake cannot be negative")
	}
	if p.NotificationReward != nil && p.NotificationReward.Sign() < 0 {
		return errors.New("staking: notification reward cannot be negative")
	}
	if p.DiscrepancyPenalty != nil && p.DiscrepancyPenalty.Sign() < 0 {
		return errors.New("staking: discrepancy penalty cannot be negative")
	}
	if p.DiscrepancyRewardMultiplier == 0 || p.DiscrepancyRewardMultiplier > 100 {
		return errors.New("staking: discrepancy reward multiplier out of range")
	}
	return nil
}

// normalized returns a copy with nil amounts replaced by zero.
func (p Params) normalized() Params {
	out := p
	if out.MinimumStake == nil {
		out.MinimumStake = big.NewInt(0)
	}
	if out.NotificationReward == nil {
		out.NotificationReward = big.NewInt(0)
	}
	if out.DiscrepancyPenalty == nil {
		out.DiscrepancyPenalty = big.NewInt(0)
	}
	return out
}
