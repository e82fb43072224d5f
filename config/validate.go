package config

import (
	"fmt"
	"math/big"
	"strings"

	"stakehub/crypto"
	"stakehub/native/common"
	"stakehub/native/staking"
)

// Validate checks the configuration for values the daemon cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if c.GovernanceAddress != "" {
		if _, err := crypto.DecodeAddress(c.GovernanceAddress); err != nil {
			return fmt.Errorf("config: invalid GovernanceAddress: %w", err)
		}
	}
	if c.ModuleAddress != "" {
		if _, err := crypto.DecodeAddress(c.ModuleAddress); err != nil {
			return fmt.Errorf("config: invalid ModuleAddress: %w", err)
		}
	}
	if c.Quota.EpochSeconds == 0 {
		return fmt.Errorf("config: Quota.EpochSeconds must be positive")
	}
	if _, err := c.StakingParams(); err != nil {
		return err
	}
	return nil
}

// StakingParams converts the seed parameters into ledger parameters.
func (c *Config) StakingParams() (staking.Params, error) {
	params := staking.DefaultParams()

	min, err := parseAmountField("Staking.MinimumStake", c.Staking.MinimumStake)
	if err != nil {
		return staking.Params{}, err
	}
	if min != nil {
		params.MinimumStake = min
	}

	reward, err := parseAmountField("Staking.NotificationReward", c.Staking.NotificationReward)
	if err != nil {
		return staking.Params{}, err
	}
	if reward != nil {
		params.NotificationReward = reward
	}

	penalty, err := parseAmountField("Staking.DiscrepancyPenalty", c.Staking.DiscrepancyPenalty)
	if err != nil {
		return staking.Params{}, err
	}
	if penalty != nil {
		params.DiscrepancyPenalty = penalty
	}

	params.AuthorizationCeiling = c.Staking.AuthorizationCeiling
	if c.Staking.DiscrepancyRewardMultiplier != 0 {
		params.DiscrepancyRewardMultiplier = c.Staking.DiscrepancyRewardMultiplier
	}

	if err := params.Validate(); err != nil {
		return staking.Params{}, fmt.Errorf("config: %w", err)
	}
	return params, nil
}

// RPCQuota converts the quota section into the throttle used by the RPC
// server. A zero-valued quota disables throttling.
func (c *Config) RPCQuota() common.Quota {
	return common.Quota{
		MaxRequestsPerEpoch: c.Quota.MaxRequestsPerEpoch,
		MaxAmountPerEpoch:   c.Quota.MaxAmountPerEpoch,
		EpochSeconds:        c.Quota.EpochSeconds,
	}
}

func parseAmountField(name, raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("config: %s must be a base-10 integer", name)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("config: %s must not be negative", name)
	}
	return value, nil
}
