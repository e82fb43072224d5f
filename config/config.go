package config

import (
	"os"
	"path/filepath"
	"strings"

	"stakehub/crypto"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration loaded from TOML. A missing file is
// replaced with a generated default, including a fresh governance keystore.
type Config struct {
	RPCAddress             string `toml:"RPCAddress"`
	DataDir                string `toml:"DataDir"`
	NetworkName            string `toml:"NetworkName"`
	Environment            string `toml:"Environment"`
	LogFile                string `toml:"LogFile,omitempty"`
	GovernanceKeystorePath string `toml:"GovernanceKeystorePath"`
	GovernanceAddress      string `toml:"GovernanceAddress,omitempty"`
	ModuleAddress          string `toml:"ModuleAddress,omitempty"`

	Staking   Staking   `toml:"Staking"`
	Quota     Quota     `toml:"Quota"`
	Pauses    Pauses    `toml:"Pauses"`
	Telemetry Telemetry `toml:"Telemetry"`
}

// Staking seeds the governance parameters of a fresh ledger. Amounts are
// decimal strings in the native base denomination.
type Staking struct {
	MinimumStake                string `toml:"MinimumStake"`
	AuthorizationCeiling        uint64 `toml:"AuthorizationCeiling"`
	NotificationReward          string `toml:"NotificationReward"`
	DiscrepancyPenalty          string `toml:"DiscrepancyPenalty"`
	DiscrepancyRewardMultiplier uint64 `toml:"DiscrepancyRewardMultiplier"`
}

// Quota throttles mutating RPC calls per source address.
type Quota struct {
	MaxRequestsPerEpoch uint32 `toml:"MaxRequestsPerEpoch"`
	MaxAmountPerEpoch   uint64 `toml:"MaxAmountPerEpoch"`
	EpochSeconds        uint32 `toml:"EpochSeconds"`
}

// Pauses disables whole modules at startup.
type Pauses struct {
	Staking bool `toml:"Staking"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint,omitempty"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers,omitempty"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8545"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./stakehub-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "stakehub-local"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if cfg.Quota.EpochSeconds == 0 {
		cfg.Quota.EpochSeconds = 60
	}
	if cfg.Staking.DiscrepancyRewardMultiplier == 0 {
		cfg.Staking.DiscrepancyRewardMultiplier = 100
	}
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.GovernanceKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.GovernanceKeystorePath != keystorePath {
		cfg.GovernanceKeystorePath = keystorePath
		return persist(configPath, cfg)
	}

	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:        ":8545",
		DataDir:           "./stakehub-data",
		NetworkName:       "stakehub-local",
		Environment:       "local",
		GovernanceAddress: key.PubKey().Address().String(),
		Staking: Staking{
			MinimumStake:                "1000000000000000000",
			AuthorizationCeiling:        0,
			NotificationReward:          "0",
			DiscrepancyPenalty:          "0",
			DiscrepancyRewardMultiplier: 100,
		},
		Quota: Quota{
			MaxRequestsPerEpoch: 60,
			MaxAmountPerEpoch:   0,
			EpochSeconds:        60,
		},
	}
	cfg.GovernanceKeystorePath = keystorePath
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "governance.keystore")
}
