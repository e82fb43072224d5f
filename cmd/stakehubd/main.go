package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stakehub/cmd/internal/passphrase"
	"stakehub/config"
	"stakehub/core/events"
	"stakehub/core/types"
	"stakehub/crypto"
	"stakehub/native/common"
	"stakehub/native/staking"
	"stakehub/observability/logging"
	"stakehub/observability/otel"
	"stakehub/rpc"
	statestaking "stakehub/state/staking"
	"stakehub/storage"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const governancePassEnv = "STAKEHUB_GOVERNANCE_PASS"

// moduleAccount is the deterministic account escrowing native stake and the
// notifier treasury when none is configured.
func moduleAccount() [20]byte {
	var out [20]byte
	sum := ethcrypto.Keccak256([]byte("stakehub/staking/module"))
	copy(out[:], sum[12:])
	return out
}

// eventLogger forwards ledger events to the structured log.
type eventLogger struct {
	log *slog.Logger
}

func (e eventLogger) Emit(evt events.Event) {
	if evt == nil || e.log == nil {
		return
	}
	attrs := []any{slog.String("event", evt.EventType())}
	if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
		if detail := carrier.Event(); detail != nil {
			for key, value := range detail.Attributes {
				attrs = append(attrs, slog.String(key, value))
			}
		}
	}
	e.log.Info("ledger event", attrs...)
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STAKEHUB_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Environment
	}

	logger := logging.Setup("stakehubd", env, logging.Options{FilePath: cfg.LogFile})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Metrics || cfg.Telemetry.Traces {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: "stakehubd",
			Environment: env,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     otel.ParseHeaders(cfg.Telemetry.Headers),
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
		})
		if err != nil {
			logger.Error("Failed to initialise telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("Telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	governance, err := resolveGovernance(cfg)
	if err != nil {
		logger.Error("Failed to resolve governance address", slog.Any("error", err))
		os.Exit(1)
	}

	module := moduleAccount()
	if strings.TrimSpace(cfg.ModuleAddress) != "" {
		decoded, err := crypto.DecodeAddress(cfg.ModuleAddress)
		if err != nil {
			logger.Error("Failed to decode module address", slog.Any("error", err))
			os.Exit(1)
		}
		copy(module[:], decoded.Bytes())
	}

	store := statestaking.NewStore(db)
	engine := staking.NewEngine()
	engine.SetState(store)
	engine.SetGovernance(governance)
	engine.SetModuleAddress(module)
	pauses := common.NewStaticPauses()
	if cfg.Pauses.Staking {
		pauses = common.NewStaticPauses("staking")
	}
	engine.SetPauses(pauses)
	stream := events.NewStream()
	engine.SetEmitter(events.Tee(eventLogger{log: logger}, stream))

	if err := seedParams(store, cfg); err != nil {
		logger.Error("Failed to seed ledger parameters", slog.Any("error", err))
		os.Exit(1)
	}

	server := rpc.NewServer(engine)
	server.SetQuota(cfg.RPCQuota())
	server.SetLogger(logger)
	server.SetStream(stream)

	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           otelhttp.NewHandler(server.Handler(), "stakehub.rpc"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting JSON-RPC server", slog.String("addr", cfg.RPCAddress))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown failed", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("RPC server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

// resolveGovernance prefers the configured bech32 address and otherwise
// derives it from the governance keystore.
func resolveGovernance(cfg *config.Config) ([20]byte, error) {
	var out [20]byte
	if addr := strings.TrimSpace(cfg.GovernanceAddress); addr != "" {
		decoded, err := crypto.DecodeAddress(addr)
		if err != nil {
			return out, err
		}
		copy(out[:], decoded.Bytes())
		return out, nil
	}

	source := passphrase.NewSource(governancePassEnv)
	pass, err := source.Get()
	if err != nil {
		return out, err
	}
	key, err := crypto.LoadFromKeystore(cfg.GovernanceKeystorePath, pass)
	if err != nil {
		return out, err
	}
	copy(out[:], key.PubKey().Address().Bytes())
	return out, nil
}

// seedParams writes the configured ledger parameters once; an already
// initialised ledger keeps its governance-controlled values.
func seedParams(store *statestaking.Store, cfg *config.Config) error {
	params, err := cfg.StakingParams()
	if err != nil {
		return err
	}
	tx, err := store.Begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if _, ok, err := tx.ParamsGet(); err != nil {
		return err
	} else if ok {
		return nil
	}
	if err := tx.ParamsPut(params); err != nil {
		return err
	}
	return tx.Commit()
}
