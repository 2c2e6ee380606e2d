package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"stakevault/config"
	"stakevault/native/bank"
	"stakevault/native/registry"
	"stakevault/native/stake"
	"stakevault/observability"
	"stakevault/observability/logging"
	"stakevault/rpc"
	"stakevault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STAKEVAULT_ENV"))
	logger := logging.Setup("stakevaultd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := stake.NewManager(db)
	if err := seedState(manager, cfg); err != nil {
		logger.Error("Failed to initialise state", slog.Any("error", err))
		os.Exit(1)
	}

	ledger := bank.NewLedger(db)
	reg := registry.NewRegistry(db)
	vault := stake.VaultAddress()

	engine := stake.NewEngine()
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetRegistry(reg)
	engine.SetVaultAddress(vault)
	engine.SetEmitter(observability.NewLogEmitter(logger))

	server := rpc.NewServer(engine, ledger, reg, vault, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// seedState writes the genesis configuration on first start. An already
// initialised database keeps its state; later parameter changes go through
// the owner-gated admin operations.
func seedState(manager *stake.Manager, cfg *config.Config) error {
	initialized, err := manager.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		return nil
	}

	owner, err := cfg.OwnerAddress()
	if err != nil {
		return err
	}
	feeAddress, err := cfg.FeeAddress()
	if err != nil {
		return err
	}
	collection, err := cfg.CollectionAddress()
	if err != nil {
		return err
	}
	unstakeFee, err := cfg.UnstakeFee()
	if err != nil {
		return err
	}

	vaultCfg := &stake.Config{
		RewardDenom: cfg.Vault.RewardDenom,
		Duration:    cfg.Vault.DurationSeconds,
		Enabled:     cfg.Vault.Enabled,
	}
	copy(vaultCfg.Owner[:], owner.Bytes())
	copy(vaultCfg.FeeAddress[:], feeAddress.Bytes())
	copy(vaultCfg.Collection[:], collection.Bytes())

	return manager.Initialize(vaultCfg, unstakeFee)
}
