package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"collectvault/config"
	"collectvault/core"
	"collectvault/observability/logging"
	"collectvault/rpc"
	"collectvault/state"
	"collectvault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CVT_ENV"))
	logger := logging.Setup("vaultd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	admin, err := cfg.Admin()
	if err != nil {
		logger.Error("Failed to decode admin address", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	node := core.NewNode(state.NewManager(db), core.Params{
		Admin:         admin,
		RecordDeposit: cfg.RecordDeposit,
		AuditFee:      cfg.AuditFee,
	})

	server := rpc.NewServer(node)
	if cfg.RPCAuthToken != "" {
		server.SetAuthToken(cfg.RPCAuthToken)
	}

	logger.Info("Node initialised",
		slog.String("network", cfg.NetworkName),
		slog.String("admin", cfg.AdminAddress),
		slog.String("dataDir", cfg.DataDir),
		slog.Uint64("recordDeposit", cfg.RecordDeposit),
		slog.Uint64("auditFee", cfg.AuditFee),
	)

	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
