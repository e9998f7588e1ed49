// Solcloak - Privacy risk analysis for Solana wallets, transactions, and programs
package main

import (
	"context"
	"os"

	"github.com/solcloak/solcloak/internal/config"
	"github.com/solcloak/solcloak/internal/logging"
	"github.com/solcloak/solcloak/internal/server"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	logger := logging.New("info", "text")

	logger.Info("starting solcloak",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"rpc_url", cfg.RPCURL,
		"signature_limit", cfg.SignatureLimit,
	)

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
