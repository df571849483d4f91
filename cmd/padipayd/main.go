package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"padipay/config"
	"padipay/core"
	"padipay/native/wallet"
	"padipay/observability"
	"padipay/observability/logging"
	telemetry "padipay/observability/otel"
	"padipay/rpc"
	"padipay/storage"
	"padipay/storage/auditlog"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisPath := flag.String("genesis", "", "Optional genesis file applied when the store is empty")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *genesisPath != "" {
		cfg.GenesisFile = *genesisPath
		cfg.Genesis = nil
	}

	logger := logging.SetupWithOptions("padipayd", cfg.Logging.Environment, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "padipayd",
		Environment: cfg.Logging.Environment,
		ChainID:     cfg.ChainID,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialise telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	n, err := openNode(cfg, logger)
	if err != nil {
		logger.Error("failed to open ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer n.Close()

	status := n.ledger.Status()
	logger.Info("ledger ready",
		slog.Uint64("chain_id", status.ChainID),
		slog.Uint64("height", status.Height),
		slog.String("state_root", status.StateRoot.Hex()),
		slog.String("rpc_address", cfg.RPC.Address))

	if err := n.server.Serve(ctx, cfg.RPC.Address); err != nil {
		logger.Error("rpc server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// node bundles the long-lived resources of one daemon process.
type node struct {
	db     *storage.LevelDB
	audit  *auditlog.Store
	hub    *rpc.EventHub
	ledger *core.Ledger
	server *rpc.Server
}

func openNode(cfg *config.Config, logger *slog.Logger) (*node, error) {
	spec, err := cfg.GenesisSpec()
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	quota, err := cfg.SenderQuota()
	if err != nil {
		return nil, err
	}
	sponsors, err := cfg.SponsorAddresses()
	if err != nil {
		return nil, err
	}
	secret, err := cfg.JWTSecret()
	if err != nil {
		return nil, fmt.Errorf("rpc secret: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	n := &node{}
	n.db, err = storage.NewLevelDBWithOptions(filepath.Join(cfg.DataDir, "state"), storage.LevelDBOptions{
		CacheMB:       cfg.Storage.CacheMB,
		OpenFiles:     cfg.Storage.OpenFiles,
		WriteBufferMB: cfg.Storage.WriteBufferMB,
	})
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	n.audit, err = auditlog.Open(cfg.Storage.AuditLog, nil)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	n.hub = rpc.NewEventHub(n.audit, logger)

	n.ledger, err = core.Open(n.db, core.Options{
		ChainID:     cfg.ChainID,
		Genesis:     spec,
		Sinks:       []core.EventSink{n.audit, n.hub},
		Logger:      logger,
		Metrics:     observability.Ledger(),
		Tracer:      telemetry.Tracer(),
		Sponsor:     wallet.NewAllowlist(sponsors...),
		SenderQuota: quota,
	})
	if err != nil {
		n.Close()
		return nil, err
	}

	n.server, err = rpc.NewServer(n.ledger, n.hub, serverConfig(cfg, secret), logger)
	if err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

func serverConfig(cfg *config.Config, secret string) rpc.ServerConfig {
	return rpc.ServerConfig{
		JWTSecret:         secret,
		JWTIssuer:         cfg.RPC.JWTIssuer,
		RateLimitPerSec:   cfg.RPC.RateLimitPerSec,
		RateLimitBurst:    cfg.RPC.RateLimitBurst,
		MaxBodyBytes:      cfg.RPC.MaxBodyBytes,
		AllowedOrigins:    cfg.RPC.AllowedOrigins,
		ReadHeaderTimeout: seconds(cfg.RPC.ReadHeaderTimeout),
		ReadTimeout:       seconds(cfg.RPC.ReadTimeout),
		WriteTimeout:      seconds(cfg.RPC.WriteTimeout),
		IdleTimeout:       seconds(cfg.RPC.IdleTimeout),
	}
}

func seconds(v int) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}

// Close releases resources in reverse open order. Safe on a partially opened
// node.
func (n *node) Close() error {
	var errs []error
	if n.hub != nil {
		n.hub.Close()
	}
	if n.audit != nil {
		if err := n.audit.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if n.db != nil {
		n.db.Close()
	}
	return errors.Join(errs...)
}
