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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pqlchain/config"
	"pqlchain/core"
	"pqlchain/crypto"
	"pqlchain/observability/logging"
	"pqlchain/rpc"
	"pqlchain/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pqld: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfgPath string
	var blockInterval time.Duration
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to pqld config")
	flag.DurationVar(&blockInterval, "block-interval", time.Second, "interval at which the block counter advances (0 disables the ticker)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	env := strings.TrimSpace(os.Getenv("PQL_ENV"))
	logger := logging.Setup("pqld", env, slog.String("network", cfg.NetworkName))

	nodeCfg, err := nodeConfig(cfg)
	if err != nil {
		return err
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	node, err := core.NewNode(db, nodeCfg)
	if err != nil {
		return fmt.Errorf("build node: %w", err)
	}
	// the reference price feed listens on the oracle address so that a
	// fulfilment targeted at the oracle updates the local feed
	node.RegisterConsumer(nodeCfg.Oracle, node.PriceFeed())

	server := rpc.NewServer(node)

	mux := http.NewServeMux()
	mux.Handle("/", server)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         cfg.RPCAddress,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if blockInterval > 0 {
		go func() {
			ticker := time.NewTicker(blockInterval)
			defer ticker.Stop()
			for {
				select {
				case <-stopCtx.Done():
					return
				case <-ticker.C:
					node.AdvanceBlocks(1)
				}
			}
		}()
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("rpc listening", "address", cfg.RPCAddress)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func nodeConfig(cfg *config.Config) (core.NodeConfig, error) {
	var out core.NodeConfig

	admin, err := crypto.DecodeAddress(cfg.Admin)
	if err != nil {
		return out, fmt.Errorf("decode Admin: %w", err)
	}
	oracleID, err := crypto.DecodeAddress(cfg.Oracle)
	if err != nil {
		return out, fmt.Errorf("decode Oracle: %w", err)
	}
	users := make([][20]byte, 0, len(cfg.Users))
	for _, raw := range cfg.Users {
		user, err := crypto.DecodeAddress(raw)
		if err != nil {
			return out, fmt.Errorf("decode user %q: %w", raw, err)
		}
		users = append(users, user.Array())
	}
	fee, err := cfg.Fee()
	if err != nil {
		return out, err
	}
	subsistence, err := cfg.Subsistence()
	if err != nil {
		return out, err
	}
	mode, err := cfg.Counter()
	if err != nil {
		return out, err
	}

	out = core.NodeConfig{
		Admin:          admin.Array(),
		Oracle:         oracleID.Array(),
		Users:          users,
		Fee:            fee,
		MinValidPeriod: cfg.MinValidPeriod,
		MaxValidPeriod: cfg.MaxValidPeriod,
		CounterMode:    mode,
		ReserveEscrow:  cfg.ReserveEscrow,
		Subsistence:    subsistence,
	}
	return out, nil
}
