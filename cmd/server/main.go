// Command server runs the walletless checkout storefront: buyers pay in
// stablecoins with a wallet derived from their social login, the merchant
// watches sales on the dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"solcheckout/internal/chain"
	"solcheckout/internal/config"
	"solcheckout/internal/ledger"
	"solcheckout/internal/logger"
	"solcheckout/internal/observability"
	"solcheckout/internal/receiptimg"
	"solcheckout/internal/server"
	"solcheckout/internal/wallet"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to YAML config (defaults + env when empty)")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	metrics, metricsHandler := observability.NewMetrics("solcheckout")

	selector := chain.NewSelector(cfg.Chain.Endpoints, chain.DialRPC, log, metrics)
	resolver := chain.NewResolver(cfg.Mints(), log, metrics)
	confirmer := chain.NewConfirmer(selector, cfg.MerchantKey(), log)

	images := receiptimg.NewClient(receiptimg.Config{
		BaseURL: cfg.Image.BaseURL,
		APIKey:  cfg.Image.APIKey,
		Timeout: cfg.Image.Timeout(),
	})
	if images == nil {
		log.Info("receipt image generation disabled, no image_api.base_url configured")
	}

	srv := server.New(server.Options{
		Log:            log,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		Selector:       selector,
		Resolver:       resolver,
		Confirmer:      confirmer,
		Ledger:         ledger.New(),
		Images:         images,
		Deriver:        wallet.NewDeriver([]byte(cfg.Wallet.DerivationSalt)),
		Merchant:       cfg.MerchantKey(),
		ReleaseMode:    cfg.Server.Mode == "release",
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("merchant", cfg.Chain.Merchant),
			zap.Int("endpoints", len(cfg.Chain.Endpoints)))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
