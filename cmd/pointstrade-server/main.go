package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pointstrade/internal/config"
	"pointstrade/internal/engine"
	"pointstrade/internal/httpapi"
	"pointstrade/internal/ledger"
	"pointstrade/internal/notify"
	"pointstrade/internal/store"
	"pointstrade/internal/util"
	"pointstrade/internal/wallet"
)

func main() {
	cfgPath := "config/pointstrade.yaml"
	if p := os.Getenv("POINTSTRADE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	walletClient := wallet.NewClient(st, logger)
	ledgerClient := ledger.NewClient(st)

	// Broker sink selection: webhook when a broker URL is configured, the
	// Alpaca API when credentials are present, log-only otherwise.
	var brokerSink notify.BrokerNotifier
	switch {
	case cfg.Notify.BrokerURL != "":
		brokerSink = notify.NewWebhookNotifier(cfg.Notify.MerchantURL, cfg.Notify.BrokerURL, cfg.Notify.Timeout.Std())
	case cfg.Alpaca.APIKey != "":
		brokerSink = notify.NewAlpacaNotifier(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
	default:
		brokerSink = notify.NewLogNotifier(logger)
	}

	var merchantSink notify.MerchantNotifier
	if cfg.Notify.MerchantURL != "" {
		merchantSink = notify.NewWebhookNotifier(cfg.Notify.MerchantURL, cfg.Notify.BrokerURL, cfg.Notify.Timeout.Std())
	} else {
		merchantSink = notify.NewLogNotifier(logger)
	}

	dispatcher := notify.NewDispatcher(merchantSink, brokerSink, cfg.Notify.RateLimitPerMin, logger)

	scheduler := engine.NewStageScheduler(cfg.Settlement.ConfirmDelay.Std(), cfg.Settlement.ConfirmMaxRetries, logger)
	defer scheduler.Close()

	orch := engine.NewOrchestrator(
		st,
		st,
		walletClient,
		ledgerClient,
		dispatcher,
		scheduler,
		engine.NewSubmissionChecker(cfg.Limits.MaxBasketLines, cfg.Limits.MaxPointsPerOrder),
		cfg.Settlement.DefaultBroker,
		logger,
	)

	srv := httpapi.NewServer(orch, st, walletClient, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("pointstrade server listening", "addr", httpServer.Addr, "broker_sink", brokerSink.Name())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down pointstrade server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
