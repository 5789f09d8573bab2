package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitos/trailing_stop/internal/config"
	"github.com/vitos/trailing_stop/internal/domain"
	"github.com/vitos/trailing_stop/internal/infrastructure/exchange"
	"github.com/vitos/trailing_stop/internal/infrastructure/logger"
	"github.com/vitos/trailing_stop/internal/infrastructure/metrics"
	"github.com/vitos/trailing_stop/internal/infrastructure/storage"
	"github.com/vitos/trailing_stop/internal/usecase"
	"github.com/vitos/trailing_stop/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	accountLog := log.Named("account")
	if cfg.Logging.AccountLogFile != "" {
		accountLog, err = logger.NewFileLogger(cfg.Logging.AccountLogFile, cfg.Logging.Level)
		if err != nil {
			log.Fatal("Failed to init account logger", zap.Error(err))
		}
		defer accountLog.Sync()
	}

	session, err := domain.NewSession(cfg.Trailing.Symbol, cfg.Trailing.Margin)
	if err != nil {
		log.Fatal("Invalid session", zap.Error(err))
	}

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Exchange (Binance spot)
	adapter := exchange.NewBinanceAdapter(
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.RESTEndpoint,
		cfg.Exchange.WSEndpoint,
		cfg.Exchange.Testnet,
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	precision := cfg.Precision()
	if precision == config.PrecisionFromExchange {
		precision, err = adapter.PricePrecision(ctx, session.Symbol)
		if err != nil {
			log.Warn("Failed to resolve price precision, using default",
				zap.Error(err), zap.Int32("precision", usecase.DefaultPricePrecision))
			precision = usecase.DefaultPricePrecision
		}
	}

	// 5. Init Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 6. Init Services
	oracle := usecase.NewOrderOracle(adapter, log)
	replacer := usecase.NewStopLossReplacer(adapter, store, collector, usecase.ReplacerConfig{
		PricePrecision:  precision,
		RestoreAttempts: cfg.RestoreAttempts(),
		RestoreBackoff:  cfg.RestoreBackoff(),
	}, log)
	priceLoop := usecase.NewPriceFeedLoop(session, adapter, oracle, replacer, collector, log)
	accountLoop := usecase.NewAccountEventLoop(adapter, store, collector, accountLog)

	log.Info("Trailing stop started",
		zap.String("symbol", session.Symbol),
		zap.String("margin", session.Margin.String()),
		zap.Int32("precision", precision),
	)

	// 7. Init Web Server
	server := web.NewServer(cfg.Server.Port, priceLoop, store, store,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), log)
	go func() {
		if err := server.Start(); err != nil {
			log.Error("Web server failed", zap.Error(err))
		}
	}()

	// Account events are observational; their failure never stops trailing.
	go func() {
		if err := accountLoop.Run(ctx); err != nil {
			log.Error("Account event loop stopped", zap.Error(err))
		}
	}()

	runErr := priceLoop.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown web server", zap.Error(err))
	}

	if runErr != nil {
		log.Error("Price feed loop failed", zap.Error(runErr),
			zap.Bool("stream_closed", errors.Is(runErr, domain.ErrStreamClosed)))
		log.Sync()
		os.Exit(1)
	}
	log.Info("Shutting down")
}
