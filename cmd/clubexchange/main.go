package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clubexchange/clubexchange/internal/config"
	"github.com/clubexchange/clubexchange/internal/domain"
	"github.com/clubexchange/clubexchange/internal/engine"
	"github.com/clubexchange/clubexchange/internal/handler"
	"github.com/clubexchange/clubexchange/internal/ledger"
	"github.com/clubexchange/clubexchange/internal/persist"
	"github.com/clubexchange/clubexchange/internal/service"
	"github.com/clubexchange/clubexchange/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load .env if present, then configuration from the environment.
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Stores and ledger.
	prices := store.NewPriceStore()
	listings := store.NewListingStore()
	accounts := ledger.New(cfg.StartingBalance)

	// Persistence: restore snapshots from the data directory when they
	// exist; missing or corrupt files just mean a fresh market.
	files, err := persist.NewStore(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open data dir", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if p, h, ok := files.LoadMarket(); ok {
		prices.Restore(p, h)
		logger.Info("market snapshot restored", slog.Int("symbols", prices.Len()))
	}
	if owners, ok := files.LoadListings(); ok {
		listings.Restore(owners)
	}
	if snapshot, ok := files.LoadLedger(); ok {
		accounts.Restore(snapshot)
	}

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(os.Getpid())))

	// Reconcile the two restored stores: every priced symbol must be
	// listed and every listing must have a price.
	for _, sym := range prices.Symbols() {
		if !listings.Exists(sym) {
			_ = listings.Create(sym, "")
		}
	}
	for _, sym := range listings.Symbols() {
		if _, err := prices.Current(sym); err != nil {
			initial := cfg.NewStockMinPrice + rng.Float64()*(cfg.NewStockMaxPrice-cfg.NewStockMinPrice)
			_ = prices.Create(sym, initial)
		}
	}

	saver := persist.NewSaver(files, prices, listings, accounts, logger)

	// Engine.
	engineCfg := engine.Config{
		TickMinChange:    cfg.TickMinChange,
		TickMaxChange:    cfg.TickMaxChange,
		BuyMinChange:     cfg.BuyMinChange,
		BuyMaxChange:     cfg.BuyMaxChange,
		SellMinChange:    cfg.SellMinChange,
		SellMaxChange:    cfg.SellMaxChange,
		NewStockMinPrice: cfg.NewStockMinPrice,
		NewStockMaxPrice: cfg.NewStockMaxPrice,
		PriceFloor:       cfg.PriceFloor,
		SellingFee:       cfg.SellingFee,
	}
	market := engine.NewMarketEngine(prices, listings, engineCfg, rng, saver, logger)

	decayCfg := engine.DecayConfig{
		Threshold:                cfg.DecayThreshold,
		Percent:                  cfg.DecayPercent,
		BankruptcyPriceThreshold: cfg.BankruptcyPriceThreshold,
	}
	decay := engine.NewDecayPolicy(market, accounts, decayCfg, logger)
	bankruptcy := engine.NewBankruptcyHandler(market, accounts, logger)

	// Seed listings that are configured but not yet on the market.
	for _, raw := range cfg.SeedSymbols {
		sym := domain.NormalizeSymbol(raw)
		if !domain.ValidSymbol(sym) {
			logger.Warn("skipping invalid seed symbol", slog.String("symbol", raw))
			continue
		}
		if listings.Exists(sym) {
			continue
		}
		if _, err := market.List(sym, "", nil); err != nil {
			logger.Warn("seeding failed",
				slog.String("symbol", sym), slog.String("error", err.Error()))
		}
	}

	// Services.
	tradingSvc := service.NewTradingService(market, prices, listings, accounts, saver, logger)
	listingSvc := service.NewListingService(market, decay, bankruptcy, accounts, cfg.IPOCost, saver, logger)

	// Router.
	router := handler.NewRouter(tradingSvc, listingSvc, logger)

	// Start the market tick goroutine with a cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ticker := engine.NewMarketTicker(cfg.TickInterval, market, logger)
	ticker.Start(ctx)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, cancel context (stops the
	// tick goroutine), snapshot everything to disk.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	saver.SaveAll()

	logger.Info("server stopped")
}
