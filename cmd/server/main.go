package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juicedollar/protocol-api/internal/alert"
	"github.com/juicedollar/protocol-api/internal/analytics"
	"github.com/juicedollar/protocol-api/internal/chain"
	"github.com/juicedollar/protocol-api/internal/config"
	"github.com/juicedollar/protocol-api/internal/dedup"
	"github.com/juicedollar/protocol-api/internal/ecosystem"
	"github.com/juicedollar/protocol-api/internal/handler"
	"github.com/juicedollar/protocol-api/internal/indexer"
	"github.com/juicedollar/protocol-api/internal/middleware"
	"github.com/juicedollar/protocol-api/internal/positions"
	"github.com/juicedollar/protocol-api/internal/prices"
	"github.com/juicedollar/protocol-api/internal/prices/sources"
	"github.com/juicedollar/protocol-api/internal/store"
	"github.com/juicedollar/protocol-api/internal/updater"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()

	if cfg.RPCURL() == "" {
		logger.Error("RPC URL for the configured chain is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := chain.ByName(cfg.ChainName)
	logger.Info("chain selected", "name", ch.Name, "id", ch.ID)

	// Upstream clients
	reader := chain.NewClient(cfg.RPCURL(), ch)
	idx := indexer.NewClient(cfg.IndexerURL, cfg.IndexerFallback)
	oracle := sources.NewCoingecko(cfg.CoingeckoKey, ch.ID)

	// Snapshot services
	pos := positions.NewService(idx, logger)
	ps := ecosystem.NewPoolSharesService(reader, idx, pos, logger)
	ledger := ecosystem.NewFeeLedger(idx, logger)
	minters := ecosystem.NewMinterRegistry(idx, logger)
	savings := ecosystem.NewSavingsTracker(idx)
	priceCache := prices.NewService(pos, ps, oracle, ch, logger)
	an := analytics.NewService(pos, ps, ledger, minters, savings, ch.ID, logger)

	up := updater.New(pos, ps, ledger, minters, savings, priceCache, an, ch.ID, logger)

	// Optional price checkpoint
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		if entries, err := db.LoadPrices(ctx); err != nil {
			logger.Warn("price checkpoint load failed", "error", err)
		} else if len(entries) > 0 {
			priceCache.Restore(entries)
			logger.Info("price cache restored from checkpoint", "assets", len(entries))
		}
		up.WithCheckpoint(db)
	}

	// Optional drift alerting
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		chatID, err := strconv.ParseInt(cfg.TelegramChatID, 10, 64)
		if err != nil {
			logger.Error("invalid TELEGRAM_CHAT_ID", "error", err)
			os.Exit(1)
		}
		notifier := alert.NewTelegram(cfg.TelegramToken, chatID)

		var dd *dedup.Deduplicator
		if cfg.RedisURL != "" {
			dd, err = dedup.New(cfg.RedisURL, cfg.RedisPassword)
			if err != nil {
				logger.Error("failed to connect to redis", "error", err)
				os.Exit(1)
			}
			defer dd.Close()
			logger.Info("redis connected for alert dedup")
		}
		up.WithAlerting(notifier, dd)
	}

	go up.Run(ctx)

	// HTTP routes
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())
	r.Get("/readyz", handler.Ready(pos, ps))

	r.Route("/prices", func(r chi.Router) {
		r.Get("/list", handler.ListPrices(priceCache))
		r.Get("/mapping", handler.PriceMapping(priceCache))
		r.Get("/erc20/mint", handler.MintERC20(priceCache))
		r.Get("/erc20/poolshares", handler.PoolShareERC20(priceCache))
		r.Get("/erc20/collateral", handler.CollateralERC20(priceCache))
		r.Get("/poolshares", handler.PoolSharePrice(priceCache))
		r.Get("/eur", handler.EuroPrice(priceCache))
	})
	r.Route("/ecosystem", func(r chi.Router) {
		r.Get("/poolshares/info", handler.PoolSharesInfo(ps))
		r.Get("/poolshares/info/totalSupply", handler.PoolSharesTotalSupply(ps))
	})
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/poolshares/exposure", handler.Exposure(an))
		r.Get("/poolshares/earnings", handler.Earnings(an))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
