package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-data/internal/config"
	"storefront-data/internal/database"
	httpapi "storefront-data/internal/http"
	"storefront-data/internal/logger"
	"storefront-data/internal/metrics"
	"storefront-data/internal/repository"
	"storefront-data/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "storefront-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	m := metrics.New(prometheus.DefaultRegisterer)

	// The durable store is optional at startup: if it cannot be reached the
	// repositories run fallback-only and every request still succeeds.
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("durable store enabled")
		} else {
			log.Warn("durable store unavailable, repositories run fallback-only", zap.Error(err))
		}
	} else {
		log.Info("durable store disabled by config, repositories run fallback-only")
	}

	repos := buildRepos(db, log, m)

	auth := httpapi.NewStaticAuthorizer()
	// Dev convenience: grant ownership of a seed tenant so POSTs pass the
	// guard even when ENV=production is being exercised locally.
	if tenant := os.Getenv("SEED_TENANT"); tenant != "" {
		auth.Grant(tenant, envOr("SEED_OWNER", "dev-user"))
	}

	router := httpapi.NewRouter(log)
	router.RegisterOps(prometheus.DefaultGatherer)
	httpapi.NewCatalogAPI(repos, auth, cfg.IsProduction(), log).Register(router)
	httpapi.NewCheckoutHandler(repos.Orders, repos.Products,
		&httpapi.StaticPaymentProvider{StoreURL: cfg.StoreURL}, cfg.StoreURL, log).Register(router)
	httpapi.NewExportHandler(repos.Products, log).Register(router)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		log.Error("HTTP server exited", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = database.Close(db)
}

// buildRepos wires each kind's orchestrating repository. A nil db leaves the
// durable side nil, which the repositories treat as a permanently failing
// backend.
func buildRepos(db *sql.DB, log *zap.Logger, m *metrics.Metrics) httpapi.Repos {
	var (
		billboards repository.Durable[repository.Billboard]
		categories repository.Durable[repository.Category]
		sizes      repository.Durable[repository.Size]
		colors     repository.Durable[repository.Color]
		products   repository.Durable[repository.Product]
		orders     repository.Durable[repository.Order]
	)
	if db != nil {
		billboards = repository.NewPostgresBillboards(db)
		categories = repository.NewPostgresCategories(db)
		sizes = repository.NewPostgresSizes(db)
		colors = repository.NewPostgresColors(db)
		products = repository.NewPostgresProducts(db)
		orders = repository.NewPostgresOrders(db)
	}
	return httpapi.Repos{
		Billboards: repository.NewBillboardRepo(billboards, log, m),
		Categories: repository.NewCategoryRepo(categories, log, m),
		Sizes:      repository.NewSizeRepo(sizes, log, m),
		Colors:     repository.NewColorRepo(colors, log, m),
		Products:   repository.NewProductRepo(products, log, m),
		Orders:     repository.NewOrderRepo(orders, log, m),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
