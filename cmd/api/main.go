package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrofunnel/internal/config"
	"agrofunnel/internal/db"
	"agrofunnel/internal/httpserver"
	"agrofunnel/internal/lock"
	"agrofunnel/internal/logging"
	"agrofunnel/internal/migrate"
	"agrofunnel/internal/notify"
	"agrofunnel/internal/observability"
	bookingrepo "agrofunnel/internal/repository/booking"
	cartrepo "agrofunnel/internal/repository/cart"
	categoryrepo "agrofunnel/internal/repository/category"
	customerrepo "agrofunnel/internal/repository/customer"
	discountrepo "agrofunnel/internal/repository/discount"
	orderrepo "agrofunnel/internal/repository/order"
	productrepo "agrofunnel/internal/repository/product"
	sessionrepo "agrofunnel/internal/repository/session"
	"agrofunnel/internal/retry"
	"agrofunnel/internal/seed"
	bookingsvc "agrofunnel/internal/service/booking"
	cartsvc "agrofunnel/internal/service/cart"
	catalogsvc "agrofunnel/internal/service/catalog"
	checkoutsvc "agrofunnel/internal/service/checkout"
	customersvc "agrofunnel/internal/service/customer"
	discountsvc "agrofunnel/internal/service/discount"
	sessionsvc "agrofunnel/internal/service/session"
	"agrofunnel/internal/tools"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type stores struct {
	products   productrepo.Repository
	categories categoryrepo.Repository
	customers  customerrepo.Repository
	sessions   sessionrepo.Repository
	carts      cartrepo.Repository
	orders     orderrepo.Repository
	bookings   bookingrepo.Repository
	discounts  discountrepo.Repository
}

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogFormat, "api")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := context.Background()

	telemetry, err := observability.Setup(ctx, observability.Config{
		ServiceName: "agrofunnel-api",
		Environment: cfg.Environment,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		SampleRate:  cfg.OTelSampleRate,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	var (
		st    stores
		ready []func(context.Context) error
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		st = memoryStores()
		sum, err := seed.Apply(ctx, seed.Targets{Products: st.products, Categories: st.categories, Customers: st.customers}, cfg.Funnel.Currency)
		if err != nil {
			return err
		}
		logger.Info("in-memory store seeded",
			zap.Int("categories", sum.Categories), zap.Int("products", sum.Products), zap.Int("customers", sum.Customers))
	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrate.Apply(ctx, pool); err != nil {
			return err
		}
		st = postgresStores(pool, logger)
		ready = append(ready, pool.Ping)
	default:
		return errors.New("unknown STORE_BACKEND " + cfg.StoreBackend)
	}

	var locker lock.Locker = lock.NewMemory(lock.DefaultTTL, lock.DefaultAcquireTimeout)
	if cfg.RedisAddr != "" {
		client, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = lock.NewRedis(client, lock.DefaultTTL, lock.DefaultAcquireTimeout)
		ready = append(ready, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		logger.Info("session locks backed by redis", zap.String("addr", cfg.RedisAddr))
	}

	var notifier notify.Notifier = notify.NewLog(logger.Named("notify"))
	if cfg.NotifyWebhook != "" {
		notifier = notify.NewWebhook(cfg.NotifyWebhook, &http.Client{Timeout: cfg.StoreTimeout})
	}

	policy := retry.DefaultPolicy(cfg.StoreTimeout)
	policy.OnRetry = func(err error, wait time.Duration) {
		logger.Warn("retrying store call", zap.Error(err), zap.Duration("wait", wait))
	}
	tracker := observability.NewTracker(nil, nil)
	rules := cfg.Funnel

	sessions := sessionsvc.New(st.sessions, st.carts, locker, sessionsvc.NewTokens(cfg.SessionSecret, cfg.SessionTTL), policy, logger.Named("session"))
	customers := customersvc.New(st.customers, policy, logger.Named("customer"))
	catalog := catalogsvc.New(st.products, st.categories, policy, logger.Named("catalog"))
	carts := cartsvc.New(st.carts, st.products, st.discounts, policy, rules.MaxCartItems, rules.Currency, logger.Named("cart"))
	checkout := checkoutsvc.New(checkoutsvc.Deps{
		Customers: st.customers,
		Orders:    st.orders,
		Discounts: st.discounts,
		Carts:     st.carts,
		Notifier:  notifier,
		Tracker:   tracker,
		Policy:    policy,
		Rules:     rules,
		Location:  cfg.Location,
		Logger:    logger.Named("checkout"),
	})
	bookings := bookingsvc.New(bookingsvc.Deps{
		Bookings:  st.bookings,
		Customers: st.customers,
		Notifier:  notifier,
		Tracker:   tracker,
		Policy:    policy,
		Rules:     rules,
		Location:  cfg.Location,
		Logger:    logger.Named("booking"),
	})
	discounts, err := discountsvc.New(discountsvc.Deps{
		Codes:     st.discounts,
		Customers: st.customers,
		Rules:     rules,
		Tracker:   tracker,
		Policy:    policy,
		Logger:    logger.Named("discount"),
	})
	if err != nil {
		return err
	}

	registry, err := tools.New(tools.Services{
		Sessions:  sessions,
		Customers: customers,
		Catalog:   catalog,
		Cart:      carts,
		Checkout:  checkout,
		Booking:   bookings,
		Discounts: discounts,
	}, logger.Named("tools"))
	if err != nil {
		return err
	}

	srv, err := httpserver.New(cfg.HTTPAddr, logger.Named("http"), httpserver.Deps{
		Sessions:       sessions,
		Tools:          registry,
		Catalog:        catalog,
		Customers:      customers,
		Bookings:       bookings,
		Discounts:      discounts,
		Orders:         st.orders,
		Ready:          allReady(ready),
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return nil
	}
	logger.Info("server stopped")
	return nil
}

func memoryStores() stores {
	return stores{
		products:   productrepo.NewMemory(),
		categories: categoryrepo.NewMemory(),
		customers:  customerrepo.NewMemory(),
		sessions:   sessionrepo.NewMemory(),
		carts:      cartrepo.NewMemory(),
		orders:     orderrepo.NewMemory(),
		bookings:   bookingrepo.NewMemory(),
		discounts:  discountrepo.NewMemory(),
	}
}

func postgresStores(pool *pgxpool.Pool, logger *zap.Logger) stores {
	repoLogger := logger.Named("repository")
	return stores{
		products:   productrepo.NewPostgres(pool, repoLogger),
		categories: categoryrepo.NewPostgres(pool),
		customers:  customerrepo.NewPostgres(pool, repoLogger),
		sessions:   sessionrepo.NewPostgres(pool, repoLogger),
		carts:      cartrepo.NewPostgres(pool, repoLogger),
		orders:     orderrepo.NewPostgres(pool, repoLogger),
		bookings:   bookingrepo.NewPostgres(pool, repoLogger),
		discounts:  discountrepo.NewPostgres(pool, repoLogger),
	}
}

func allReady(checks []func(context.Context) error) func(context.Context) error {
	if len(checks) == 0 {
		return nil
	}
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
