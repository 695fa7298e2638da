package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/amezav/storefront-backend/api/routes"
	authsvc "github.com/amezav/storefront-backend/internal/auth"
	"github.com/amezav/storefront-backend/internal/cart"
	"github.com/amezav/storefront-backend/internal/catalog"
	"github.com/amezav/storefront-backend/internal/categories"
	checkoutsvc "github.com/amezav/storefront-backend/internal/checkout"
	"github.com/amezav/storefront-backend/internal/inventory"
	"github.com/amezav/storefront-backend/internal/media"
	"github.com/amezav/storefront-backend/internal/orders"
	"github.com/amezav/storefront-backend/internal/users"
	"github.com/amezav/storefront-backend/pkg/auth/session"
	"github.com/amezav/storefront-backend/pkg/config"
	"github.com/amezav/storefront-backend/pkg/db"
	"github.com/amezav/storefront-backend/pkg/logger"
	"github.com/amezav/storefront-backend/pkg/metrics"
	"github.com/amezav/storefront-backend/pkg/migrate"
	"github.com/amezav/storefront-backend/pkg/outbox"
	"github.com/amezav/storefront-backend/pkg/redis"
	"github.com/amezav/storefront-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	// GCS is optional in local setups; media endpoints report a dependency
	// error until a bucket is configured.
	var gcsClient *gcs.Client
	if cfg.GCS.BucketName != "" {
		gcsClient, err = gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap gcs", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "gcs bucket not configured, media uploads disabled")
	}

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	categoriesRepo := categories.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	ledger := inventory.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		RateLimiter:    redisClient,
		JWTConfig:      cfg.JWT,
		RateLimit:      cfg.AuthRateLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := authsvc.NewRegisterService(authsvc.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	var mediaService media.Service
	var mediaRemover *media.Remover
	if gcsClient != nil {
		mediaService, err = media.NewService(media.NewRepository(conn), gcsClient, cfg.GCS)
		if err != nil {
			logg.Error(context.Background(), "failed to create media service", err)
			os.Exit(1)
		}
		mediaRemover, err = media.NewRemover(gcsClient, cfg.GCS.BucketName)
		if err != nil {
			logg.Error(context.Background(), "failed to create media remover", err)
			os.Exit(1)
		}
	}

	var catalogService catalog.Service
	if mediaRemover != nil {
		catalogService, err = catalog.NewService(catalogRepo, ledger, dbClient, outboxSvc, mediaRemover, logg)
	} else {
		catalogService, err = catalog.NewService(catalogRepo, ledger, dbClient, outboxSvc, nil, logg)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	categoryService, err := categories.NewService(categoriesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create categories service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(cartRepo, ordersRepo, ledger, dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, ledger, dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	handler := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		DBPinger:        dbClient,
		RedisPinger:     redisClient,
		GCSPinger:       gcsPinger(gcsClient),
		SessionManager:  sessionManager,
		HTTPMetrics:     httpMetrics,
		MetricsGatherer: prometheus.DefaultGatherer,
		AuthService:     authService,
		RegisterService: registerService,
		CatalogService:  catalogService,
		CategoryService: categoryService,
		CartService:     cartService,
		CheckoutService: checkoutService,
		OrdersService:   ordersService,
		MediaService:    mediaService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(timeoutCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}

// gcsPinger keeps the typed-nil out of the Pinger interface so readiness
// reports the dependency as skipped instead of panicking.
func gcsPinger(client *gcs.Client) gcs.Pinger {
	if client == nil {
		return nil
	}
	return client
}
