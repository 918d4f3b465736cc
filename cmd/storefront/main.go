package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/armysmp/storefront/internal/admin"
	"github.com/armysmp/storefront/internal/cart"
	"github.com/armysmp/storefront/internal/coupons"
	"github.com/armysmp/storefront/internal/fraud"
	"github.com/armysmp/storefront/internal/notifications"
	"github.com/armysmp/storefront/internal/orders"
	"github.com/armysmp/storefront/internal/products"
	"github.com/armysmp/storefront/internal/recommendations"
	"github.com/armysmp/storefront/internal/users"
	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/config"
	"github.com/armysmp/storefront/pkg/database"
	"github.com/armysmp/storefront/pkg/eventbus"
	"github.com/armysmp/storefront/pkg/health"
	"github.com/armysmp/storefront/pkg/httpclient"
	"github.com/armysmp/storefront/pkg/logger"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/armysmp/storefront/pkg/ratelimit"
	redisclient "github.com/armysmp/storefront/pkg/redis"
	"github.com/armysmp/storefront/pkg/resilience"
	"github.com/armysmp/storefront/pkg/storage"
	"github.com/armysmp/storefront/pkg/tracing"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	serviceName    = "storefront"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting storefront",
		zap.String("version", serviceVersion),
		zap.String("environment", cfg.Server.Environment),
	)

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Server.Environment,
			Release:          serviceName + "@" + serviceVersion,
			EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			logger.Warn("Failed to initialize Sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing, serviceName, serviceVersion, cfg.Server.Environment)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Schema migrations and readiness run on lib/pq; request traffic uses pgx
	sqlDB, err := database.OpenSQL(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, cfg.Server.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	db, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Connected to PostgreSQL")

	redis, err := redisclient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	var publisher eventbus.Publisher = eventbus.NoopPublisher{}
	natsConnected := func() bool { return true }
	if cfg.NATS.Enabled {
		bus, err := eventbus.Connect(cfg.NATS.URL, serviceName)
		if err != nil {
			logger.Warn("NATS unavailable, events disabled", zap.Error(err))
		} else {
			defer bus.Close()
			publisher = bus
			natsConnected = bus.IsConnected
			logger.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))
		}
	}

	// Notifications
	dispatcher := notifications.NewDispatcher(30 * time.Second)
	emailSender := notifications.NewSendGridSender(cfg.Email)
	if emailSender.MockMode() {
		logger.Info("SendGrid API key not set, emails will be logged only")
	}
	ordersHook := discordWebhook(cfg.Discord.OrdersWebhookURL, "discord-orders", cfg.Discord)
	alertsHook := discordWebhook(cfg.Discord.AlertsWebhookURL, "discord-alerts", cfg.Discord)
	notifier := notifications.NewNotifier(dispatcher, emailSender, ordersHook, alertsHook, publisher, cfg.Email.StaffEmail)

	// Fraud engine
	var blacklist fraud.BlacklistStore
	switch cfg.Fraud.BlacklistBackend {
	case "redis":
		blacklist = fraud.NewRedisBlacklist(redis.Client, cfg.Fraud.BlacklistKey)
	default:
		blacklist = fraud.NewMemoryBlacklist()
	}
	logger.Info("IP blacklist backend", zap.String("backend", cfg.Fraud.BlacklistBackend))

	usersRepo := users.NewRepository(db)
	fraudService := fraud.NewService(fraud.NewRepository(db), usersRepo, blacklist, fraud.WithNotifier(notifier))

	tokenTTL := time.Duration(cfg.JWT.Expiration) * time.Hour
	usersService := users.NewService(usersRepo, fraudService, cfg.JWT.Secret, tokenTTL)

	couponService := coupons.NewService(coupons.NewRepository(db))
	cartStore := cart.NewStore(redis)

	ordersService := orders.NewService(
		orders.NewRepository(db),
		couponService,
		fraudService,
		usersRepo,
		cartStore,
		notifier,
		dispatcher,
	)

	recsService := recommendations.NewService(recommendations.NewRepository(db), redis)
	warmer, err := recommendations.NewWarmer(recsService, recommendations.WarmSchedule)
	if err != nil {
		logger.Fatal("Failed to schedule trending warmup", zap.Error(err))
	}
	warmer.Start()
	defer warmer.Stop()

	var images storage.Storage
	if cfg.Storage.Bucket != "" {
		s3, err := storage.NewS3Storage(context.Background(), cfg.Storage)
		if err != nil {
			logger.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		images = s3
		logger.Info("Product image storage enabled", zap.String("bucket", cfg.Storage.Bucket))
	}
	productsService := products.NewService(products.NewRepository(db), images, cfg.Storage.MaxImageSizeMB)

	adminService := admin.NewService(cfg.Admin, cfg.JWT.Secret, tokenTTL, ordersService, fraudService)

	limiter := ratelimit.NewLimiter(redis.Client, cfg.RateLimit)
	checks := map[string]func(context.Context) error{
		"database": health.DatabaseChecker(sqlDB),
		"redis":    health.RedisChecker(redis.Client),
		"nats":     health.NATSChecker(natsConnected),
	}
	secret := cfg.JWT.Secret
	router := setupRouter(cfg, limiter, checks,
		func(r *gin.Engine) { users.NewHandler(usersService).RegisterRoutes(r, secret) },
		func(r *gin.Engine) { products.NewHandler(productsService).RegisterRoutes(r, secret) },
		cart.NewHandler(cartStore).RegisterRoutes,
		coupons.NewHandler(couponService).RegisterRoutes,
		func(r *gin.Engine) { orders.NewHandler(ordersService).RegisterRoutes(r, secret) },
		func(r *gin.Engine) { recommendations.NewHandler(recsService).RegisterRoutes(r, secret) },
		func(r *gin.Engine) { fraud.NewHandler(fraudService).RegisterRoutes(r, secret) },
		func(r *gin.Engine) {
			admin.NewHandler(adminService, time.Duration(cfg.Server.RequestTimeout)*time.Second).RegisterRoutes(r, secret)
		},
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	dispatcher.Wait()
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Server exited")
}

// setupRouter builds the engine with the shared middleware chain, probes and
// metrics, then lets each feature register its routes
func setupRouter(cfg *config.Config, limiter *ratelimit.Limiter, checks map[string]func(context.Context) error, routes ...func(*gin.Engine)) *gin.Engine {
	production := cfg.Server.Environment == "production"
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	if cfg.Sentry.DSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.SecurityHeaders(production))
	router.Use(middleware.MaxBodySize(int64(cfg.Storage.MaxImageSizeMB+1) << 20))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", cart.SessionHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", common.HealthCheck(serviceName, serviceVersion))
	router.GET("/health/ready", common.HealthCheckWithDeps(serviceName, serviceVersion, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Probes and metrics are registered first so the limiter never covers them
	router.Use(middleware.RateLimit(limiter, cfg.JWT.Secret))

	for _, register := range routes {
		register(router)
	}
	return router
}

// discordWebhook returns nil when url is empty so the notifier skips the channel
func discordWebhook(url, target string, cfg config.DiscordConfig) notifications.WebhookPoster {
	if url == "" {
		return nil
	}
	client := httpclient.NewClient(url, time.Duration(cfg.Timeout)*time.Second)
	breaker := resilience.NewCircuitBreaker(resilience.SettingsFor(target, cfg.Breaker), resilience.GracefulDegradation(target))
	return notifications.NewDiscordWebhook(client, breaker)
}
