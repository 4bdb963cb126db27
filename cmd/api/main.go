package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"docshare/docs"
	"docshare/internal/audit"
	"docshare/internal/auth"
	"docshare/internal/config"
	"docshare/internal/database"
	"docshare/internal/database/migration"
	handlers "docshare/internal/http/handler"
	"docshare/internal/http/middleware"
	"docshare/internal/logging"
	"docshare/internal/otel"
	"docshare/internal/ratelimit"
	"docshare/internal/reconcile"
	"docshare/internal/repository/postgres"
	"docshare/internal/service"
	"docshare/internal/storage"
)

// multipart framing on top of the largest accepted file
const bodySlack = 1 << 20

// @title Document Sharing API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()
	log := logging.New(cfg.LogLevel, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if _, err := migration.Run(ctx, db, log, cfg.Database.Host); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize object storage")
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.SessionTTL, cfg.Auth.ResetTTL)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize token manager")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Repositories
	docRepo := postgres.NewDocumentPostgres(db)
	shareRepo := postgres.NewSharePostgres(db)
	profileRepo := postgres.NewProfilePostgres(db)
	allowRepo := postgres.NewAuthorizedEmailPostgres(db)
	rateRepo := postgres.NewRateLimitPostgres(db)

	rec := audit.NewLogger(postgres.NewAuditPostgres(db), log)

	counter, pruner, closeCounter := rateLimitBackend(ctx, cfg, rateRepo, log)
	defer closeCounter()
	limiter := ratelimit.NewLimiter(counter,
		ratelimit.WithFailOpen(cfg.RateLimit.FailOpen),
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(reg),
	)

	policy := service.DefaultUploadPolicy()
	policy.MinBytes = cfg.Upload.MinBytes
	policy.MaxBytes = cfg.Upload.MaxBytes
	policy.Rule = ratelimit.Rule{MaxAttempts: cfg.Upload.MaxAttempts, Window: cfg.Upload.Window}
	uploads := service.NewUploadValidator(limiter, rec, policy)
	authLimits := service.NewAuthRateLimiter(limiter, rec, nil)

	svc := handlers.Services{
		Documents: service.NewDocumentService(objStore, docRepo, shareRepo, uploads, rec,
			service.WithSignedURLTTL(cfg.MinIO.SignedURLTTL),
			service.WithDocumentLogger(log),
		),
		Shares:    service.NewShareService(docRepo, shareRepo, profileRepo, rec),
		Uploads:   uploads,
		AuthLimit: authLimits,
		Accounts: service.NewAccountService(profileRepo, allowRepo, auth.NewHasher(nil), tokens, authLimits,
			service.LogResetNotifier{Log: log}, rec,
			service.AccountConfig{
				Gate:       service.SignupGate(cfg.Auth.SignupGate),
				AccessCode: cfg.Auth.AccessCode,
				ResetURL:   cfg.Auth.ResetURL,
			}, log),
		Allowlist: service.NewAllowlistService(allowRepo, rec),
	}

	if cfg.Reconcile.Enabled {
		rc := reconcile.New(docRepo, objStore, pruner, cfg.Reconcile.BatchSize, log)
		if err := rc.Start(cfg.Reconcile.Schedule); err != nil {
			log.WithError(err).Fatal("failed to start reconciler")
		}
		defer rc.Stop()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		ProxyHeader:           cfg.ProxyHeader,
		BodyLimit:             int(cfg.Upload.MaxBytes) + bodySlack,
		DisableStartupMessage: true,
	})

	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.WithError(err).Fatal("failed to register http metrics")
	}

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(middleware.Origin())
	app.Use(promMW.Handler())
	app.Use(otelfiber.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, db, svc, middleware.RequireAuth(tokens, profileRepo))

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("server listening")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("server stopped")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}

// rateLimitBackend returns the configured counter, the pruner for expired
// windows (nil for Redis, which expires keys itself) and a close func.
func rateLimitBackend(ctx context.Context, cfg *config.AppConfig, pg *postgres.RateLimitPostgres, log logrus.FieldLogger) (ratelimit.Counter, reconcile.Pruner, func()) {
	if cfg.RateLimit.Backend != "redis" {
		return pg, pg, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	log.WithField("addr", cfg.Redis.Addr).Info("rate limits counted in redis")
	return ratelimit.NewRedisCounter(rdb, "docshare:rl:"), nil, func() { _ = rdb.Close() }
}
