package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/llcportal/consultations/libs/auth"
	"github.com/llcportal/consultations/libs/config"
	"github.com/llcportal/consultations/libs/db"
	"github.com/llcportal/consultations/libs/httpx"
	"github.com/llcportal/consultations/libs/kafkax"
	otelx "github.com/llcportal/consultations/libs/otel"
	"github.com/llcportal/consultations/libs/runtime"
	"github.com/llcportal/consultations/services/booking-service/internal/audit"
	"github.com/llcportal/consultations/services/booking-service/internal/booking"
	"github.com/llcportal/consultations/services/booking-service/internal/civiltime"
	"github.com/llcportal/consultations/services/booking-service/internal/handlers"
	"github.com/llcportal/consultations/services/booking-service/internal/outbox"
	"github.com/llcportal/consultations/services/booking-service/internal/reminders"
	"github.com/llcportal/consultations/services/booking-service/internal/storage"
)

func main() {
	config.LoadDotEnv()
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	zone, err := civiltime.Load(config.String("CIVIL_TIME_ZONE", civiltime.DefaultZone))
	if err != nil {
		logger.Error("time zone load failed", "err", err)
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	brokers := config.String("KAFKA_BROKERS", "")
	outboxRepo := outbox.NewRepository()
	auditRepo := audit.NewRepository(pool)
	bookings := storage.NewBookingRepository(pool, outboxRepo, auditRepo)
	catalog := storage.NewCatalogRepository(pool)
	recipients := booking.NewRecipients(storage.NewAccountRepository(pool))
	notifier := outbox.NewNotifier(pool, outboxRepo)

	svc := booking.NewService(catalog, bookings, zone, notifier, recipients, logger, booking.Config{
		SameDayLead: time.Duration(config.Int("SAME_DAY_LEAD_MINUTES", 60)) * time.Minute,
	})
	manager := booking.NewManager(bookings, catalog, zone, notifier, recipients, logger)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	scheduler := reminders.New(bookings, catalog, recipients, zone, logger, reminders.Config{
		Interval: config.Seconds("REMINDER_TICK_SECONDS", 5*time.Minute),
	})
	go scheduler.Run(ctx)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	limiter, rdb := newLimiter(logger)
	if rdb != nil {
		defer rdb.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Routes{
		Public:    handlers.NewPublicHandler(svc, manager, logger),
		Account:   handlers.NewAccountHandler(svc, manager, logger),
		Admin:     handlers.NewAdminHandler(svc, manager, auditRepo, logger),
		BookLimit: httpx.RateLimit(limiter, "public-book", logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)),
	}.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, "/healthz", "/readyz"),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Accept-Language", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(64<<10),
		auth.WithIdentity(jwtSecret),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	if err := startGrpcServer(ctx, logger); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	runtime.Shutdown(logger, 10*time.Second,
		runtime.Closer{Name: "http server", Close: srv.Shutdown},
		runtime.Closer{Name: "otel", Close: otelShutdown},
	)
}

// newLimiter shares the booking budget across replicas through Redis when REDIS_ADDR is set.
func newLimiter(logger *slog.Logger) (httpx.Limiter, *redis.Client) {
	perMinute := config.Int("RATE_LIMIT_PER_MINUTE", 10)
	addr := strings.TrimSpace(config.String("REDIS_ADDR", ""))
	if addr == "" {
		logger.Info("rate limiter using process memory")
		return httpx.NewMemoryLimiter(perMinute, time.Minute), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	return httpx.NewRedisLimiter(rdb, perMinute, time.Minute, "booking:ratelimit"), rdb
}
