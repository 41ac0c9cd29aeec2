package main

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/llcportal/consultations/libs/config"
	"github.com/llcportal/consultations/libs/db"
	"github.com/llcportal/consultations/libs/httpx"
	"github.com/llcportal/consultations/libs/kafkax"
	otelx "github.com/llcportal/consultations/libs/otel"
	"github.com/llcportal/consultations/libs/runtime"
	"github.com/llcportal/consultations/services/notification-service/internal/consumer"
	"github.com/llcportal/consultations/services/notification-service/internal/dispatch"
	"github.com/llcportal/consultations/services/notification-service/internal/email"
	"github.com/llcportal/consultations/services/notification-service/internal/inbox"
	"github.com/llcportal/consultations/services/notification-service/internal/storage"
	"github.com/llcportal/consultations/services/notification-service/internal/templates"
)

func main() {
	config.LoadDotEnv()
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	renderer, err := templates.NewRenderer()
	if err != nil {
		panic(err)
	}
	smtpPort, err := config.Port("SMTP_PORT", "1025")
	if err != nil {
		panic(err)
	}
	smtpPortNum, _ := strconv.Atoi(smtpPort)
	sender := email.NewSMTPSender(email.SMTPConfig{
		Host:     config.String("SMTP_HOST", "mailpit"),
		Port:     smtpPortNum,
		Username: config.String("SMTP_USERNAME", ""),
		Password: config.String("SMTP_PASSWORD", ""),
		From:     config.String("SMTP_FROM", "no-reply@llcportal.local"),
		FromName: config.String("SMTP_FROM_NAME", "LLC Portal"),
	})
	dispatcher := dispatch.New(renderer, sender, storage.NewRepository(pool), logger)

	brokers := config.String("KAFKA_BROKERS", "")
	eventConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
		Brokers:     brokers,
		GroupID:     config.String("KAFKA_GROUP_ID", "notification-service"),
		Topic:       config.String("KAFKA_CONSUME_TOPIC", "consultation.notification.requested.v1"),
		MaxAttempts: config.Int("NOTIFICATION_MAX_ATTEMPTS", 3),
	}, dispatcher.Handle)
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, "/healthz", "/readyz"),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	runtime.Shutdown(logger, 10*time.Second,
		runtime.Closer{Name: "http server", Close: srv.Shutdown},
		runtime.Closer{Name: "otel", Close: otelShutdown},
	)
}
