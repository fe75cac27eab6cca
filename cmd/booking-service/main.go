package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vic-it/epm-booking/internal/availability"
	"github.com/vic-it/epm-booking/internal/events"
	"github.com/vic-it/epm-booking/internal/handlers"
	"github.com/vic-it/epm-booking/internal/notify"
	"github.com/vic-it/epm-booking/internal/storage"
	"github.com/vic-it/epm-booking/libs/config"
	"github.com/vic-it/epm-booking/libs/db"
	"github.com/vic-it/epm-booking/libs/httpx"
	"github.com/vic-it/epm-booking/libs/kafkax"
	otelx "github.com/vic-it/epm-booking/libs/otel"
	"github.com/vic-it/epm-booking/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func buildSender(logger *slog.Logger) notify.Sender {
	switch provider := config.String("NOTIFY_PROVIDER", "noop"); provider {
	case "template":
		return notify.NewTemplateAPISender(
			config.String("NOTIFY_TEMPLATE_API_URL", "https://api.emailjs.com/api/v1.0/email/send"),
			config.String("NOTIFY_TEMPLATE_SERVICE_ID", ""),
			config.String("NOTIFY_TEMPLATE_PUBLIC_KEY", ""),
		)
	case "smtp":
		return notify.NewSMTPSender(
			config.String("SMTP_HOST", "localhost"),
			config.String("SMTP_PORT", "1025"),
			config.String("SMTP_FROM", ""),
		)
	default:
		if provider != "noop" {
			logger.Warn("unknown notify provider; falling back to noop", "provider", provider)
		}
		return notify.NewNoopSender()
	}
}

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
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

	if err := storage.Migrate(ctx, pool); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	repo := storage.NewBookingRepository(pool)
	resolver := availability.NewResolver(repo, logger)

	notifier := notify.NewService(
		buildSender(logger),
		logger,
		config.String("NOTIFY_CUSTOMER_TEMPLATE_ID", "booking-customer"),
		config.String("NOTIFY_OPERATOR_TEMPLATE_ID", "booking-operator"),
		config.String("NOTIFY_OPERATOR_EMAIL", ""),
	)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := events.NewPublisher(brokers, config.String("KAFKA_TOPIC", "bookings.events"), logger)
	defer func() { _ = publisher.Close() }()

	bookingHandler := handlers.NewBookingHandler(repo, resolver, notifier, publisher, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if publisher.Enabled() {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/quote", bookingHandler.Quote)
	mux.HandleFunc("/api/v1/bookings", bookingHandler.Create)

	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 30)
	var limit httpx.Middleware
	if rdb != nil {
		limit = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service).Middleware(logger, true)
	} else {
		limit = httpx.NewRateLimiter(rateLimit, time.Minute).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("ALLOWED_ORIGINS"),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(1<<20),
		limit,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, service)

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

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
