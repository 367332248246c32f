package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/avellar-dev/slotgrid/libs/config"
	"github.com/avellar-dev/slotgrid/libs/db"
	"github.com/avellar-dev/slotgrid/libs/httpx"
	"github.com/avellar-dev/slotgrid/libs/kafkax"
	otelx "github.com/avellar-dev/slotgrid/libs/otel"
	"github.com/avellar-dev/slotgrid/libs/runtime"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/calendar"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/consumer"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/handlers"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/inbox"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/janitor"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/outbox"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8084")
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

	scheduleRepo := storage.NewScheduleRepository(pool)
	eventTypeRepo := storage.NewEventTypeRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	inboxRepo := inbox.NewRepository(pool)

	var redisClient *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		defer redisClient.Close()
	}

	busyCache := calendar.NewBusyCache(redisClient, config.Minutes("BUSY_CACHE_TTL_MINUTES", 2*time.Minute))
	grpcSource, err := calendar.NewGRPCSource("connector", config.String("CALENDAR_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("calendar connector init failed; feed runs without it", "err", err)
		grpcSource = nil
	}
	feed := calendar.NewFeed(logger, busyCache, 5*time.Second, grpcSource)

	// Without brokers the relay idles and outbox rows queue up; the consumer
	// stays off entirely.
	brokers := config.String("KAFKA_BROKERS", "")

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	// Connector pushes calendar sync notifications here; each one drops the
	// owner's cached busy ranges.
	topic := strings.TrimSpace(config.String("KAFKA_CONSUME_TOPIC", "calendar.busy.updated.v1"))
	if brokers != "" && topic != "" {
		invalidation := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "scheduling-service"),
			Topic:   topic,
		}, func(ctx context.Context, msg kafka.Message) error {
			var payload struct {
				OwnerID string `json:"owner_id"`
			}
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
				return nil
			}
			if payload.OwnerID == "" {
				logger.Error("missing owner_id in event", "topic", msg.Topic)
				return nil
			}
			return feed.Invalidate(ctx, payload.OwnerID)
		})
		go invalidation.Run(ctx)
	}

	sweeper := janitor.NewWorker(pool, bookingRepo, outboxRepo, inboxRepo, logger, janitor.Config{
		Interval:  config.Minutes("JANITOR_INTERVAL_MINUTES", 5*time.Minute),
		BatchSize: config.Int("JANITOR_BATCH_SIZE", 200),
		Retention: config.Minutes("JANITOR_RETENTION_MINUTES", 24*time.Hour),
	})
	go sweeper.Run(ctx)

	availabilityHandler := handlers.NewAvailabilityHandler(eventTypeRepo, scheduleRepo, bookingRepo, feed, logger)
	bookingHandler := handlers.NewBookingHandler(eventTypeRepo, scheduleRepo, bookingRepo, outboxRepo, feed, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleRepo, logger)
	eventTypeHandler := handlers.NewEventTypeHandler(eventTypeRepo, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	if redisClient != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/availability", availabilityHandler.Get)
	mux.HandleFunc("/api/v1/slots", availabilityHandler.Slots)
	mux.HandleFunc("/api/v1/bookings", bookingHandler.Handle)
	mux.HandleFunc("/api/v1/bookings/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/schedules", scheduleHandler.Handle)
	mux.HandleFunc("/api/v1/schedules/update", scheduleHandler.Update)
	mux.HandleFunc("/api/v1/schedules/delete", scheduleHandler.Delete)
	mux.HandleFunc("/api/v1/event-types", eventTypeHandler.Handle)
	mux.HandleFunc("/api/v1/event-types/update", eventTypeHandler.Update)
	mux.HandleFunc("/api/v1/event-types/delete", eventTypeHandler.Delete)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(30 * time.Second),
	}
	ratePerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if redisClient != nil {
		limiter := httpx.NewRedisRateLimiter(redisClient, ratePerMinute, time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		middlewares = append(middlewares, httpx.NewRateLimiter(ratePerMinute, time.Minute).Middleware())
	}
	if origins := config.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		middlewares = append(middlewares, httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", "Idempotency-Key", "X-Owner-Id"},
		}))
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")

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
