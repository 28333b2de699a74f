package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"ms-booking/internal/affiliate"
	"ms-booking/internal/affiliate/affiliate_api"
	affiliatedb "ms-booking/internal/affiliate/db"
	"ms-booking/internal/analytics"
	analytics_api "ms-booking/internal/analytics/api"
	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	bookingdb "ms-booking/internal/booking/db"
	bookingredis "ms-booking/internal/booking/redis"
	"ms-booking/internal/catalog"
	"ms-booking/internal/catalog/catalog_api"
	catalogdb "ms-booking/internal/catalog/db"
	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/email"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/metrics"
	"ms-booking/internal/payment/midtrans"
	"ms-booking/internal/storage"
	ticketdb "ms-booking/internal/tickets/db"
	"ms-booking/internal/tickets/qr"
	tickets "ms-booking/internal/tickets/service"
	tickettemplate "ms-booking/internal/tickets/template"
	"ms-booking/internal/tickets/ticket_api"
)

func newVerifier(ctx context.Context, cfg config.AuthConfig, l *logger.Logger) (auth.TokenVerifier, error) {
	if cfg.OIDCIssuer != "" {
		l.Info("AUTH", fmt.Sprintf("Verifying bearer tokens against OIDC issuer %s", cfg.OIDCIssuer))
		return auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
	}
	l.Info("AUTH", "Verifying bearer tokens with the shared HS256 secret")
	return auth.NewHMACVerifier(cfg.JWTSecret), nil
}

func setupKafka(ctx context.Context, cfg config.KafkaConfig, l *logger.Logger) *kafka.Producer {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		l.Warn("KAFKA", "Kafka disabled, domain events will be dropped")
		return kafka.NewDisabledProducer(l)
	}

	l.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Brokers))
	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, cfg.Topics.All(), l); err != nil {
		l.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		l.Info("KAFKA", "Required topics ensured successfully")
	}
	return kafka.NewProducer(cfg.Brokers, l)
}

func runMigrations(cfg config.DatabaseConfig, l *logger.Logger) error {
	runner := migrations.NewRunner(cfg.DSN, l)
	defer func() {
		if err := runner.Close(); err != nil {
			l.Warn("MIGRATION", err.Error())
		}
	}()
	return runner.Up()
}

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	l := logger.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	defer l.Close()

	l.Info("APP", "Starting Booking Service initialization")
	if envErr != nil {
		l.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		l.Info("CONFIG", "Loaded environment variables from .env file")
	}
	if err := cfg.Validate(); err != nil {
		l.Fatal("CONFIG", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	bunDB, err := database.Connect(ctx, cfg.Database, l)
	if err != nil {
		l.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		if err := runMigrations(cfg.Database, l); err != nil {
			l.Fatal("MIGRATION", err.Error())
		}
	}

	redisClient, err := auth.InitializeRedis(ctx, cfg.Redis, l)
	if err != nil {
		l.Fatal("REDIS", err.Error())
	}
	defer redisClient.Close()

	// --- Messaging ---
	producer := setupKafka(ctx, cfg.Kafka, l)
	defer producer.Close()
	events := kafka.NewEventPublisher(producer, cfg.Kafka.Topics)

	// --- Integrations ---
	ticketStorage, err := storage.NewS3Storage(ctx, cfg.Storage, l)
	if err != nil {
		l.Fatal("STORAGE", err.Error())
	}
	renderer := tickettemplate.NewTicketPDFGenerator(qr.NewQRGenerator())
	mailer := email.NewMailer(cfg.Email, l)
	gateway := midtrans.NewClient(cfg.Midtrans, l)
	m := metrics.New()

	authz := auth.NewRoleChecker(
		&auth.BunRoleSource{DB: bunDB},
		auth.NewRedisRoleCache(redisClient, cfg.Redis.RoleCacheTTL),
		cfg.Auth.SuperAdminUID,
		l,
	)
	verifier, err := newVerifier(ctx, cfg.Auth, l)
	if err != nil {
		l.Fatal("AUTH", err.Error())
	}
	authMW := auth.Middleware(verifier, l)

	// --- Services ---
	bookingService := booking.NewBookingService(booking.Deps{
		DB:             &bookingdb.DB{Bun: bunDB},
		Gateway:        gateway,
		Lock:           bookingredis.NewWebhookLock(redisClient, cfg.Redis.WebhookLock),
		Renderer:       renderer,
		Storage:        ticketStorage,
		Mailer:         mailer,
		Events:         events,
		Authz:          authz,
		Metrics:        m,
		Logger:         l,
		CommissionRate: decimal.NewFromFloat(cfg.Affiliate.CommissionRatePercent),
	})
	ticketService := tickets.NewTicketService(&ticketdb.DB{Bun: bunDB}, authz, m, l)
	affiliateService := affiliate.NewAffiliateService(&affiliatedb.DB{Bun: bunDB}, authz, events, m, l)
	catalogService := catalog.NewCatalogService(&catalogdb.DB{Bun: bunDB}, authz, l)
	analyticsService := analytics.NewService(&analytics.DB{Bun: bunDB}, authz, l)

	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		consumer := kafka.NewRetryConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.FulfillmentRetry, cfg.Kafka.ConsumerGroup, l)
		defer consumer.Close()
		go func() {
			handle := func(ctx context.Context, msg kafka.FulfillmentRetry) error {
				return bookingService.RetryFulfillment(ctx, msg.BookingID, msg.Attempt)
			}
			if err := consumer.Run(ctx, handle); err != nil {
				l.Error("KAFKA", fmt.Sprintf("Fulfillment retry consumer stopped: %v", err))
			}
		}()
		l.Info("KAFKA", "Fulfillment retry consumer started")
	}

	// --- HTTP ---
	l.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(logger.RequestLogger(l))
	r.Use(m.Middleware)

	r.Get("/healthz", healthz(bunDB.PingContext, redisClient))
	r.Handle("/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		booking_api.NewHandler(bookingService, l).RegisterRoutes(r, authMW)
		ticket_api.NewHandler(ticketService, l).RegisterRoutes(r, authMW)
		affiliate_api.NewHandler(affiliateService, l).RegisterRoutes(r, authMW)
		catalog_api.NewHandler(catalogService, l).RegisterRoutes(r, authMW)
		analytics_api.NewHandler(analyticsService, l).RegisterRoutes(r, authMW)
	})
	l.Info("ROUTER", "API routes registered under /api")

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		l.Info("HTTP", fmt.Sprintf("🚀 Booking Service running on :%s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	l.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	l.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		l.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		l.Info("HTTP", "✅ Booking Service shutdown complete")
	}
	if err := bookingService.Drain(ctxShutdown); err != nil {
		l.Warn("FULFILLMENT", fmt.Sprintf("Ticket deliveries still running at shutdown: %v", err))
	}
}

func healthz(pingDB func(context.Context) error, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := `{"status":"ok"}`
		if err := pingDB(ctx); err != nil {
			status, body = http.StatusServiceUnavailable, `{"status":"degraded","component":"postgres"}`
		} else if err := rdb.Ping(ctx).Err(); err != nil {
			status, body = http.StatusServiceUnavailable, `{"status":"degraded","component":"redis"}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}
