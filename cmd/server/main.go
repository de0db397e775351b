package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"mentorship-service/internal/app"
	"mentorship-service/internal/auth"
	"mentorship-service/internal/booking"
	"mentorship-service/internal/calendar"
	"mentorship-service/internal/config"
	"mentorship-service/internal/events"
	"mentorship-service/internal/server"
	"mentorship-service/internal/store/firebase"
	"mentorship-service/internal/store/memory"
	"mentorship-service/internal/store/postgres"
	"mentorship-service/internal/telemetry"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	logger := telemetry.NewLogger(cfg.App.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.Otel.Enabled,
		ServiceName:  cfg.App.Name,
		OTLPEndpoint: cfg.Otel.OTLPEndpoint,
		SampleRatio:  cfg.Otel.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	repo, checks, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	authn, err := auth.New(cfg.Auth.JWTSecret, cfg.Auth.StaticTokens)
	if err != nil {
		return err
	}

	cal, err := calendar.New(calendar.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})
	if errors.Is(err, calendar.ErrNotConfigured) {
		logger.Warn("google calendar disabled", "reason", err)
		cal = nil
	} else if err != nil {
		return err
	}

	var pub events.Publisher = events.NopPublisher{}
	if brokers := events.SplitBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		pub = events.NewKafkaPublisher(brokers)
		checks = append(checks, server.ReadyCheck{Name: "kafka", Check: events.ReadyCheck(brokers)})
		logger.Info("publishing events to kafka", "brokers", brokers)
	}
	defer pub.Close()

	var limit gin.HandlerFunc
	if cfg.RateLimit.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		defer rdb.Close()
		rl := server.NewRateLimiter(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window, cfg.App.Name)
		limit = rl.Middleware(logger, true, func(c *gin.Context) string {
			if sess, ok := auth.SessionFrom(c); ok {
				return "user:" + sess.UserID
			}
			return "ip:" + c.ClientIP()
		})
		checks = append(checks, server.ReadyCheck{Name: "redis", Check: rl.Ping})
	}

	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewEngine(logger)
	server.RegisterHealth(router, checks...)

	a := &app.App{
		Service:  booking.NewService(repo, booking.NewManager()),
		Calendar: cal,
		Events:   pub,
		Logger:   logger,
	}
	a.Routes(router, authn.Middleware(), limit)

	var handler http.Handler = router
	handler = otelhttp.NewHandler(handler, cfg.App.Name)

	logger.Info("starting server", "addr", cfg.Addr(), "store", cfg.Store)
	return server.Run(ctx, handler, cfg.Addr(), cfg.HTTP.ShutdownTimeout, logger)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (booking.Repository, []server.ReadyCheck, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.Postgres.Migrate {
			if err := pool.Migrate(ctx); err != nil {
				pool.Close()
				return nil, nil, nil, err
			}
		}
		checks := []server.ReadyCheck{{Name: "db", Check: postgres.ReadyCheck(pool)}}
		return postgres.NewRepository(pool), checks, pool.Close, nil

	case config.StoreFirebase:
		fb, err := firebase.New(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		checks := []server.ReadyCheck{{Name: "firebase", Check: fb.Ping}}
		return fb, checks, func() {}, nil

	default:
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil, func() {}, nil
	}
}
