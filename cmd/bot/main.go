package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "github.com/lib/pq"

	"github.com/gtclub/gtclub-bot/internal/bot"
	"github.com/gtclub/gtclub-bot/internal/engine"
	"github.com/gtclub/gtclub-bot/internal/flow"
	"github.com/gtclub/gtclub-bot/internal/health"
	"github.com/gtclub/gtclub-bot/internal/idempotency"
	"github.com/gtclub/gtclub-bot/internal/journal"
	"github.com/gtclub/gtclub-bot/internal/lifecycle"
	"github.com/gtclub/gtclub-bot/internal/session"
	"github.com/gtclub/gtclub-bot/pkg/config"
	"github.com/gtclub/gtclub-bot/pkg/graceful"
	"github.com/gtclub/gtclub-bot/pkg/logger"
	"github.com/gtclub/gtclub-bot/pkg/metrics"
	redispkg "github.com/gtclub/gtclub-bot/pkg/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(*cfg)
	log.Info("starting gtclub bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("flow", cfg.Flow.Path))

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			log.Error("failed to initialize sentry", slog.Any("error", err))
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// An incoherent flow definition is fatal; the engine must not run
	// against a broken graph.
	graph, err := flow.Load(cfg.Flow.Path)
	if err != nil {
		log.Error("invalid flow definition", slog.Any("error", err))
		os.Exit(1)
	}

	flows := flow.NewProvider(graph, cfg.Flow.Path, log)
	if cfg.Flow.Watch {
		go func() {
			if err := flows.Watch(ctx); err != nil {
				log.Error("flow watcher stopped", slog.Any("error", err))
			}
		}()
	}

	sessions := session.NewStore(flow.StateStart)
	go metrics.NewSessionCollector(sessions).Run(ctx)

	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log)

	var redisClient *redispkg.Client
	var idemStore idempotency.Store
	if cfg.Redis.Enabled {
		redisClient, err = redispkg.New(ctx, cfg.Redis.Config)
		if err != nil {
			log.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		redisClient.InstrumentMetrics()
		checker.AddCheck("redis", redisClient)
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })

		idemStore = idempotency.NewRedisStore(redisClient.Client, log)
	} else {
		memStore := idempotency.NewMemoryStore()
		go memStore.Run(ctx, time.Minute)
		idemStore = memStore
	}
	idem := idempotency.NewManager(idemStore, log)

	var orderJournal engine.Journal
	if cfg.Database.Enabled {
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			log.Error("failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to ping database", slog.Any("error", err))
			os.Exit(1)
		}
		if err := journal.NewMigrator(db, log).ApplyDir(ctx, cfg.Database.MigrationsDir); err != nil {
			log.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}

		pg := journal.NewPostgres(db, log)
		orderJournal = pg
		checker.AddCheck("postgres", pg)
		shutdown.Register("postgres", func(context.Context) error { return db.Close() })
	}

	b, err := bot.New(*cfg, log, idem)
	if err != nil {
		log.Error("failed to initialize telegram bot", slog.Any("error", err))
		os.Exit(1)
	}

	eng := engine.New(flows, sessions, b.Sender(), orderJournal, cfg.Admin.ChatID, log)
	b.Attach(eng)
	b.RegisterCommands(graph.Commands)

	checker.AddCheck("telegram", b)
	shutdown.Register("telegram-bot", func(context.Context) error {
		b.Stop()
		return nil
	})

	mux := http.NewServeMux()
	mux.Handle("/healthz", checker.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	ops := graceful.NewServer(log, &http.Server{
		Addr:    cfg.Server.Port,
		Handler: logger.Middleware(mux),
	}, cfg.Server.ShutdownTimeout)
	go func() {
		if err := ops.ListenAndServe(ctx); err != nil {
			log.Error("ops server stopped", slog.Any("error", err))
		}
	}()

	go b.Start()
	log.Info("gtclub bot is running", slog.Int("states", len(graph.States)))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("gtclub bot stopped")
}
