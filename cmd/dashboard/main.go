package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routinedash/internal/apiclient"
	"routinedash/internal/autoschedule"
	"routinedash/internal/dashboard"
	"routinedash/internal/handler"
	"routinedash/internal/httpserver"
	"routinedash/internal/mockdata"
	"routinedash/internal/mutation"
	"routinedash/internal/querycache"
	"routinedash/internal/realtime"
	"routinedash/internal/repository"
	"routinedash/internal/taskstore"
	"routinedash/pkg/circuitbreaker"
	"routinedash/pkg/config"
	"routinedash/pkg/db"
	"routinedash/pkg/logger"
	"routinedash/pkg/metrics"
	"routinedash/pkg/mq"
	"routinedash/pkg/otel"
	"routinedash/pkg/outbox"
	"routinedash/pkg/rbac"
	redisclient "routinedash/pkg/redis"
	"routinedash/pkg/util"
)

var version = "dev"

func main() {
	cfg, err := config.Load(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.NewLogger(cfg.LogLevel)
	defer logg.Sync()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownOTel, err := otel.Init(otel.Config{
		ServiceName:    "routinedash",
		ServiceVersion: version,
		Endpoint:       cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
	}, logg)
	if err != nil {
		logg.Warn("OpenTelemetry init failed, tracing disabled", zap.Error(err))
		shutdownOTel = func() {}
	}
	defer shutdownOTel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	demoUser := cfg.API.DemoUserID
	if demoUser == "" {
		demoUser = mockdata.DefaultUser
	}

	logg.Info("Starting routinedash...",
		zap.String("env", cfg.Env),
		zap.String("api_url", cfg.API.BaseURL),
		zap.Bool("mock", cfg.API.Mock),
		zap.String("demo_user", demoUser),
	)

	// 后端客户端 + 熔断器
	cbCfg := circuitbreaker.DefaultConfig()
	cbCfg.IsFailure = util.IsTransient
	cbCfg.OnStateChange = func(from, to circuitbreaker.State) {
		metrics.SetCircuitState("backend", int(to))
		logg.Warn("Backend circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	clientOpts := []apiclient.Option{
		apiclient.WithBreaker(circuitbreaker.NewCircuitBreaker(cbCfg)),
		apiclient.WithLogger(logg),
	}
	if token, err := util.GenerateJWT(demoUser, rbac.RoleUser, cfg.JWT.Secret, 24*time.Hour); err == nil {
		clientOpts = append(clientOpts, apiclient.WithToken(token))
	}
	client := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout, clientOpts...)

	var dashBackend dashboard.Backend = client
	var mock *mockdata.Store
	if cfg.API.Mock {
		mock = mockdata.NewStore(time.Now())
		dashBackend = mock
	}

	checks := map[string]httpserver.ReadyCheck{}
	mergerOpts := []realtime.MergerOption{realtime.WithDefaultUser(demoUser)}
	var snapshots dashboard.SnapshotStore

	// Redis：实时事件去重 + 看板快照
	if cfg.Redis.Enabled {
		rdb, err := redisclient.NewRedisClient(cfg.Redis, logg)
		if err != nil {
			logg.Warn("Redis unavailable, running without dedup and snapshots", zap.Error(err))
		} else {
			defer rdb.Close()
			snapRepo := repository.NewSnapshotRepository(rdb, cfg.Redis.SnapshotTTL)
			snapshots = snapRepo
			mergerOpts = append(mergerOpts,
				realtime.WithDeduper(util.NewDeduper(rdb, cfg.Realtime.DedupTTL, logg)),
				realtime.WithSnapshots(snapRepo),
			)
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}

	var publisher *mq.Publisher
	if cfg.MQ.Enabled {
		publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			logg.Warn("MQ publisher unavailable, committed mutations stay in the journal", zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
			checks["mq"] = func(context.Context) error {
				if !publisher.IsConnected() {
					return errors.New("publisher disconnected")
				}
				return nil
			}
		}
	}

	// Postgres：修改日志 + dispatcher
	var journal mutation.Journal
	var admin *handler.AdminHandler
	if cfg.DB.Enabled {
		pool, err := db.NewConnection(cfg.DB, logg)
		if err != nil {
			logg.Fatal("Failed to init DB", zap.Error(err))
		}
		defer pool.Close()

		repo := outbox.NewRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			logg.Fatal("Failed to prepare mutation journal", zap.Error(err))
		}
		journal = repo
		checks["db"] = pool.Ping

		if publisher != nil {
			dispatcher := outbox.NewDispatcher(repo, publisher, logg).
				WithInterval(cfg.Journal.Interval).
				WithBatchSize(cfg.Journal.BatchSize).
				WithMaxRetries(cfg.Journal.MaxRetries)
			go dispatcher.Start(ctx)
			admin = handler.NewAdminHandler(outbox.NewReplayService(repo, publisher), repo, logg)
		}
	}

	cache := querycache.New()
	tasks := taskstore.New()
	coord := mutation.NewCoordinator(tasks, cache, client, journal, logg)
	dash := dashboard.NewService(dashBackend, cache, snapshots, logg)
	merger := realtime.NewMerger(cache, tasks, logg, mergerOpts...)

	reconcile := realtime.ReconcilerFunc(func(ctx context.Context, userID string) error {
		return errors.Join(dash.Reconcile(ctx, userID), coord.Refetch(ctx, userID))
	})

	// 实时来源：mock 广播 / websocket / AMQP，全部汇入同一个 Merger
	switch {
	case mock != nil:
		mock.OnChange(func(userID string, ev realtime.Event) {
			merger.Apply(context.Background(), "mock", userID, ev)
		})
	case cfg.Realtime.Enabled:
		rt := realtime.NewClient(realtime.ClientConfig{
			BaseURL:         cfg.Realtime.WSBaseURL,
			UserID:          demoUser,
			Policy:          realtime.NewPolicy(cfg.Realtime.Backoff, cfg.Realtime.ReconnectDelay, cfg.Realtime.MaxDelay),
			InvalidateDelay: cfg.Realtime.InvalidateDelay,
		}, merger, reconcile, logg)
		go func() {
			if err := rt.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error("Realtime client stopped", zap.Error(err))
			}
		}()
	}

	if cfg.MQ.Enabled {
		consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Queue, mq.RoutingKeyDashboardEvent, logg)
		if err != nil {
			logg.Warn("MQ consumer unavailable, AMQP realtime source disabled", zap.Error(err))
		} else {
			defer consumer.Close()
			if publisher != nil {
				consumer.SetDLQ(publisher)
			}
			src := realtime.NewAMQPSource(consumer, merger, logg)
			go func() {
				if err := src.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logg.Error("AMQP realtime source stopped", zap.Error(err))
				}
			}()
		}
	}

	planner := autoschedule.NewPlanner(client, cache, logg)
	healer := autoschedule.NewBacklogHealer(client, coord, logg)

	router := httpserver.NewRouter(httpserver.Handlers{
		Dashboard: handler.NewDashboardHandler(dash, logg),
		Tasks:     handler.NewTaskHandler(coord, logg),
		Habits:    handler.NewHabitHandler(coord, logg),
		Progress:  handler.NewProgressHandler(coord, logg),
		Schedule:  handler.NewScheduleHandler(coord, planner, healer, logg),
		Assist:    handler.NewAssistHandler(client, coord, logg),
		Admin:     admin,
	}, cfg.JWT.Secret, checks, logg)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logg.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logg.Info("routinedash is fully initialized and running")

	<-ctx.Done()
	logg.Info("Shutting down routinedash gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		logg.Info("HTTP server stopped")
	}
	logg.Info("routinedash shutdown complete")
}
