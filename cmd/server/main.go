package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/memorywall/memorywall/database/connect"
	"github.com/memorywall/memorywall/internal/config"
	"github.com/memorywall/memorywall/internal/resolver"
	"github.com/memorywall/memorywall/internal/scheduler"
	"github.com/memorywall/memorywall/internal/server"
	"github.com/memorywall/memorywall/internal/service/announcement"
	"github.com/memorywall/memorywall/internal/service/moderation"
	"github.com/memorywall/memorywall/internal/service/stats"
	"github.com/memorywall/memorywall/internal/service/submission"
	"github.com/memorywall/memorywall/internal/service/vote"
	"github.com/memorywall/memorywall/pkg/logger"
	"github.com/memorywall/memorywall/pkg/metrics"
	"github.com/memorywall/memorywall/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Environment: cfg.AppEnv,
		LogLevel:    cfg.LogLevel,
		ServiceName: cfg.AppName,
	})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connect.ConnectPostgres(ctx, log, cfg)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	// Redis is an accelerator, not a dependency: the service runs uncached
	// when it is unreachable.
	var cache *redis.Cache
	var redisClient *redis.Client
	if cfg.RedisHost != "" {
		client, err := redis.NewClient(redis.Config{
			Host:         cfg.RedisHost,
			Port:         cfg.RedisPort,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
			MaxRetries:   cfg.RedisMaxRetries,
		}, log)
		if err != nil {
			log.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			defer func() { _ = client.Close() }()
			redisClient = client
			cache = redis.NewCache(client, cfg.AppName, "api")
		}
	}

	rules, err := moderation.LoadRules(cfg.ModerationRulesPath, log)
	if err != nil {
		log.Fatal("moderation rules load failed", zap.Error(err))
	}
	defer func() { _ = rules.Close() }()

	classifier := moderation.NewHTTPClassifier(moderation.ClassifierConfig{
		Endpoint: cfg.ClassifierEndpoint,
		APIKey:   cfg.ClassifierAPIKey,
		Timeout:  cfg.ClassifierTimeout,
	}, log)
	engine := moderation.NewEngine(classifier, rules, moderation.Thresholds{
		Reject:  cfg.ModerationRejectThreshold,
		Approve: cfg.ModerationApproveThreshold,
	}, log)

	res := resolver.New(&http.Client{Timeout: 10 * time.Second}, log)

	submissionRepo := submission.NewRepository(db)
	announcementRepo := announcement.NewRepository(db)

	submissions := submission.NewService(submissionRepo, res, engine, cache, cfg.WeeklySubmissionLimit, log)
	votes := vote.NewService(submissionRepo, log)
	announcements := announcement.NewService(announcementRepo, cache, log)
	weeklyStats := stats.NewService(submissionRepo, cfg.WeeklySubmissionLimit, log)

	requeue := scheduler.NewRequeue(submissionRepo, engine, log)
	cronRunner, err := scheduler.Start(cfg.RequeueSchedule, requeue, log)
	if err != nil {
		log.Fatal("requeue scheduler failed to start", zap.Error(err))
	}

	srv := server.New(cfg.AppPort, server.Deps{
		Log:           log,
		Submissions:   submissions,
		Votes:         votes,
		Announcements: announcements,
		Stats:         weeklyStats,
		DB:            db,
		Redis:         redisClient,
		AdminToken:    cfg.AdminToken,
	})

	metricsSrv := metrics.NewServer(cfg.MetricsPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		log.Info("Starting metrics server", zap.String("address", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		cronCtx := cronRunner.Stop()
		<-cronCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown failed", zap.Error(err))
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
