package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"seam/internal/pkg/logger"
	"seam/internal/pkg/shutdown"
	"seam/internal/storage"
	"seam/internal/worker"
	"seam/internal/worker/util"
)

func main() {
	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "seam-worker",
		AddSource:   util.BoolEnv("LOG_SOURCE", false),
	})

	log.Info("starting SEAM worker",
		"version", "0.1.0",
	)

	dbURL := util.MustEnv("DATABASE_URL")
	redisAddr := util.MustEnv("REDIS_ADDR")
	storageRoot := util.Env("STORAGE_LOCAL_ROOT", "/data")
	queueName := util.Env("JOB_QUEUE_NAME", "seam:jobs")
	cleanupLocal := util.BoolEnv("CLEANUP_LOCAL", true)

	ctx := context.Background()

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	log.Info("PostgreSQL connected")

	log.Info("connecting to Redis")
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	log.Info("Redis connected")

	log.Info("initializing storage provider")
	sp, err := storage.NewProvider()
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	runCtx, cancel := context.WithCancel(ctx)
	shutdownMgr.RegisterSimple("worker-loop", func() {
		cancel()
	})

	go func() {
		err := worker.Run(runCtx, worker.Deps{
			Pool:         pool,
			RDB:          rdb,
			QueueName:    queueName,
			StorageRoot:  storageRoot,
			CleanupLocal: cleanupLocal,
			SP:           sp,
			Log:          log,
		})
		if err != nil && runCtx.Err() == nil {
			log.LogFatal("worker loop failed", err)
		}
	}()

	shutdownMgr.Wait()
}
