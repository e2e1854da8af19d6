// @title           Blog API
// @version         1.0
// @description     博客后端：文章、评论、点赞、收藏与通知
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogapi/config"
	"github.com/d60-Lab/blogapi/internal/app"
	"github.com/d60-Lab/blogapi/pkg/blob"
	"github.com/d60-Lab/blogapi/pkg/database"
	"github.com/d60-Lab/blogapi/pkg/eventbus"
	"github.com/d60-Lab/blogapi/pkg/logger"
	"github.com/d60-Lab/blogapi/pkg/tracing"
)

func must[T any](v T, err error) T {
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	return v
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger 尚未初始化
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := must(tracing.Init(ctx, cfg.Tracing, cfg.Sentry.Environment))
	db := must(database.InitDB(cfg))
	defer database.Close(db)

	deps := app.Deps{DB: db}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, cache disabled until it recovers", zap.Error(err))
		}
		deps.Redis = rdb
	}
	if cfg.Storage.Endpoint != "" {
		store := must(blob.NewMinioStore(cfg.Storage))
		if err := store.EnsureBucket(ctx); err != nil {
			logger.Warn("ensure bucket", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
		deps.Blob = store
	}
	var publisher *eventbus.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = eventbus.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		deps.Publisher = publisher
	}

	a := app.Build(cfg, deps)
	var stopRelay func(context.Context) error
	if a.Relay != nil {
		stopRelay = a.Relay.Start()
		logger.Info("outbox relay started", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if stopRelay != nil {
		if err := stopRelay(sctx); err != nil {
			logger.Error("outbox relay stop", zap.Error(err))
		}
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	if err := shutdownTracing(sctx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
