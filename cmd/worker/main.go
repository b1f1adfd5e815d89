package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hospitalattendance/internal/audit"
	"hospitalattendance/internal/bootstrap"
	"hospitalattendance/internal/config"
	"hospitalattendance/internal/metrics"
	"hospitalattendance/internal/store"
)

// Worker consumes recorded-attendance events and audits invalid attempts.
func main() {
	logger, err := bootstrap.NewLogger(config.Env())
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, cfg config.App, logger *zap.Logger) error {
	if cfg.QueueBackend != config.BackendRedis {
		return errors.New("worker needs QUEUE_BACKEND=redis; the api consumes in-memory queues itself")
	}
	if cfg.StoreBackend == config.StoreMemory {
		return errors.New("worker cannot read an in-memory store")
	}

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	rdb := store.NewRedis(cfg.RedisAddr)
	defer rdb.Close()
	if !rdb.Healthy(ctx) {
		logger.Warn("redis not reachable at startup, consumer will keep retrying", zap.String("addr", cfg.RedisAddr))
	}

	collectors := metrics.New(prometheus.DefaultRegisterer)
	q := bootstrap.NewQueue(cfg, rdb)
	msgs, err := q.Consume(ctx)
	if err != nil {
		return err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"db": stores.Healthy(c.Request.Context()), "redis": rdb.Healthy(c.Request.Context())})
	})
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- bootstrap.Serve(ctx, r, bootstrap.ServerConfig{
			Port:         cfg.WorkerMetricsPort,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		})
	}()

	logger.Info("worker started, waiting for messages")
	audit.NewProcessor(stores.Records, bootstrap.NewAuditLog(cfg, rdb), collectors.AuditEntries).Run(ctx, msgs)

	return <-srvErr
}
