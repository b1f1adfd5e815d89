package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hospitalattendance/internal/attendance"
	"hospitalattendance/internal/audit"
	"hospitalattendance/internal/auth"
	"hospitalattendance/internal/bootstrap"
	"hospitalattendance/internal/capture"
	"hospitalattendance/internal/config"
	"hospitalattendance/internal/geo"
	"hospitalattendance/internal/handler"
	"hospitalattendance/internal/httpmiddleware"
	"hospitalattendance/internal/metrics"
	"hospitalattendance/internal/qr"
	"hospitalattendance/internal/settings"
	"hospitalattendance/internal/store"
	"hospitalattendance/internal/student"
)

func main() {
	logger, err := bootstrap.NewLogger(config.Env())
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	cfg := config.Load()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("api failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.App, logger *zap.Logger) error {
	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	var rdb *store.Redis
	if bootstrap.NeedsRedis(cfg) {
		rdb = store.NewRedis(cfg.RedisAddr)
		defer rdb.Close()
		if !rdb.Healthy(ctx) {
			logger.Warn("redis not reachable at startup", zap.String("addr", cfg.RedisAddr))
		}
	}

	if cfg.SeedDemo {
		n, err := student.SeedDemo(ctx, stores.Students)
		if err != nil {
			return fmt.Errorf("seed demo roster: %w", err)
		}
		if n > 0 {
			logger.Info("demo roster seeded", zap.Int("students", n))
		}
	}

	verifier, mgr, err := setupGeofence(ctx, cfg, rdb)
	if err != nil {
		return err
	}

	collectors := metrics.New(prometheus.DefaultRegisterer)
	validator := qr.NewValidator(cfg.QRToken)
	recorder := attendance.NewRecorder(stores.Students, stores.Records, verifier, validator,
		attendance.WithObserver(collectors))
	opts := capture.DefaultPositionOptions()
	opts.Timeout = cfg.CaptureTimeout
	flow := capture.NewFlow(recorder, opts)

	q := bootstrap.NewQueue(cfg, rdb)
	auditLog := bootstrap.NewAuditLog(cfg, rdb)
	if cfg.QueueBackend != config.BackendRedis {
		// no separate worker can reach an in-process queue
		msgs, err := q.Consume(ctx)
		if err != nil {
			return fmt.Errorf("consume queue: %w", err)
		}
		go audit.NewProcessor(stores.Records, auditLog, collectors.AuditEntries).Run(ctx, msgs)
	}

	admin, err := auth.NewAdminCredentials(cfg.AdminUser, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("admin credentials: %w", err)
	}

	health := map[string]handler.HealthCheck{"db": stores.Healthy}
	if rdb != nil {
		health["redis"] = rdb.Healthy
	}

	h := handler.New(handler.Deps{
		Students:  stores.Students,
		Records:   stores.Records,
		Flow:      flow,
		Verifier:  verifier,
		Validator: validator,
		Settings:  mgr,
		Audit:     auditLog,
		Queue:     q,
		Metrics:   collectors,
		Admin:     admin,
		Tokens: handler.TokenConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: cfg.JWTSigningKey,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		},
		Location:    cfg.Location(),
		Health:      health,
		ScanLimiter: httpmiddleware.NewLimiter(10),
	}, logger.Named("http"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.RequestID(uuid.NewString))
	r.Use(httpmiddleware.NewLimiter(cfg.RateLimitPerMin).GinMiddleware(httpmiddleware.ClientIP))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Register(r)

	return bootstrap.Serve(ctx, r, bootstrap.ServerConfig{
		Port:         cfg.HTTPPort,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
}

// setupGeofence loads or seeds the geofence and keeps the verifier in sync
// with local saves and with saves published by other instances.
func setupGeofence(ctx context.Context, cfg config.App, rdb *store.Redis) (*geo.Verifier, *settings.Manager, error) {
	defaults := geo.Config{
		Reference:    geo.GeoPoint{Latitude: cfg.HospitalLat, Longitude: cfg.HospitalLng},
		RadiusMeters: cfg.RadiusMeters,
	}

	var backend settings.Backend = settings.NewMemory()
	var remote *settings.Redis
	if cfg.SettingsBackend == config.BackendRedis && rdb != nil {
		remote = settings.NewRedis(rdb.Client, "", "")
		backend = remote
	}

	mgr := settings.NewManager(backend)
	current, err := mgr.Init(ctx, defaults)
	if err != nil {
		return nil, nil, err
	}
	verifier := geo.NewVerifier(current)
	mgr.Subscribe(verifier.UpdateConfig)
	if remote != nil {
		go remote.Watch(ctx, verifier.UpdateConfig)
	}
	return verifier, mgr, nil
}
