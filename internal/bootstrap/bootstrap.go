// Package bootstrap builds the shared runtime pieces of the api and worker
// binaries from config.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hospitalattendance/internal/attendance"
	"hospitalattendance/internal/audit"
	"hospitalattendance/internal/config"
	"hospitalattendance/internal/queue"
	"hospitalattendance/internal/store"
	"hospitalattendance/internal/student"
)

// NewLogger returns a production logger for production envs and a
// development one otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	if config.IsProductionEnv(env) {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Stores are the persistence collaborators chosen by STORE_BACKEND.
type Stores struct {
	Students student.Repository
	Records  attendance.Store
	DB       *store.DB
}

// Healthy reports database reachability; memory stores are always healthy.
func (s *Stores) Healthy(ctx context.Context) bool {
	if s.DB == nil {
		return true
	}
	return s.DB.Healthy(ctx)
}

func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStores connects and migrates the configured backend.
func OpenStores(ctx context.Context, cfg config.App) (*Stores, error) {
	var (
		db  *store.DB
		err error
	)
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return &Stores{Students: student.NewMemoryRepository(), Records: attendance.NewMemoryStore()}, nil
	case config.StoreSQLite:
		db, err = store.NewSQLite(cfg.SQLitePath)
	case config.StorePostgres:
		db, err = store.NewDB(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Stores{
		Students: student.NewSQLRepository(db),
		Records:  attendance.NewRepository(db),
		DB:       db,
	}, nil
}

// NeedsRedis reports whether any configured backend uses redis.
func NeedsRedis(cfg config.App) bool {
	return cfg.SettingsBackend == config.BackendRedis || cfg.QueueBackend == config.BackendRedis
}

// NewQueue picks the recorded-events queue.
func NewQueue(cfg config.App, rdb *store.Redis) queue.Queue {
	if cfg.QueueBackend == config.BackendRedis && rdb != nil {
		return queue.NewRedisQueue(rdb.Client, "")
	}
	return queue.NewInMemory(256)
}

// NewAuditLog keeps the audit list next to the queue.
func NewAuditLog(cfg config.App, rdb *store.Redis) audit.Log {
	if cfg.QueueBackend == config.BackendRedis && rdb != nil {
		return audit.NewRedisLog(rdb.Client, "", cfg.AuditMaxEntries)
	}
	return audit.NewMemoryLog(cfg.AuditMaxEntries)
}
