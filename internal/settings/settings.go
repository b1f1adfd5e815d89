package settings

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"hospitalattendance/internal/geo"
)

// Backend persists the geofence config. Load reports ok=false when nothing has
// been saved yet.
type Backend interface {
	Load(ctx context.Context) (cfg geo.Config, ok bool, err error)
	Store(ctx context.Context, cfg geo.Config) error
}

// Manager owns the geofence settings and tells subscribers about changes.
type Manager struct {
	backend Backend
	logger  *zap.Logger

	mu        sync.Mutex
	listeners []func(geo.Config)
}

// NewManager creates a manager over backend.
func NewManager(backend Backend) *Manager {
	return &Manager{backend: backend, logger: zap.L().Named("settings")}
}

// Subscribe registers fn to run after every successful Save.
func (m *Manager) Subscribe(fn func(geo.Config)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Init returns the saved config, storing defaults first when none exists.
func (m *Manager) Init(ctx context.Context, defaults geo.Config) (geo.Config, error) {
	cfg, ok, err := m.backend.Load(ctx)
	if err != nil {
		return geo.Config{}, fmt.Errorf("load settings: %w", err)
	}
	if ok {
		return cfg, nil
	}
	if err := defaults.Validate(); err != nil {
		return geo.Config{}, fmt.Errorf("default settings: %w", err)
	}
	if err := m.backend.Store(ctx, defaults); err != nil {
		return geo.Config{}, fmt.Errorf("store default settings: %w", err)
	}
	m.logger.Info("default geofence stored",
		zap.Float64("lat", defaults.Reference.Latitude),
		zap.Float64("lng", defaults.Reference.Longitude),
		zap.Float64("radius_m", defaults.RadiusMeters))
	return defaults, nil
}

// Geofence returns the saved config.
func (m *Manager) Geofence(ctx context.Context) (geo.Config, error) {
	cfg, ok, err := m.backend.Load(ctx)
	if err != nil {
		return geo.Config{}, err
	}
	if !ok {
		return geo.Config{}, fmt.Errorf("settings not initialised")
	}
	return cfg, nil
}

// Save validates, persists and broadcasts cfg.
func (m *Manager) Save(ctx context.Context, cfg geo.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := m.backend.Store(ctx, cfg); err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	m.mu.Lock()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
	m.logger.Info("geofence updated", zap.Float64("radius_m", cfg.RadiusMeters))
	return nil
}

// Memory keeps settings in process memory.
type Memory struct {
	mu  sync.RWMutex
	cfg *geo.Config
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(context.Context) (geo.Config, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil {
		return geo.Config{}, false, nil
	}
	return *m.cfg, true, nil
}

func (m *Memory) Store(_ context.Context, cfg geo.Config) error {
	m.mu.Lock()
	m.cfg = &cfg
	m.mu.Unlock()
	return nil
}
