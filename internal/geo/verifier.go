package geo

import (
	"errors"
	"sync"
)

// Config is the hospital geofence: a reference point and an inclusive radius.
type Config struct {
	Reference    GeoPoint `json:"reference"`
	RadiusMeters float64  `json:"radius_meters"`
}

// Validate checks ranges before a config is accepted.
func (c Config) Validate() error {
	if !c.Reference.Usable() {
		return errors.New("reference point out of range")
	}
	if !(c.RadiusMeters > 0) {
		return errors.New("radius must be greater than zero")
	}
	return nil
}

// Result is the outcome of a geofence check.
type Result struct {
	Inside         bool    `json:"inside"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Verifier classifies positions against the current geofence config.
type Verifier struct {
	mu  sync.RWMutex
	cfg Config
}

// NewVerifier creates a verifier for cfg.
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{cfg: cfg}
}

// UpdateConfig replaces the geofence used by subsequent Verify calls.
func (v *Verifier) UpdateConfig(cfg Config) {
	v.mu.Lock()
	v.cfg = cfg
	v.mu.Unlock()
}

// Config returns the geofence currently in use.
func (v *Verifier) Config() Config {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cfg
}

// Verify reports whether p lies within the radius. A nil or malformed position
// is outside with a zero distance.
func (v *Verifier) Verify(p *GeoPoint) Result {
	if p == nil || !p.Usable() {
		return Result{}
	}
	cfg := v.Config()
	d := DistanceMeters(*p, cfg.Reference)
	return Result{Inside: d <= cfg.RadiusMeters, DistanceMeters: d}
}
