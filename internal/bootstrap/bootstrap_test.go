package bootstrap

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"hospitalattendance/internal/audit"
	"hospitalattendance/internal/config"
	"hospitalattendance/internal/queue"
)

func TestNewLogger(t *testing.T) {
	dev, err := NewLogger("dev")
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	prod, err := NewLogger("production")
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))
}

func TestOpenStores_Memory(t *testing.T) {
	s, err := OpenStores(context.Background(), config.App{StoreBackend: config.StoreMemory})
	require.NoError(t, err)
	assert.True(t, s.Healthy(context.Background()))
	assert.NoError(t, s.Close())
}

func TestOpenStores_Unknown(t *testing.T) {
	_, err := OpenStores(context.Background(), config.App{StoreBackend: "mongo"})
	assert.Error(t, err)
}

func TestMemoryBackends(t *testing.T) {
	cfg := config.App{QueueBackend: config.BackendMemory, SettingsBackend: config.BackendMemory, AuditMaxEntries: 5}
	assert.False(t, NeedsRedis(cfg))
	assert.IsType(t, &queue.InMemory{}, NewQueue(cfg, nil))
	assert.IsType(t, &audit.MemoryLog{}, NewAuditLog(cfg, nil))
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, http.NotFoundHandler(), ServerConfig{Port: "0"})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
