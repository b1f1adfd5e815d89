package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitalattendance/internal/geo"
)

var defaults = geo.Config{
	Reference:    geo.GeoPoint{Latitude: 22.930857, Longitude: -82.689359},
	RadiusMeters: 500,
}

func TestManager_InitStoresDefaultsOnce(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(NewMemory())

	cfg, err := mgr.Init(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, cfg)

	custom := defaults
	custom.RadiusMeters = 750
	require.NoError(t, mgr.Save(ctx, custom))

	cfg, err = mgr.Init(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, 750.0, cfg.RadiusMeters)
}

func TestManager_SaveNotifiesVerifier(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(NewMemory())
	verifier := geo.NewVerifier(defaults)
	mgr.Subscribe(verifier.UpdateConfig)

	updated := defaults
	updated.RadiusMeters = 50
	require.NoError(t, mgr.Save(ctx, updated))
	assert.Equal(t, 50.0, verifier.Config().RadiusMeters)

	got, err := mgr.Geofence(ctx)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestManager_SaveNotifiesEveryListener(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(NewMemory())
	var got []float64
	for i := 0; i < 3; i++ {
		mgr.Subscribe(func(cfg geo.Config) { got = append(got, cfg.RadiusMeters) })
	}

	updated := defaults
	updated.RadiusMeters = 120
	require.NoError(t, mgr.Save(ctx, updated))
	assert.Equal(t, []float64{120, 120, 120}, got)

	// a listener added during notification runs from the next save on
	mgr.Subscribe(func(geo.Config) { mgr.Subscribe(func(geo.Config) {}) })
	require.NoError(t, mgr.Save(ctx, updated))
	assert.Len(t, got, 6)
}

func TestManager_SaveRejectsInvalid(t *testing.T) {
	mgr := NewManager(NewMemory())
	called := false
	mgr.Subscribe(func(geo.Config) { called = true })

	bad := defaults
	bad.RadiusMeters = -1
	assert.Error(t, mgr.Save(context.Background(), bad))
	assert.False(t, called)

	_, err := mgr.Geofence(context.Background())
	assert.Error(t, err)
}

func TestRedis_LoadAndStore(t *testing.T) {
	client, mock := redismock.NewClientMock()
	backend := NewRedis(client, "", "")
	ctx := context.Background()
	payload := `{"reference":{"latitude":22.930857,"longitude":-82.689359},"radius_meters":500}`

	mock.ExpectGet(DefaultKey).RedisNil()
	_, ok, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectSet(DefaultKey, payload, 0).SetVal("OK")
	mock.ExpectPublish(DefaultChannel, payload).SetVal(1)
	require.NoError(t, backend.Store(ctx, defaults))

	mock.ExpectGet(DefaultKey).SetVal(payload)
	cfg, ok, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, defaults, cfg)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_LoadError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	backend := NewRedis(client, "k", "c")

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))
	mgr := NewManager(backend)
	_, err := mgr.Init(context.Background(), defaults)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecode(t *testing.T) {
	cfg, err := decode(`{"reference":{"latitude":1,"longitude":2},"radius_meters":10}`)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.RadiusMeters)

	_, err = decode(`{"radius_meters":0}`)
	assert.Error(t, err)
	_, err = decode(`not json`)
	assert.Error(t, err)
}
