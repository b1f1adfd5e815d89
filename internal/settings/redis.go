package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hospitalattendance/internal/geo"
)

const (
	DefaultKey     = "hpjrm:settings"
	DefaultChannel = "hpjrm:settings:updated"
)

// Redis stores the config as JSON and publishes each change so other API
// replicas can refresh their verifier.
type Redis struct {
	client  *redis.Client
	key     string
	channel string
}

// NewRedis builds a backend using key and channel, with defaults when empty.
func NewRedis(client *redis.Client, key, channel string) *Redis {
	if key == "" {
		key = DefaultKey
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, key: key, channel: channel}
}

func (r *Redis) Load(ctx context.Context) (geo.Config, bool, error) {
	raw, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return geo.Config{}, false, nil
	}
	if err != nil {
		return geo.Config{}, false, err
	}
	var cfg geo.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return geo.Config{}, false, err
	}
	return cfg, true, nil
}

func (r *Redis) Store(ctx context.Context, cfg geo.Config) error {
	payload, err := encode(cfg)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Watch applies every published config to fn until ctx is done.
func (r *Redis) Watch(ctx context.Context, fn func(geo.Config)) {
	logger := zap.L().Named("settings.watch")
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			cfg, err := decode(msg.Payload)
			if err != nil {
				logger.Warn("ignoring malformed settings message", zap.Error(err))
				continue
			}
			fn(cfg)
		}
	}
}

func encode(cfg geo.Config) (string, error) {
	b, err := json.Marshal(cfg)
	return string(b), err
}

func decode(payload string) (geo.Config, error) {
	var cfg geo.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return geo.Config{}, err
	}
	return cfg, cfg.Validate()
}
