// Package audit keeps a bounded log of invalid attendance attempts for
// administrators. It is a convenience view, not a tamper-proof trail.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"hospitalattendance/internal/attendance"
)

const DefaultKey = "hpjrm:audit:invalid"

// Entry describes one rejected attempt.
type Entry struct {
	RecordID       string          `json:"record_id"`
	StudentID      string          `json:"student_id"`
	Kind           attendance.Kind `json:"kind"`
	Reason         string          `json:"reason"`
	QRPayload      string          `json:"qr_payload"`
	DistanceMeters float64         `json:"distance_meters"`
	CapturedAt     time.Time       `json:"captured_at"`
	LoggedAt       time.Time       `json:"logged_at"`
}

// FromRecord builds an entry for an invalid record.
func FromRecord(rec attendance.Record, now time.Time) Entry {
	return Entry{
		RecordID:       rec.ID,
		StudentID:      rec.StudentID,
		Kind:           rec.Kind,
		Reason:         rec.InvalidReason,
		QRPayload:      rec.QRPayload,
		DistanceMeters: rec.DistanceMeters,
		CapturedAt:     rec.CapturedAt,
		LoggedAt:       now.UTC(),
	}
}

// Log stores the newest entries first.
type Log interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// RedisLog is a capped redis list.
type RedisLog struct {
	client *redis.Client
	key    string
	max    int64
}

// NewRedisLog keeps at most max entries under key.
func NewRedisLog(client *redis.Client, key string, max int) *RedisLog {
	if key == "" {
		key = DefaultKey
	}
	if max <= 0 {
		max = 500
	}
	return &RedisLog{client: client, key: key, max: int64(max)}
}

func (l *RedisLog) Append(ctx context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := l.client.LPush(ctx, l.key, string(b)).Err(); err != nil {
		return err
	}
	return l.client.LTrim(ctx, l.key, 0, l.max-1).Err()
}

func (l *RedisLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || int64(limit) > l.max {
		limit = int(l.max)
	}
	raw, err := l.client.LRange(ctx, l.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raw))
	for _, s := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// MemoryLog is the in-process variant.
type MemoryLog struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

// NewMemoryLog keeps at most max entries.
func NewMemoryLog(max int) *MemoryLog {
	if max <= 0 {
		max = 500
	}
	return &MemoryLog{max: max}
}

func (l *MemoryLog) Append(_ context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]Entry{e}, l.entries...)
	if len(l.entries) > l.max {
		l.entries = l.entries[:l.max]
	}
	return nil
}

func (l *MemoryLog) Recent(_ context.Context, limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	return append([]Entry(nil), l.entries[:limit]...), nil
}
