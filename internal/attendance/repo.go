package attendance

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"hospitalattendance/internal/store"
)

// Store is the append-only attendance log. FindByID returns nil, nil for an
// unknown id. Listings are ordered by CapturedAt ascending.
type Store interface {
	Append(ctx context.Context, rec Record) error
	FindByID(ctx context.Context, id string) (*Record, error)
	ListByStudent(ctx context.Context, studentID string) ([]Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	DeleteBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// Repository persists attendance records in Postgres or SQLite.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, student_id, kind, captured_at, latitude, longitude, accuracy, distance_meters, qr_payload, method, is_valid, invalid_reason`

// Append writes a new record. A primary key collision maps to ErrDuplicateRecordID.
func (r *Repository) Append(ctx context.Context, rec Record) error {
	_, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO attendance_records (`+recordColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
	`), rec.ID, rec.StudentID, string(rec.Kind), rec.CapturedAtMillis(),
		rec.Position.Latitude, rec.Position.Longitude, rec.Position.AccuracyMeters,
		rec.DistanceMeters, rec.QRPayload, string(rec.Method), rec.IsValid, rec.InvalidReason)
	if store.IsUniqueViolation(err) {
		return ErrDuplicateRecordID
	}
	return err
}

// FindByID returns a single record by id.
func (r *Repository) FindByID(ctx context.Context, id string) (*Record, error) {
	row := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`
		SELECT `+recordColumns+`
		FROM attendance_records WHERE id = ?
	`), id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListByStudent returns a student's records oldest first.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]Record, error) {
	return r.list(ctx, r.db.Rebind(`
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE student_id = ?
		ORDER BY captured_at, id
	`), studentID)
}

// ListAll returns every record oldest first.
func (r *Repository) ListAll(ctx context.Context) ([]Record, error) {
	return r.list(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		ORDER BY captured_at, id
	`)
}

// DeleteBetween removes records captured in [from, to) and reports how many.
func (r *Repository) DeleteBetween(ctx context.Context, from, to time.Time) (int64, error) {
	res, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM attendance_records
		WHERE captured_at >= ? AND captured_at < ?
	`), from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.Client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		rec            Record
		kind, method   string
		capturedAtMsec int64
	)
	err := s.Scan(&rec.ID, &rec.StudentID, &kind, &capturedAtMsec,
		&rec.Position.Latitude, &rec.Position.Longitude, &rec.Position.AccuracyMeters,
		&rec.DistanceMeters, &rec.QRPayload, &method, &rec.IsValid, &rec.InvalidReason)
	if err != nil {
		return Record{}, err
	}
	rec.Kind = Kind(kind)
	rec.Method = Method(method)
	rec.CapturedAt = time.UnixMilli(capturedAtMsec).UTC()
	return rec, nil
}

// MemoryStore is an in-process Store for tests and the memory backend.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	byID    map[string]int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (m *MemoryStore) Append(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[rec.ID]; ok {
		return ErrDuplicateRecordID
	}
	m.byID[rec.ID] = len(m.records)
	m.records = append(m.records, rec)
	return nil
}

func (m *MemoryStore) FindByID(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	rec := m.records[i]
	return &rec, nil
}

func (m *MemoryStore) ListByStudent(_ context.Context, studentID string) ([]Record, error) {
	return m.filter(func(r Record) bool { return r.StudentID == studentID }), nil
}

func (m *MemoryStore) ListAll(_ context.Context) ([]Record, error) {
	return m.filter(func(Record) bool { return true }), nil
}

func (m *MemoryStore) DeleteBetween(_ context.Context, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0:0]
	var deleted int64
	for _, rec := range m.records {
		if !rec.CapturedAt.Before(from) && rec.CapturedAt.Before(to) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	m.byID = make(map[string]int, len(kept))
	for i, rec := range kept {
		m.byID[rec.ID] = i
	}
	return deleted, nil
}

func (m *MemoryStore) filter(keep func(Record) bool) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, rec := range m.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	return out
}
