package student

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrExists is returned when creating a matricula that is already registered.
var ErrExists = errors.New("student already exists")

// ErrNotFound is returned by Update for an unknown matricula.
var ErrNotFound = errors.New("student not found")

// Student is a registered trainee. Matricula is the login credential and key.
type Student struct {
	Matricula string    `json:"matricula"`
	Name      string    `json:"name"`
	Career    string    `json:"career"`
	Group     string    `json:"group"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository is the roster collaborator. FindByID returns nil, nil when the
// matricula is unknown.
type Repository interface {
	FindByID(ctx context.Context, matricula string) (*Student, error)
	List(ctx context.Context) ([]Student, error)
	Create(ctx context.Context, st Student) error
	Update(ctx context.Context, st Student) error
}

// Demo is the roster seeded into an empty store.
var Demo = []Student{
	{Matricula: "20251234", Name: "Ana García López", Career: "Medicina", Group: "Grupo A", Active: true},
	{Matricula: "20255678", Name: "Carlos Rodríguez Pérez", Career: "Medicina", Group: "Grupo B", Active: true},
	{Matricula: "20259876", Name: "María Fernández Castro", Career: "Medicina", Group: "Grupo A", Active: true},
}

// SeedDemo registers the demo roster when repo is empty. It returns the number
// of students created.
func SeedDemo(ctx context.Context, repo Repository) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for _, st := range Demo {
		if err := repo.Create(ctx, st); err != nil {
			return 0, err
		}
	}
	return len(Demo), nil
}

// Normalize trims the matricula the way login input is cleaned.
func Normalize(matricula string) string {
	return strings.TrimSpace(matricula)
}

// MemoryRepository keeps the roster in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	students map[string]Student
	now      func() time.Time
}

// NewMemoryRepository creates an empty in-memory roster.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{students: make(map[string]Student), now: time.Now}
}

func (r *MemoryRepository) FindByID(_ context.Context, matricula string) (*Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.students[matricula]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// List returns students ordered by matricula.
func (r *MemoryRepository) List(_ context.Context) ([]Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Student, 0, len(r.students))
	for _, st := range r.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Matricula < out[j].Matricula })
	return out, nil
}

func (r *MemoryRepository) Create(_ context.Context, st Student) error {
	if st.Matricula == "" {
		return errors.New("matricula required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[st.Matricula]; ok {
		return ErrExists
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = r.now().UTC()
	}
	r.students[st.Matricula] = st
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, st Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.students[st.Matricula]
	if !ok {
		return ErrNotFound
	}
	st.CreatedAt = prev.CreatedAt
	r.students[st.Matricula] = st
	return nil
}
