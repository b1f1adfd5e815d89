package student

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hospitalattendance/internal/store"
)

// SQLRepository persists the roster in Postgres or SQLite.
type SQLRepository struct {
	db *store.DB
}

// NewSQLRepository creates a repo.
func NewSQLRepository(db *store.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const studentColumns = `matricula, name, career, student_group, active, created_at`

// FindByID returns a single student by matricula.
func (r *SQLRepository) FindByID(ctx context.Context, matricula string) (*Student, error) {
	row := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`
		SELECT `+studentColumns+`
		FROM students WHERE matricula = ?
	`), matricula)
	st, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// List returns all students ordered by matricula.
func (r *SQLRepository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.Client.QueryContext(ctx, `
		SELECT `+studentColumns+`
		FROM students
		ORDER BY matricula
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// Create inserts a new student.
func (r *SQLRepository) Create(ctx context.Context, st Student) error {
	if st.Matricula == "" {
		return errors.New("matricula required")
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO students (`+studentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`), st.Matricula, st.Name, st.Career, st.Group, st.Active, st.CreatedAt.UnixMilli())
	if store.IsUniqueViolation(err) {
		return ErrExists
	}
	return err
}

// Update replaces the editable fields of a student.
func (r *SQLRepository) Update(ctx context.Context, st Student) error {
	res, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`
		UPDATE students
		SET name = ?, career = ?, student_group = ?, active = ?
		WHERE matricula = ?
	`), st.Name, st.Career, st.Group, st.Active, st.Matricula)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(s scanner) (Student, error) {
	var (
		st        Student
		createdAt int64
	)
	if err := s.Scan(&st.Matricula, &st.Name, &st.Career, &st.Group, &st.Active, &createdAt); err != nil {
		return Student{}, err
	}
	st.CreatedAt = time.UnixMilli(createdAt).UTC()
	return st, nil
}
