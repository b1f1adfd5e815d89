package student

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitalattendance/internal/store"
)

func TestMemoryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	st, err := repo.FindByID(ctx, "20251234")
	require.NoError(t, err)
	assert.Nil(t, st)

	require.NoError(t, repo.Create(ctx, Student{Matricula: "20251234", Name: "Ana", Active: true}))
	assert.ErrorIs(t, repo.Create(ctx, Student{Matricula: "20251234"}), ErrExists)
	assert.Error(t, repo.Create(ctx, Student{}))

	st, err = repo.FindByID(ctx, "20251234")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "Ana", st.Name)
	created := st.CreatedAt
	assert.False(t, created.IsZero())

	require.NoError(t, repo.Update(ctx, Student{Matricula: "20251234", Name: "Ana G.", Active: false}))
	st, _ = repo.FindByID(ctx, "20251234")
	assert.Equal(t, "Ana G.", st.Name)
	assert.False(t, st.Active)
	assert.Equal(t, created, st.CreatedAt)

	assert.ErrorIs(t, repo.Update(ctx, Student{Matricula: "nope"}), ErrNotFound)
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	n, err := SeedDemo(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = SeedDemo(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, _ := repo.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, "20251234", list[0].Matricula)
	assert.Equal(t, "20259876", list[2].Matricula)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "20251234", Normalize("  20251234 "))
}

func newSQLRepo(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	client, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewSQLRepository(store.Wrap(client, store.DriverPostgres)), mock
}

func TestSQLRepository_FindByID(t *testing.T) {
	repo, mock := newSQLRepo(t)
	created := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE matricula = $1")).
		WithArgs("20251234").
		WillReturnRows(sqlmock.NewRows([]string{"matricula", "name", "career", "student_group", "active", "created_at"}).
			AddRow("20251234", "Ana", "Medicina", "Grupo A", true, created.UnixMilli()))

	st, err := repo.FindByID(context.Background(), "20251234")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "Grupo A", st.Group)
	assert.True(t, st.Active)
	assert.True(t, created.Equal(st.CreatedAt))

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE matricula = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"matricula"}))
	st, err = repo.FindByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, st)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepository_CreateDuplicate(t *testing.T) {
	repo, mock := newSQLRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), Student{Matricula: "20251234"})
	assert.ErrorIs(t, err, ErrExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepository_Update(t *testing.T) {
	repo, mock := newSQLRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students")).
		WithArgs("Ana", "Medicina", "Grupo B", false, "20251234").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), Student{Matricula: "20251234", Name: "Ana", Career: "Medicina", Group: "Grupo B"}))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), Student{Matricula: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}
