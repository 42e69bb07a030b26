package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_Latest(t *testing.T) {
	now := time.Now()

	t.Run("returns the most recent record", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "door_statuses" WHERE door_id = \$1 ORDER BY recorded_at DESC, id DESC`).
			WithArgs("1", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "door_id", "open", "recorded_at"}).
				AddRow(42, "1", true, now))

		status, err := s.Latest(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, "1", status.DoorID)
		assert.True(t, status.Open)
		assert.Equal(t, int64(42), status.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty timeline maps to ErrNoStatus", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "door_statuses" WHERE door_id = \$1`).
			WithArgs("9", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "door_id", "open", "recorded_at"}))

		_, err := s.Latest(context.Background(), "9")
		assert.ErrorIs(t, err, ErrNoStatus)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStore_LastOpenings(t *testing.T) {
	now := time.Now()

	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "door_statuses" WHERE door_id = \$1 AND open = \$2 ORDER BY recorded_at DESC, id DESC`).
		WithArgs("1", true, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "door_id", "open", "recorded_at"}).
			AddRow(3, "1", true, now).
			AddRow(2, "1", true, now.Add(-time.Hour)))

	times, err := s.LastOpenings(context.Background(), "1", 5)
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.True(t, times[0].After(times[1]))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Append(t *testing.T) {
	now := time.Now()

	t.Run("inserts one record", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "door_statuses"`).
			WithArgs("1", true, now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		assert.NoError(t, s.Append(context.Background(), "1", true, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error surfaces", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "door_statuses"`).
			WithArgs("1", false, now).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		assert.Error(t, s.Append(context.Background(), "1", false, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStore_AppendOpenings(t *testing.T) {
	first := time.Now()
	second := first.Add(time.Hour)

	t.Run("whole batch commits in one transaction", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "door_statuses"`).
			WithArgs("1", true, first).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(`INSERT INTO "door_statuses"`).
			WithArgs("1", true, second).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectCommit()

		err := s.AppendOpenings(context.Background(), "1", []time.Time{first, second})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("one failing insert rolls the batch back", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "door_statuses"`).
			WithArgs("1", true, first).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(`INSERT INTO "door_statuses"`).
			WithArgs("1", true, second).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := s.AppendOpenings(context.Background(), "1", []time.Time{first, second})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch touches nothing", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		s := NewGormStore(gormDB)

		assert.NoError(t, s.AppendOpenings(context.Background(), "1", nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
