package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB builds SQL without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 user=admin dbname=marketplace sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

type bookingRow struct {
	ID        string
	Status    string
	CreatedAt time.Time
}

func TestQuerier_BuildsOrderedLimitedSelect(t *testing.T) {
	db := dryRunDB(t)
	r := NewQuerier(db, quiet())
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []bookingRow
		return r.build(tx, domain.Query{
			Source:  "bookings",
			Alias:   "b",
			Columns: []string{"b.id", "b.status", "b.created_at"},
			Joins:   []string{"LEFT JOIN users u ON u.id = b.user_id"},
			Where:   []domain.Condition{{Expr: "b.created_at >= ?", Args: []any{since}}},
			OrderBy: "b.created_at",
			Limit:   25,
		}).Find(&rows)
	})

	assert.Contains(t, sql, "FROM bookings b")
	assert.Contains(t, sql, "LEFT JOIN users u ON u.id = b.user_id")
	assert.Contains(t, sql, "b.created_at >= ")
	assert.Contains(t, sql, "ORDER BY b.created_at DESC")
	assert.Contains(t, sql, "LIMIT 25")
}

func TestQuerier_RejectsEmptySource(t *testing.T) {
	r := NewQuerier(dryRunDB(t), quiet())
	var rows []bookingRow
	err := r.Query(t.Context(), domain.Query{}, &rows)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestIsUnavailable(t *testing.T) {
	for _, code := range []string{"42P01", "42703", "42501"} {
		err := fmt.Errorf("find: %w", &pgconn.PgError{Code: code})
		assert.True(t, isUnavailable(err), code)
	}
	assert.False(t, isUnavailable(&pgconn.PgError{Code: "57014"}))
	assert.False(t, isUnavailable(errors.New("connection reset")))
}
