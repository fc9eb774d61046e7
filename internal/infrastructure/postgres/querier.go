package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"gorm.io/gorm"
)

// Querier runs connector queries against the source tables.
type Querier struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewQuerier(db *gorm.DB, logger *slog.Logger) *Querier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Querier{db: db, logger: logger}
}

// Query scans up to q.Limit rows into dest, a pointer to a slice of row
// structs. A missing table, column or grant is reported as
// domain.ErrSourceUnavailable.
func (r *Querier) Query(ctx context.Context, q domain.Query, dest any) error {
	if q.Source == "" {
		return fmt.Errorf("query without source: %w", domain.ErrBadRequest)
	}
	err := r.build(r.db.WithContext(ctx), q).Find(dest).Error
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		r.logger.Warn("source_query_unavailable", "source", q.Source, "error", err)
		return fmt.Errorf("%s: %w: %v", q.Source, domain.ErrSourceUnavailable, err)
	}
	return fmt.Errorf("query %s: %w", q.Source, err)
}

func (r *Querier) build(tx *gorm.DB, q domain.Query) *gorm.DB {
	from := q.Source
	if q.Alias != "" {
		from += " " + q.Alias
	}
	tx = tx.Table(from)
	if len(q.Columns) > 0 {
		tx = tx.Select(q.Columns)
	}
	for _, j := range q.Joins {
		tx = tx.Joins(j)
	}
	for _, c := range q.Where {
		tx = tx.Where(c.Expr, c.Args...)
	}
	if q.OrderBy != "" {
		tx = tx.Order(q.OrderBy + " DESC")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}

// isUnavailable reports schema drift or missing grants: undefined_table,
// undefined_column and insufficient_privilege.
func isUnavailable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "42P01", "42703", "42501":
		return true
	}
	return false
}
