package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
)

// ErrNotFound is returned by repositories when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Connect opens the Postgres pool, retrying while the database starts up.
func Connect(ctx context.Context, cfg config.DatabaseConfig, l *logger.Logger) (*bun.DB, error) {
	var sqldb *sql.DB
	var err error

	for i := 0; i < connectAttempts; i++ {
		l.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, connectAttempts))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err == nil {
			err = sqldb.PingContext(ctx)
			if err == nil {
				break
			}
			sqldb.Close()
		}

		l.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < connectAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectBackoff):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres after %d attempts: %w", connectAttempts, err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	l.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// NotFound maps sql.ErrNoRows to ErrNotFound and passes anything else through.
func NotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// IsUniqueViolation recognises unique-constraint errors from Postgres and SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
