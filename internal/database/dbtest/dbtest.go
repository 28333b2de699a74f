// Package dbtest builds throwaway in-memory SQLite databases for repository tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/models"
)

// AllModels lists every table the service owns, in dependency order.
var AllModels = []interface{}{
	(*models.User)(nil),
	(*models.Event)(nil),
	(*models.Coupon)(nil),
	(*models.Booking)(nil),
	(*models.WithdrawalRequest)(nil),
	(*models.Commission)(nil),
}

// New returns a bun DB over a private in-memory SQLite database with every
// table created. A single connection keeps the schema alive and makes
// transactions see the same database.
func New(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	for _, m := range AllModels {
		if _, err := bunDB.NewCreateTable().Model(m).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to create table for %T: %v", m, err)
		}
	}

	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}
