package dbtest

import (
	"context"
	"database/sql"
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/database/migrations"
)

var postgresOnly = strings.NewReplacer(
	"::jsonb", "",
	"DEFAULT now()", "DEFAULT CURRENT_TIMESTAMP",
)

// NewMigrated is like New but builds the schema from the up migrations, so
// CHECK and UNIQUE constraints behave as they do in production.
func NewMigrated(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	files, err := fs.Glob(migrations.Files(), "*.up.sql")
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	sort.Strings(files)

	for _, name := range files {
		raw, err := fs.ReadFile(migrations.Files(), name)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", name, err)
		}
		for _, stmt := range strings.Split(postgresOnly.Replace(string(raw)), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := bunDB.ExecContext(context.Background(), stmt); err != nil {
				t.Fatalf("Failed to apply %s: %v\n%s", name, err, stmt)
			}
		}
	}
	return bunDB
}
