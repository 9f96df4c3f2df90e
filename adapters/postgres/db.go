package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"pairstat/internal/errors"
	"pairstat/internal/migration"
)

// MemoryDSN opens a private in-process SQLite database
const MemoryDSN = ":memory:"

// Open connects to the report database and applies migrations. An empty url
// falls back to an in-memory SQLite database, so reports live for the life of
// the process.
func Open(ctx context.Context, driver, url string) (*sqlx.DB, error) {
	if url == "" {
		driver, url = "sqlite", MemoryDSN
	}

	db, err := sqlx.ConnectContext(ctx, driver, url)
	if err != nil {
		return nil, errors.Wrap(errors.DatabaseError(err.Error()), "failed to connect to database")
	}
	if driver == "sqlite" {
		// each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}
