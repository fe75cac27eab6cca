package storage

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/vic-it/epm-booking/libs/db"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies pending schema migrations. Goose needs a *sql.DB, so one is
// opened from the pool and closed afterwards without closing the pool itself.
func Migrate(ctx context.Context, pool *db.Pool) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	sqldb := stdlib.OpenDBFromPool(pool.Pool)
	defer sqldb.Close()

	if err := goose.UpContext(ctx, sqldb, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
