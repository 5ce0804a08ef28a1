package sqlite

import (
	"context"
	"embed"
	"log/slog"

	"github.com/pkg/errors"
)

//go:embed migration/LATEST.sql
var migrationFS embed.FS

// Migrate applies the latest schema. All statements are idempotent
// (CREATE TABLE IF NOT EXISTS), so running on an initialized database is
// a no-op.
func (d *DB) Migrate(ctx context.Context) error {
	initialized, err := d.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check initialization state")
	}

	buf, err := migrationFS.ReadFile("migration/LATEST.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read latest schema")
	}
	if _, err := d.db.ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}

	if !initialized {
		slog.Info("database initialized", "driver", "sqlite", "dsn", d.profile.DSN)
	}
	return nil
}
