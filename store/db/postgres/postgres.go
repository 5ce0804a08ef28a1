package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the Postgres driver.
	_ "github.com/lib/pq"

	"github.com/usetradechat/tradechat/internal/profile"
	"github.com/usetradechat/tradechat/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a Postgres database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	if err := pgDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	driver := DB{db: pgDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'user')`,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}
