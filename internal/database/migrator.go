package database

import (
	"context"
	"embed"
	"io/fs"

	"github.com/deppfellow/servicekit/internal/config"
	"github.com/jackc/pgx/v5"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

// VersionTable records the applied migration version.
const VersionTable = "schema_version"

// Migrations returns the embedded migration files.
func Migrations() fs.FS {
	subtree, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return subtree
}

// Migrate applies the embedded migrations up to targetVersion, or to the
// latest when targetVersion is negative. It uses a single connection.
func Migrate(ctx context.Context, logger *zerolog.Logger, cfg *config.Config, targetVersion int32) error {
	conn, err := pgx.Connect(ctx, DSN(cfg.Database))
	if err != nil {
		return errors.Wrap(err, "connecting for migrations")
	}
	defer conn.Close(ctx)

	m, err := tern.NewMigrator(ctx, conn, VersionTable)
	if err != nil {
		return errors.Wrap(err, "constructing database migrator")
	}

	if err := m.LoadMigrations(Migrations()); err != nil {
		return errors.Wrap(err, "loading database migrations")
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving current database migration version")
	}

	to := int32(len(m.Migrations))
	if targetVersion >= 0 {
		to = targetVersion
	}

	if err := m.MigrateTo(ctx, to); err != nil {
		return errors.Wrapf(err, "migrating from %d to %d", from, to)
	}

	if from == to {
		logger.Info().Msgf("database schema up to date, version %d", to)
	} else {
		logger.Info().Msgf("migrated database schema, from %d to %d", from, to)
	}
	return nil
}
