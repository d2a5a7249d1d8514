package store

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// The migration system is intentionally small: a fresh database gets the
// full current schema from LATEST.sql for its driver. Incremental
// migrations can be added next to it as NN__description.sql files once the
// schema starts evolving.

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the full schema applied to new installations.
const LatestSchemaFileName = "LATEST.sql"

// Migrate brings the database up to the current schema.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}
	if initialized {
		return nil
	}

	filePath := fmt.Sprintf("migration/%s/%s", s.profile.Driver, LatestSchemaFileName)
	buf, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file %q", filePath)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}

	slog.Info("database initialized", slog.String("driver", s.profile.Driver))
	return nil
}
