// Package migrate applies the schema migrations embedded in internal/db.
package migrate

import (
	"errors"
	"fmt"

	"github.com/L1oneSs/AuthTemplate/internal/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrNoChange reports that the schema is already at the target version.
var ErrNoChange = migrate.ErrNoChange

// Run migrates the database at dsn in the given direction, "up" or "down".
// Callers decide whether ErrNoChange counts as success.
func Run(dsn, direction string) error {
	if dsn == "" {
		return errors.New("empty database DSN")
	}

	src, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("open migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	}
	return fmt.Errorf("unknown migration direction %q", direction)
}
