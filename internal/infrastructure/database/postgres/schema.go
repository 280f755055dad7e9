package postgres

import (
	"database/sql"
	_ "embed" // Used to embed sql files.
	"fmt"

	"github.com/ardanlabs/darwin/v3"
	"github.com/ardanlabs/darwin/v3/dialects/postgres"
	"github.com/ardanlabs/darwin/v3/drivers/generic"
	_ "github.com/jackc/pgx/v5/stdlib" // Registers the "pgx" database/sql driver used by migrations.
)

var (
	//go:embed sql/migrations.sql
	migrations string
)

// Migrate applies every pending schema migration.
func Migrate(db *sql.DB) error {
	driver, err := generic.New(db, postgres.Dialect{})
	if err != nil {
		return err
	}

	d := darwin.New(driver, darwin.ParseMigrations(migrations))
	if err := d.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	return nil
}

// MigrateURL opens a short-lived database/sql connection for Migrate.
func MigrateURL(url string) error {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("failed to open DB for migration: %w", err)
	}
	defer db.Close()

	return Migrate(db)
}
