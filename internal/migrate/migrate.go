// Package migrate applies SQL schema migrations to a Postgres database.
package migrate

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate migrates the DB with the specified migrations files. The
// migrations argument is a source URL such as "file:///db/migrations".
func Migrate(dbconn *sql.DB, migrations string, options ...Option) error {
	cfg := &postgres.Config{
		MigrationsTable: "migrations",
	}
	for _, option := range options {
		option(cfg)
	}

	driver, err := postgres.WithInstance(dbconn, cfg)
	if err != nil {
		return fmt.Errorf("migrate driver; error: %w", err)
	}

	migration, err := migrate.NewWithDatabaseInstance(migrations, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate source %s; error: %w", migrations, err)
	}

	if err := migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up; error: %w", err)
	}

	return nil
}

type Option func(*postgres.Config)

func WithMigrationsTable(name string) Option {
	return func(c *postgres.Config) {
		c.MigrationsTable = name
	}
}
