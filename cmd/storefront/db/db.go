// Package db provides the Postgres persistence of the storefront: the product
// catalog, accounts, password resets and orders.
package db

import (
	igorm "github.com/tjper/storefront/internal/gorm"
	"github.com/tjper/storefront/internal/migrate"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Open opens a connection with the storefront Postgres DB.
func Open(logger *zap.Logger, dsn string) (*gorm.DB, error) {
	return igorm.Open(logger, dsn, igorm.WithTablePrefix("storefront."))
}

// Migrate migrates the db as the migrations specify.
func Migrate(db *gorm.DB, migrations string) error {
	dbconn, err := db.DB()
	if err != nil {
		return err
	}

	return migrate.Migrate(
		dbconn,
		migrations,
		migrate.WithMigrationsTable("storefront_migrations"),
	)
}
