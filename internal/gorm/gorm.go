// Package gorm contains general logic for interacting with a Postgres
// datastore with GORM (https://gorm.io/).
package gorm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Open opens a connection with the specified DSN. GORM logs are written to
// zlogger at warn level; slow queries and errors are reported.
func Open(zlogger *zap.Logger, dsn string, options ...Option) (*gorm.DB, error) {
	stdlog, err := zap.NewStdLogAt(zlogger.Named("gorm"), zapcore.WarnLevel)
	if err != nil {
		return nil, fmt.Errorf("gorm logger; error: %w", err)
	}

	cfg := &gorm.Config{
		Logger: logger.New(
			stdlog,
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				Colorful:                  false,
				IgnoreRecordNotFoundError: true,
				LogLevel:                  logger.Warn,
			},
		),
	}

	for _, option := range options {
		option(cfg)
	}

	return gorm.Open(postgres.Open(dsn), cfg)
}

// Option is a function that mutates the passed *gorm.Config instance. This is
// typically used with Open.
type Option func(*gorm.Config)

// WithTablePrefix creates an Option that configures *gorm.Config to use the
// specified table prefix.
func WithTablePrefix(prefix string) Option {
	return func(c *gorm.Config) {
		c.NamingStrategy = schema.NamingStrategy{TablePrefix: prefix}
	}
}

// Ping checks the connection of db. It is typically used as a health probe.
func Ping(db *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		sqldb, err := db.DB()
		if err != nil {
			return err
		}
		return sqldb.PingContext(ctx)
	}
}
