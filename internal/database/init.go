package database

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/config"
)

// Initialize creates a PostgreSQL connection pool and applies the schema
func Initialize(ctx context.Context, cfg *config.DatabaseConfig, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	var fixtures int
	if err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM fixtures").Scan(&fixtures); err == nil && fixtures == 0 {
		log.Warn("Historical store is empty; load fixtures and quotes before backtesting")
	}

	return db, nil
}
