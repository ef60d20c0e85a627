package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/config"
	"github.com/yourusername/value-tipster/internal/database"
)

// Repositories holds all repository implementations for one backend
type Repositories struct {
	Historical    HistoricalStore
	Reports       ReportSink
	Opportunities OpportunityRepository
	Fixtures      FixtureWriter

	close func() error
	ping  func(ctx context.Context) error
}

// NewPostgresRepositories creates the repositories backed by a PostgreSQL pool
func NewPostgresRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	historical := NewPostgresHistoricalStore(db)
	return &Repositories{
		Historical:    historical,
		Reports:       NewPostgresReportSink(db),
		Opportunities: NewPostgresOpportunityRepository(db),
		Fixtures:      historical,
		close:         db.Close,
		ping:          db.Ping,
	}, nil
}

// NewSQLiteRepositories creates the repositories backed by one SQLite store
func NewSQLiteRepositories(store *SQLiteStore) (*Repositories, error) {
	if store == nil {
		return nil, fmt.Errorf("sqlite store is required")
	}

	return &Repositories{
		Historical:    store,
		Reports:       store,
		Opportunities: store,
		Fixtures:      store,
		close:         store.Close,
		ping:          store.Ping,
	}, nil
}

// NewFromConfig opens the configured backend and returns its repositories
func NewFromConfig(ctx context.Context, cfg *config.DatabaseConfig, log *logrus.Logger) (*Repositories, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := database.Initialize(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"host":     cfg.Host,
			"database": cfg.Name,
		}).Info("Connected to PostgreSQL")
		return NewPostgresRepositories(db)
	case "sqlite", "":
		db, err := database.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.Path).Info("Opened SQLite store")
		return NewSQLiteRepositories(NewSQLiteStore(db))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// Close releases the underlying connections
func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// Ping verifies the backend is reachable
func (r *Repositories) Ping(ctx context.Context) error {
	if r.ping == nil {
		return nil
	}
	return r.ping(ctx)
}
