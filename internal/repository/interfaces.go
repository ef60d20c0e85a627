package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/value-tipster/internal/models"
)

// HistoricalStore defines read access to fixtures, results and recorded quotes.
// The store is read-only during a backtest run.
type HistoricalStore interface {
	// GetFixtures returns fixtures ordered by kickoff, then id
	GetFixtures(ctx context.Context, filter models.FixtureFilter) ([]models.Fixture, error)
	CountFixtures(ctx context.Context, filter models.FixtureFilter) (int, error)
	GetQuotes(ctx context.Context, fixtureID string) ([]models.RawQuote, error)
	// GetTrainingMatches returns the most recent filter.Limit played fixtures, oldest first
	GetTrainingMatches(ctx context.Context, filter models.FixtureFilter) ([]models.Fixture, error)
	ListSeasons(ctx context.Context, league string) ([]string, error)
}

// ReportSink defines persistence of benchmark reports. SaveReport writes the
// report and its ledger atomically.
type ReportSink interface {
	SaveReport(ctx context.Context, report *models.BenchmarkReport) error
	GetReport(ctx context.Context, id uuid.UUID) (*models.BenchmarkReport, error)
	ListReports(ctx context.Context, season, league string, limit int) ([]*models.BenchmarkReport, error)
}

// OpportunityRepository defines persistence of live scan results
type OpportunityRepository interface {
	SaveBatch(ctx context.Context, opportunities []models.ValueOpportunity) error
	GetByRun(ctx context.Context, runID uuid.UUID) ([]models.ValueOpportunity, error)
}

// FixtureWriter defines the ingestion-side writes used to seed a store.
// Spread quotes must be written with the home handicap on both selections,
// so feeds that quote the away side's own handicap negate it first.
type FixtureWriter interface {
	UpsertFixtures(ctx context.Context, fixtures []models.Fixture) error
	ReplaceQuotes(ctx context.Context, fixtureID string, quotes []models.RawQuote) error
}
