package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/value-tipster/internal/database"
	"github.com/yourusername/value-tipster/internal/models"
)

// PostgresHistoricalStore implements HistoricalStore and FixtureWriter for PostgreSQL
type PostgresHistoricalStore struct {
	db *database.DB
}

// NewPostgresHistoricalStore creates a new historical store
func NewPostgresHistoricalStore(db *database.DB) *PostgresHistoricalStore {
	return &PostgresHistoricalStore{db: db}
}

// GetFixtures retrieves fixtures in kickoff order
func (s *PostgresHistoricalStore) GetFixtures(ctx context.Context, filter models.FixtureFilter) ([]models.Fixture, error) {
	query, args := postgresDialect.fixturesQuery(filter)
	return s.queryFixtures(ctx, query, args)
}

// CountFixtures counts fixtures matching the filter
func (s *PostgresHistoricalStore) CountFixtures(ctx context.Context, filter models.FixtureFilter) (int, error) {
	query, args := postgresDialect.countQuery(filter)
	var count int
	if err := s.db.GetPool().QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count fixtures: %w", err)
	}
	return count, nil
}

// GetTrainingMatches retrieves the most recent played fixtures, oldest first
func (s *PostgresHistoricalStore) GetTrainingMatches(ctx context.Context, filter models.FixtureFilter) ([]models.Fixture, error) {
	query, args := postgresDialect.trainingQuery(filter)
	return s.queryFixtures(ctx, query, args)
}

// GetQuotes retrieves the recorded quotes of a fixture
func (s *PostgresHistoricalStore) GetQuotes(ctx context.Context, fixtureID string) ([]models.RawQuote, error) {
	query := `
		SELECT fixture_id, market, selection, odds, line, bookmaker, captured_at
		FROM quotes
		WHERE fixture_id = $1
		ORDER BY id
	`

	rows, err := s.db.GetPool().Query(ctx, query, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	quotes := []models.RawQuote{}
	for rows.Next() {
		var q models.RawQuote
		if err := rows.Scan(&q.FixtureID, &q.Market, &q.Selection, &q.Odds, &q.Line, &q.Bookmaker, &q.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotes: %w", err)
	}
	return quotes, nil
}

// ListSeasons returns the distinct seasons of a league, or of every league
func (s *PostgresHistoricalStore) ListSeasons(ctx context.Context, league string) ([]string, error) {
	query := `SELECT DISTINCT season FROM fixtures WHERE ($1 = '' OR league = $1) ORDER BY season`

	rows, err := s.db.GetPool().Query(ctx, query, league)
	if err != nil {
		return nil, fmt.Errorf("failed to query seasons: %w", err)
	}
	defer rows.Close()

	seasons, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect seasons: %w", err)
	}
	return seasons, nil
}

// UpsertFixtures inserts fixtures or refreshes their scores
func (s *PostgresHistoricalStore) UpsertFixtures(ctx context.Context, fixtures []models.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}

	query := `
		INSERT INTO fixtures (id, league, season, home_team, away_team, kickoff_at, home_goals, away_goals)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			league = EXCLUDED.league,
			season = EXCLUDED.season,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			kickoff_at = EXCLUDED.kickoff_at,
			home_goals = EXCLUDED.home_goals,
			away_goals = EXCLUDED.away_goals,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, f := range fixtures {
		batch.Queue(query, f.ID, f.League, f.Season, f.HomeTeam, f.AwayTeam, f.KickoffAt.UTC(), f.HomeGoals, f.AwayGoals)
	}

	results := s.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()
	for range fixtures {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert fixture: %w", err)
		}
	}
	return nil
}

// ReplaceQuotes swaps the recorded quotes of a fixture in one transaction
func (s *PostgresHistoricalStore) ReplaceQuotes(ctx context.Context, fixtureID string, quotes []models.RawQuote) error {
	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM quotes WHERE fixture_id = $1`, fixtureID); err != nil {
			return fmt.Errorf("failed to delete quotes: %w", err)
		}
		if len(quotes) == 0 {
			return nil
		}

		// Use COPY for high-performance bulk insert
		columns := []string{"fixture_id", "market", "selection", "odds", "line", "bookmaker", "captured_at"}
		rows := make([][]interface{}, len(quotes))
		for i, q := range quotes {
			rows[i] = []interface{}{fixtureID, string(q.Market), string(q.Selection), q.Odds, q.Line, q.Bookmaker, q.CapturedAt.UTC()}
		}

		copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"quotes"}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy quotes: %w", err)
		}
		if copyCount != int64(len(quotes)) {
			return fmt.Errorf("inserted %d quotes, expected %d", copyCount, len(quotes))
		}
		return nil
	})
}

func (s *PostgresHistoricalStore) queryFixtures(ctx context.Context, query string, args []any) ([]models.Fixture, error) {
	rows, err := s.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fixtures: %w", err)
	}
	defer rows.Close()

	fixtures := []models.Fixture{}
	for rows.Next() {
		var f models.Fixture
		err := rows.Scan(&f.ID, &f.League, &f.Season, &f.HomeTeam, &f.AwayTeam, &f.KickoffAt, &f.HomeGoals, &f.AwayGoals)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fixture: %w", err)
		}
		fixtures = append(fixtures, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fixtures: %w", err)
	}
	return fixtures, nil
}
