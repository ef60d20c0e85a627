package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yourusername/value-tipster/internal/models"
)

// SQLiteStore implements every repository interface on one SQLite database.
// It backs offline backtests and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps a database opened with database.OpenSQLite
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetFixtures retrieves fixtures in kickoff order
func (s *SQLiteStore) GetFixtures(ctx context.Context, filter models.FixtureFilter) ([]models.Fixture, error) {
	query, args := sqliteDialect.fixturesQuery(filter)
	return s.queryFixtures(ctx, query, args)
}

// CountFixtures counts fixtures matching the filter
func (s *SQLiteStore) CountFixtures(ctx context.Context, filter models.FixtureFilter) (int, error) {
	query, args := sqliteDialect.countQuery(filter)
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count fixtures: %w", err)
	}
	return count, nil
}

// GetTrainingMatches retrieves the most recent played fixtures, oldest first
func (s *SQLiteStore) GetTrainingMatches(ctx context.Context, filter models.FixtureFilter) ([]models.Fixture, error) {
	query, args := sqliteDialect.trainingQuery(filter)
	return s.queryFixtures(ctx, query, args)
}

// GetQuotes retrieves the recorded quotes of a fixture
func (s *SQLiteStore) GetQuotes(ctx context.Context, fixtureID string) ([]models.RawQuote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fixture_id, market, selection, odds, line, bookmaker, captured_at
		FROM quotes WHERE fixture_id = ? ORDER BY id`, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	quotes := []models.RawQuote{}
	for rows.Next() {
		var (
			q        models.RawQuote
			line     sql.NullFloat64
			captured string
		)
		if err := rows.Scan(&q.FixtureID, &q.Market, &q.Selection, &q.Odds, &line, &q.Bookmaker, &captured); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		q.Line = nullFloat(line)
		if q.CapturedAt, err = parseTime(captured); err != nil {
			return nil, fmt.Errorf("invalid captured_at %q: %w", captured, err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotes: %w", err)
	}
	return quotes, nil
}

// ListSeasons returns the distinct seasons of a league, or of every league
func (s *SQLiteStore) ListSeasons(ctx context.Context, league string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT season FROM fixtures WHERE (? = '' OR league = ?) ORDER BY season`, league, league)
	if err != nil {
		return nil, fmt.Errorf("failed to query seasons: %w", err)
	}
	defer rows.Close()

	seasons := []string{}
	for rows.Next() {
		var season string
		if err := rows.Scan(&season); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, season)
	}
	return seasons, rows.Err()
}

// UpsertFixtures inserts fixtures or refreshes their scores
func (s *SQLiteStore) UpsertFixtures(ctx context.Context, fixtures []models.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fixtures (id, league, season, home_team, away_team, kickoff_at, home_goals, away_goals)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				league = excluded.league,
				season = excluded.season,
				home_team = excluded.home_team,
				away_team = excluded.away_team,
				kickoff_at = excluded.kickoff_at,
				home_goals = excluded.home_goals,
				away_goals = excluded.away_goals`)
		if err != nil {
			return fmt.Errorf("failed to prepare fixture upsert: %w", err)
		}
		defer stmt.Close()

		for _, f := range fixtures {
			_, err := stmt.ExecContext(ctx, f.ID, f.League, f.Season, f.HomeTeam, f.AwayTeam,
				formatTime(f.KickoffAt), intArg(f.HomeGoals), intArg(f.AwayGoals))
			if err != nil {
				return fmt.Errorf("failed to upsert fixture %s: %w", f.ID, err)
			}
		}
		return nil
	})
}

// ReplaceQuotes swaps the recorded quotes of a fixture in one transaction
func (s *SQLiteStore) ReplaceQuotes(ctx context.Context, fixtureID string, quotes []models.RawQuote) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM quotes WHERE fixture_id = ?`, fixtureID); err != nil {
			return fmt.Errorf("failed to delete quotes: %w", err)
		}
		for _, q := range quotes {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO quotes (fixture_id, market, selection, odds, line, bookmaker, captured_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				fixtureID, string(q.Market), string(q.Selection), q.Odds, floatArg(q.Line), q.Bookmaker, formatTime(q.CapturedAt))
			if err != nil {
				return fmt.Errorf("failed to insert quote: %w", err)
			}
		}
		return nil
	})
}

// SaveReport writes the report row and its ledger in one transaction
func (s *SQLiteStore) SaveReport(ctx context.Context, report *models.BenchmarkReport) error {
	body, err := json.Marshal(reportSummary(report))
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO benchmark_reports (
				id, season, league, model_variant, initial_bankroll, final_bankroll,
				total_bets, roi, max_drawdown, accuracy, body, started_at, completed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.ID.String(), report.Season, report.League, report.ModelVariant, report.InitialBankroll, report.FinalBankroll,
			report.Statistics.TotalBets, report.Statistics.ROI, report.Statistics.MaxDrawdown, report.Accuracy.Overall,
			string(body), formatTime(report.StartedAt), formatTime(report.CompletedAt))
		if err != nil {
			return fmt.Errorf("failed to insert report: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO bet_records (
				report_id, sequence, fixture_id, kickoff_at, home_team, away_team, market, selection,
				line, odds, model_probability, implied_probability, value_pct, confidence,
				stake, result, profit, bankroll_after
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare ledger insert: %w", err)
		}
		defer stmt.Close()

		for _, b := range report.Ledger {
			_, err := stmt.ExecContext(ctx,
				report.ID.String(), b.Sequence, b.FixtureID, formatTime(b.KickoffAt), b.HomeTeam, b.AwayTeam,
				string(b.Market), string(b.Selection), floatArg(b.Line), b.Odds, b.ModelProbability, b.ImpliedProbability,
				b.ValuePct, b.Confidence, b.Stake, string(b.Result), b.Profit, b.BankrollAfter)
			if err != nil {
				return fmt.Errorf("failed to insert bet record %d: %w", b.Sequence, err)
			}
		}
		return nil
	})
}

// GetReport reads a report and its ledger back
func (s *SQLiteStore) GetReport(ctx context.Context, id uuid.UUID) (*models.BenchmarkReport, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM benchmark_reports WHERE id = ?`, id.String()).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	report := &models.BenchmarkReport{}
	if err := json.Unmarshal([]byte(body), report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}

	ledger, err := s.getLedger(ctx, id)
	if err != nil {
		return nil, err
	}
	report.Ledger = ledger
	return report, nil
}

// ListReports returns the latest reports without their ledgers
func (s *SQLiteStore) ListReports(ctx context.Context, season, league string, limit int) ([]*models.BenchmarkReport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM benchmark_reports
		WHERE (? = '' OR season = ?) AND (? = '' OR league = ?)
		ORDER BY completed_at DESC
		LIMIT ?`, season, season, league, league, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.BenchmarkReport{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report := &models.BenchmarkReport{}
		if err := json.Unmarshal([]byte(body), report); err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// SaveBatch stores a ranked scan result
func (s *SQLiteStore) SaveBatch(ctx context.Context, opportunities []models.ValueOpportunity) error {
	if len(opportunities) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO value_opportunities (
				id, run_id, rank, fixture_id, league, home_team, away_team, kickoff_at,
				market, selection, line, bookmaker, odds, model_probability, market_probability,
				market_margin, edge, value_pct, expected_value, confidence, kelly_fraction,
				fractional_kelly, bankroll_pct, recommended_stake, model_variant, detected_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare opportunity insert: %w", err)
		}
		defer stmt.Close()

		for i, o := range opportunities {
			_, err := stmt.ExecContext(ctx,
				o.ID.String(), o.RunID.String(), i+1, o.FixtureID, o.League, o.HomeTeam, o.AwayTeam, formatTime(o.KickoffAt),
				string(o.Market), string(o.Selection), floatArg(o.Line), o.Bookmaker, o.Odds, o.ModelProbability, o.MarketProbability,
				o.MarketMargin, o.Edge, o.ValuePct, o.ExpectedValue, o.Confidence, o.KellyFraction,
				o.FractionalKelly, o.BankrollPct, o.RecommendedStake, o.ModelVariant, formatTime(o.DetectedAt))
			if err != nil {
				return fmt.Errorf("failed to insert opportunity: %w", err)
			}
		}
		return nil
	})
}

// GetByRun returns a scan result in rank order
func (s *SQLiteStore) GetByRun(ctx context.Context, runID uuid.UUID) ([]models.ValueOpportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, fixture_id, league, home_team, away_team, kickoff_at,
		       market, selection, line, bookmaker, odds, model_probability, market_probability,
		       market_margin, edge, value_pct, expected_value, confidence, kelly_fraction,
		       fractional_kelly, bankroll_pct, recommended_stake, model_variant, detected_at
		FROM value_opportunities WHERE run_id = ? ORDER BY rank`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	opportunities := []models.ValueOpportunity{}
	for rows.Next() {
		var (
			o                 models.ValueOpportunity
			line              sql.NullFloat64
			kickoff, detected string
		)
		err := rows.Scan(
			&o.ID, &o.RunID, &o.FixtureID, &o.League, &o.HomeTeam, &o.AwayTeam, &kickoff,
			&o.Market, &o.Selection, &line, &o.Bookmaker, &o.Odds, &o.ModelProbability, &o.MarketProbability,
			&o.MarketMargin, &o.Edge, &o.ValuePct, &o.ExpectedValue, &o.Confidence, &o.KellyFraction,
			&o.FractionalKelly, &o.BankrollPct, &o.RecommendedStake, &o.ModelVariant, &detected,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		o.Line = nullFloat(line)
		if o.KickoffAt, err = parseTime(kickoff); err != nil {
			return nil, err
		}
		if o.DetectedAt, err = parseTime(detected); err != nil {
			return nil, err
		}
		opportunities = append(opportunities, o)
	}
	return opportunities, rows.Err()
}

func (s *SQLiteStore) getLedger(ctx context.Context, id uuid.UUID) ([]models.BetRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, fixture_id, kickoff_at, home_team, away_team, market, selection, line,
		       odds, model_probability, implied_probability, value_pct, confidence,
		       stake, result, profit, bankroll_after
		FROM bet_records WHERE report_id = ? ORDER BY sequence`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	ledger := []models.BetRecord{}
	for rows.Next() {
		var (
			b       models.BetRecord
			line    sql.NullFloat64
			kickoff string
		)
		err := rows.Scan(
			&b.Sequence, &b.FixtureID, &kickoff, &b.HomeTeam, &b.AwayTeam, &b.Market, &b.Selection, &line,
			&b.Odds, &b.ModelProbability, &b.ImpliedProbability, &b.ValuePct, &b.Confidence,
			&b.Stake, &b.Result, &b.Profit, &b.BankrollAfter,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet record: %w", err)
		}
		b.Line = nullFloat(line)
		if b.KickoffAt, err = parseTime(kickoff); err != nil {
			return nil, err
		}
		ledger = append(ledger, b)
	}
	return ledger, rows.Err()
}

func (s *SQLiteStore) queryFixtures(ctx context.Context, query string, args []any) ([]models.Fixture, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fixtures: %w", err)
	}
	defer rows.Close()

	fixtures := []models.Fixture{}
	for rows.Next() {
		var (
			f          models.Fixture
			kickoff    string
			home, away sql.NullInt64
		)
		if err := rows.Scan(&f.ID, &f.League, &f.Season, &f.HomeTeam, &f.AwayTeam, &kickoff, &home, &away); err != nil {
			return nil, fmt.Errorf("failed to scan fixture: %w", err)
		}
		if f.KickoffAt, err = parseTime(kickoff); err != nil {
			return nil, fmt.Errorf("invalid kickoff %q: %w", kickoff, err)
		}
		f.HomeGoals = nullInt(home)
		f.AwayGoals = nullInt(away)
		fixtures = append(fixtures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fixtures: %w", err)
	}
	return fixtures, nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %w", err, rollbackErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func floatArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
