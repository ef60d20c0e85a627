package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/value-tipster/internal/database"
	"github.com/yourusername/value-tipster/internal/models"
)

var ledgerColumns = []string{
	"report_id", "sequence", "fixture_id", "kickoff_at", "home_team", "away_team", "market", "selection",
	"line", "odds", "model_probability", "implied_probability", "value_pct", "confidence",
	"stake", "result", "profit", "bankroll_after",
}

// PostgresReportSink implements ReportSink for PostgreSQL
type PostgresReportSink struct {
	db *database.DB
}

// NewPostgresReportSink creates a new report sink
func NewPostgresReportSink(db *database.DB) *PostgresReportSink {
	return &PostgresReportSink{db: db}
}

// SaveReport writes the report row and its ledger in one transaction
func (s *PostgresReportSink) SaveReport(ctx context.Context, report *models.BenchmarkReport) error {
	body, err := json.Marshal(reportSummary(report))
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO benchmark_reports (
				id, season, league, model_variant, initial_bankroll, final_bankroll,
				total_bets, roi, max_drawdown, accuracy, body, started_at, completed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`
		_, err := tx.Exec(ctx, query,
			report.ID, report.Season, report.League, report.ModelVariant, report.InitialBankroll, report.FinalBankroll,
			report.Statistics.TotalBets, report.Statistics.ROI, report.Statistics.MaxDrawdown, report.Accuracy.Overall,
			body, report.StartedAt, report.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert report: %w", err)
		}

		if len(report.Ledger) == 0 {
			return nil
		}

		rows := make([][]interface{}, len(report.Ledger))
		for i, b := range report.Ledger {
			rows[i] = []interface{}{
				report.ID, b.Sequence, b.FixtureID, b.KickoffAt.UTC(), b.HomeTeam, b.AwayTeam,
				string(b.Market), string(b.Selection), b.Line, b.Odds, b.ModelProbability, b.ImpliedProbability,
				b.ValuePct, b.Confidence, b.Stake, string(b.Result), b.Profit, b.BankrollAfter,
			}
		}

		copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"bet_records"}, ledgerColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy ledger: %w", err)
		}
		if copyCount != int64(len(report.Ledger)) {
			return fmt.Errorf("inserted %d ledger rows, expected %d", copyCount, len(report.Ledger))
		}
		return nil
	})
}

// GetReport reads a report and its ledger back
func (s *PostgresReportSink) GetReport(ctx context.Context, id uuid.UUID) (*models.BenchmarkReport, error) {
	var body []byte
	err := s.db.GetPool().QueryRow(ctx, `SELECT body FROM benchmark_reports WHERE id = $1`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	report := &models.BenchmarkReport{}
	if err := json.Unmarshal(body, report); err != nil {
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
func (s *PostgresReportSink) ListReports(ctx context.Context, season, league string, limit int) ([]*models.BenchmarkReport, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT body FROM benchmark_reports
		WHERE ($1 = '' OR season = $1) AND ($2 = '' OR league = $2)
		ORDER BY completed_at DESC
		LIMIT $3
	`

	rows, err := s.db.GetPool().Query(ctx, query, season, league, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.BenchmarkReport{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report := &models.BenchmarkReport{}
		if err := json.Unmarshal(body, report); err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

func (s *PostgresReportSink) getLedger(ctx context.Context, id uuid.UUID) ([]models.BetRecord, error) {
	query := `
		SELECT sequence, fixture_id, kickoff_at, home_team, away_team, market, selection, line,
		       odds, model_probability, implied_probability, value_pct, confidence,
		       stake, result, profit, bankroll_after
		FROM bet_records
		WHERE report_id = $1
		ORDER BY sequence
	`

	rows, err := s.db.GetPool().Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	ledger := []models.BetRecord{}
	for rows.Next() {
		var b models.BetRecord
		err := rows.Scan(
			&b.Sequence, &b.FixtureID, &b.KickoffAt, &b.HomeTeam, &b.AwayTeam, &b.Market, &b.Selection, &b.Line,
			&b.Odds, &b.ModelProbability, &b.ImpliedProbability, &b.ValuePct, &b.Confidence,
			&b.Stake, &b.Result, &b.Profit, &b.BankrollAfter,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet record: %w", err)
		}
		ledger = append(ledger, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger: %w", err)
	}
	return ledger, nil
}
