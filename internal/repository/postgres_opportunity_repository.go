package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/value-tipster/internal/database"
	"github.com/yourusername/value-tipster/internal/models"
)

var opportunityColumns = []string{
	"id", "run_id", "rank", "fixture_id", "league", "home_team", "away_team", "kickoff_at",
	"market", "selection", "line", "bookmaker", "odds", "model_probability", "market_probability",
	"market_margin", "edge", "value_pct", "expected_value", "confidence", "kelly_fraction",
	"fractional_kelly", "bankroll_pct", "recommended_stake", "model_variant", "detected_at",
}

// PostgresOpportunityRepository implements OpportunityRepository for PostgreSQL
type PostgresOpportunityRepository struct {
	db *database.DB
}

// NewPostgresOpportunityRepository creates a new opportunity repository
func NewPostgresOpportunityRepository(db *database.DB) *PostgresOpportunityRepository {
	return &PostgresOpportunityRepository{db: db}
}

// SaveBatch stores a ranked scan result using COPY
func (r *PostgresOpportunityRepository) SaveBatch(ctx context.Context, opportunities []models.ValueOpportunity) error {
	if len(opportunities) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(opportunities))
	for i, o := range opportunities {
		rows[i] = []interface{}{
			o.ID, o.RunID, i + 1, o.FixtureID, o.League, o.HomeTeam, o.AwayTeam, o.KickoffAt.UTC(),
			string(o.Market), string(o.Selection), o.Line, o.Bookmaker, o.Odds, o.ModelProbability, o.MarketProbability,
			o.MarketMargin, o.Edge, o.ValuePct, o.ExpectedValue, o.Confidence, o.KellyFraction,
			o.FractionalKelly, o.BankrollPct, o.RecommendedStake, o.ModelVariant, o.DetectedAt.UTC(),
		}
	}

	copyCount, err := r.db.GetPool().CopyFrom(ctx, pgx.Identifier{"value_opportunities"}, opportunityColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to batch insert opportunities: %w", err)
	}
	if copyCount != int64(len(opportunities)) {
		return fmt.Errorf("inserted %d rows, expected %d", copyCount, len(opportunities))
	}
	return nil
}

// GetByRun returns a scan result in rank order
func (r *PostgresOpportunityRepository) GetByRun(ctx context.Context, runID uuid.UUID) ([]models.ValueOpportunity, error) {
	query := `
		SELECT id, run_id, fixture_id, league, home_team, away_team, kickoff_at,
		       market, selection, line, bookmaker, odds, model_probability, market_probability,
		       market_margin, edge, value_pct, expected_value, confidence, kelly_fraction,
		       fractional_kelly, bankroll_pct, recommended_stake, model_variant, detected_at
		FROM value_opportunities
		WHERE run_id = $1
		ORDER BY rank
	`

	rows, err := r.db.GetPool().Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	opportunities := []models.ValueOpportunity{}
	for rows.Next() {
		var o models.ValueOpportunity
		err := rows.Scan(
			&o.ID, &o.RunID, &o.FixtureID, &o.League, &o.HomeTeam, &o.AwayTeam, &o.KickoffAt,
			&o.Market, &o.Selection, &o.Line, &o.Bookmaker, &o.Odds, &o.ModelProbability, &o.MarketProbability,
			&o.MarketMargin, &o.Edge, &o.ValuePct, &o.ExpectedValue, &o.Confidence, &o.KellyFraction,
			&o.FractionalKelly, &o.BankrollPct, &o.RecommendedStake, &o.ModelVariant, &o.DetectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		opportunities = append(opportunities, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opportunities: %w", err)
	}
	return opportunities, nil
}
