package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/value-tipster/internal/models"
)

const fixtureColumns = "id, league, season, home_team, away_team, kickoff_at, home_goals, away_goals"

// dialect renders placeholders and time values for one SQL backend
type dialect struct {
	placeholder func(n int) string
	timeArg     func(t time.Time) any
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	timeArg:     func(t time.Time) any { return t.UTC() },
}

// SQLite stores times as fixed-width UTC text so that they sort correctly
var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	timeArg:     func(t time.Time) any { return formatTime(t) },
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// fixtureWhere builds the WHERE clause and arguments for a fixture filter
func (d dialect) fixtureWhere(filter models.FixtureFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, d.placeholder(len(args))))
	}

	if filter.League != "" {
		add("league = %s", filter.League)
	}
	if filter.Season != "" {
		add("season = %s", filter.Season)
	}
	if filter.ExcludeSeason != "" {
		add("season <> %s", filter.ExcludeSeason)
	}
	if !filter.KickoffFrom.IsZero() {
		add("kickoff_at >= %s", d.timeArg(filter.KickoffFrom))
	}
	if !filter.KickoffTo.IsZero() {
		add("kickoff_at < %s", d.timeArg(filter.KickoffTo))
	}
	if filter.PlayedOnly {
		conds = append(conds, "home_goals IS NOT NULL AND away_goals IS NOT NULL")
	}
	if filter.UpcomingOnly {
		conds = append(conds, "(home_goals IS NULL OR away_goals IS NULL)")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// fixturesQuery selects fixtures in replay order
func (d dialect) fixturesQuery(filter models.FixtureFilter) (string, []any) {
	where, args := d.fixtureWhere(filter)
	query := "SELECT " + fixtureColumns + " FROM fixtures" + where + " ORDER BY kickoff_at, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT " + d.placeholder(len(args))
	}
	return query, args
}

// trainingQuery selects the most recent filter.Limit fixtures, oldest first
func (d dialect) trainingQuery(filter models.FixtureFilter) (string, []any) {
	if filter.Limit <= 0 {
		return d.fixturesQuery(filter)
	}
	where, args := d.fixtureWhere(filter)
	args = append(args, filter.Limit)
	inner := "SELECT " + fixtureColumns + " FROM fixtures" + where +
		" ORDER BY kickoff_at DESC, id DESC LIMIT " + d.placeholder(len(args))
	return "SELECT " + fixtureColumns + " FROM (" + inner + ") recent ORDER BY kickoff_at, id", args
}

func (d dialect) countQuery(filter models.FixtureFilter) (string, []any) {
	where, args := d.fixtureWhere(filter)
	return "SELECT COUNT(*) FROM fixtures" + where, args
}

// reportSummary strips the ledger, which is stored as rows of its own
func reportSummary(report *models.BenchmarkReport) models.BenchmarkReport {
	summary := *report
	summary.Ledger = nil
	return summary
}
