package models

import "time"

// Outcome is the full-time result of a fixture from the home side's view
type Outcome string

const (
	OutcomeHome Outcome = "H"
	OutcomeDraw Outcome = "D"
	OutcomeAway Outcome = "A"
)

// Outcomes lists outcomes in a stable order for reporting
var Outcomes = []Outcome{OutcomeHome, OutcomeDraw, OutcomeAway}

// Fixture represents a scheduled or played football match
type Fixture struct {
	ID        string    `db:"id" json:"id" validate:"required"`
	League    string    `db:"league" json:"league" validate:"required"`
	Season    string    `db:"season" json:"season" validate:"required"`
	HomeTeam  string    `db:"home_team" json:"home_team" validate:"required"`
	AwayTeam  string    `db:"away_team" json:"away_team" validate:"required"`
	KickoffAt time.Time `db:"kickoff_at" json:"kickoff_at" validate:"required"`
	HomeGoals *int      `db:"home_goals" json:"home_goals,omitempty"`
	AwayGoals *int      `db:"away_goals" json:"away_goals,omitempty"`
}

// IsPlayed reports whether the final score is known
func (f *Fixture) IsPlayed() bool {
	return f.HomeGoals != nil && f.AwayGoals != nil
}

// Result returns the final outcome, or false if the fixture has not been played
func (f *Fixture) Result() (Outcome, bool) {
	if !f.IsPlayed() {
		return "", false
	}
	switch {
	case *f.HomeGoals > *f.AwayGoals:
		return OutcomeHome, true
	case *f.HomeGoals < *f.AwayGoals:
		return OutcomeAway, true
	default:
		return OutcomeDraw, true
	}
}

// TotalGoals returns the combined score of a played fixture
func (f *Fixture) TotalGoals() int {
	if !f.IsPlayed() {
		return 0
	}
	return *f.HomeGoals + *f.AwayGoals
}

// GoalDifference returns home goals minus away goals of a played fixture
func (f *Fixture) GoalDifference() int {
	if !f.IsPlayed() {
		return 0
	}
	return *f.HomeGoals - *f.AwayGoals
}
