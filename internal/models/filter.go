package models

import "time"

// FixtureFilter narrows fixture queries against the historical store.
// Zero values disable a criterion.
type FixtureFilter struct {
	League        string
	Season        string
	ExcludeSeason string
	KickoffFrom   time.Time
	KickoffTo     time.Time
	PlayedOnly    bool
	UpcomingOnly  bool
	Limit         int
}

// TrainingFilter returns the filter a predictor uses to collect its training
// pool: played fixtures of a league, excluding the held-out season, capped to
// the most recent limit rows.
func TrainingFilter(league, excludedSeason string, limit int) FixtureFilter {
	return FixtureFilter{
		League:        league,
		ExcludeSeason: excludedSeason,
		PlayedOnly:    true,
		Limit:         limit,
	}
}
