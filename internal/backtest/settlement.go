package backtest

import (
	"fmt"

	"github.com/yourusername/value-tipster/internal/models"
)

// SettleSelection grades a selection against a played fixture. Integer
// total and spread lines that land exactly return a push.
func SettleSelection(fixture models.Fixture, market models.MarketKind, selection models.Selection, line *float64) (models.BetResult, error) {
	if !fixture.IsPlayed() {
		return "", fmt.Errorf("fixture %s has no result", fixture.ID)
	}

	switch market {
	case models.MarketMoneyline:
		outcome, _ := fixture.Result()
		if selectionOutcome(selection) == outcome {
			return models.BetResultWon, nil
		}
		return models.BetResultLost, nil

	case models.MarketTotal:
		if line == nil {
			return "", fmt.Errorf("total bet on fixture %s has no line", fixture.ID)
		}
		margin := float64(fixture.TotalGoals()) - *line
		if selection == models.SelectionUnder {
			margin = -margin
		}
		return grade(margin), nil

	case models.MarketSpread:
		if line == nil {
			return "", fmt.Errorf("spread bet on fixture %s has no line", fixture.ID)
		}
		// The line is a handicap on the home side
		margin := float64(fixture.GoalDifference()) + *line
		if selection == models.SelectionAway {
			margin = -margin
		}
		return grade(margin), nil
	}

	return "", fmt.Errorf("unsupported market %q", market)
}

func grade(margin float64) models.BetResult {
	switch {
	case margin > 0:
		return models.BetResultWon
	case margin < 0:
		return models.BetResultLost
	default:
		return models.BetResultPush
	}
}

func selectionOutcome(s models.Selection) models.Outcome {
	switch s {
	case models.SelectionHome:
		return models.OutcomeHome
	case models.SelectionDraw:
		return models.OutcomeDraw
	case models.SelectionAway:
		return models.OutcomeAway
	}
	return ""
}
