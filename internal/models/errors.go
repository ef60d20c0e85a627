package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key violation")
	ErrInvalidOdds       = errors.New("invalid odds")
	ErrInvalidQuote      = errors.New("invalid market quote")
	ErrInsufficientData  = errors.New("insufficient historical data")
	ErrMissingPrediction = errors.New("missing prediction")
	ErrDegenerateKelly   = errors.New("degenerate kelly input: odds of exactly 1.0")
)

// InvalidOddsError carries the raw price that failed normalisation.
type InvalidOddsError struct {
	Raw    string
	Reason string
}

func (e *InvalidOddsError) Error() string {
	return fmt.Sprintf("invalid odds %q: %s", e.Raw, e.Reason)
}

func (e *InvalidOddsError) Unwrap() error {
	return ErrInvalidOdds
}

// InsufficientDataError is returned before any replay when a season or its
// training pool is too small to produce a meaningful benchmark.
type InsufficientDataError struct {
	Season   string
	League   string
	What     string
	Have     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	scope := e.Season
	if e.League != "" {
		scope = fmt.Sprintf("%s/%s", e.League, e.Season)
	}
	return fmt.Sprintf("insufficient %s for %s: have %d, need %d", e.What, scope, e.Have, e.Required)
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}
