// Package feed publishes live scan results to websocket subscribers and to
// a Redis stream.
package feed

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/value-tipster/internal/models"
)

// Message types exchanged over the websocket feed
const (
	MessageTypeOpportunities = "opportunities"
	MessageTypeSubscribe     = "subscribe"
	MessageTypeUnsubscribe   = "unsubscribe"
	MessageTypeHeartbeat     = "heartbeat"
	MessageTypeError         = "error"
)

// ClientMessage is a message from a subscriber
type ClientMessage struct {
	Type   string  `json:"type"`
	Filter *Filter `json:"filter,omitempty"`
}

// ServerMessage is a message to a subscriber
type ServerMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// OpportunityBatch is the payload of an opportunities message
type OpportunityBatch struct {
	RunID         uuid.UUID                 `json:"run_id"`
	CompletedAt   time.Time                 `json:"completed_at"`
	Opportunities []models.ValueOpportunity `json:"opportunities"`
}

// ClientStats is the payload of a heartbeat reply
type ClientStats struct {
	ClientID      string    `json:"client_id"`
	ConnectedAt   time.Time `json:"connected_at"`
	MessagesSent  int64     `json:"messages_sent"`
	LastMessageAt time.Time `json:"last_message_at"`
	Filter        Filter    `json:"filter"`
}

// ErrorMessage is the payload of an error message
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Filter narrows the opportunities a subscriber receives. Empty fields match everything.
type Filter struct {
	Leagues     []string            `json:"leagues,omitempty"`
	Markets     []models.MarketKind `json:"markets,omitempty"`
	Fixtures    []string            `json:"fixtures,omitempty"`
	MinValuePct float64             `json:"min_value_pct,omitempty"`
}

// Matches reports whether an opportunity passes the filter
func (f Filter) Matches(opp models.ValueOpportunity) bool {
	if len(f.Leagues) > 0 && !contains(f.Leagues, opp.League) {
		return false
	}
	if len(f.Markets) > 0 && !contains(f.Markets, opp.Market) {
		return false
	}
	if len(f.Fixtures) > 0 && !contains(f.Fixtures, opp.FixtureID) {
		return false
	}
	return opp.ValuePct >= f.MinValuePct
}

// Apply returns the opportunities passing the filter, preserving rank order
func (f Filter) Apply(opps []models.ValueOpportunity) []models.ValueOpportunity {
	out := make([]models.ValueOpportunity, 0, len(opps))
	for _, opp := range opps {
		if f.Matches(opp) {
			out = append(out, opp)
		}
	}
	return out
}

func contains[T comparable](slice []T, item T) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
