package model

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/types"
)

// Insights is the provider-defined analytics payload for a user. The payload is
// opaque to musubi: it is stored, timestamped and replaced as a whole, never merged.
type Insights struct {
	Payload json.RawMessage
}

// NewInsights copies payload into a new Insights
func NewInsights(payload []byte) *Insights {
	copied := make(json.RawMessage, len(payload))
	copy(copied, payload)
	return &Insights{Payload: copied}
}

// Decode unmarshals the payload into v
func (x *Insights) Decode(v any) error {
	if x == nil || len(x.Payload) == 0 {
		return goerr.New("insights payload is empty")
	}
	if err := json.Unmarshal(x.Payload, v); err != nil {
		return goerr.Wrap(err, "failed to decode insights payload")
	}
	return nil
}

// InsightsView is a snapshot of one cached insights record as seen by a caller.
// Value is nil until the first successful fetch and survives later failures.
type InsightsView struct {
	Key        types.UserID
	Value      *Insights
	State      types.InsightsState
	Err        error
	FetchedAt  time.Time
	Generation uint64
}

// HasValue reports whether the view carries a payload
func (x InsightsView) HasValue() bool {
	return x.Value != nil
}
