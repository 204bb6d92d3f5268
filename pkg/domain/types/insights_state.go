package types

import "fmt"

// InsightsState is the lifecycle state of one cached insights record.
//
//	IDLE -> LOADING -> FRESH | ERRORED
//	FRESH -> STALE (time based)
//	STALE -> LOADING (one revalidation) -> FRESH | ERRORED
//	any -> LOADING (explicit refresh)
type InsightsState string

const (
	InsightsStateIdle    InsightsState = "IDLE"
	InsightsStateLoading InsightsState = "LOADING"
	InsightsStateFresh   InsightsState = "FRESH"
	InsightsStateStale   InsightsState = "STALE"
	InsightsStateErrored InsightsState = "ERRORED"
)

// AllInsightsStates returns all valid insights states
func AllInsightsStates() []InsightsState {
	return []InsightsState{
		InsightsStateIdle,
		InsightsStateLoading,
		InsightsStateFresh,
		InsightsStateStale,
		InsightsStateErrored,
	}
}

// IsValid checks if the insights state is valid
func (s InsightsState) IsValid() bool {
	switch s {
	case InsightsStateIdle,
		InsightsStateLoading,
		InsightsStateFresh,
		InsightsStateStale,
		InsightsStateErrored:
		return true
	default:
		return false
	}
}

// IsSettled reports whether no fetch is pending or about to be issued for the record
func (s InsightsState) IsSettled() bool {
	switch s {
	case InsightsStateFresh, InsightsStateErrored, InsightsStateIdle:
		return true
	default:
		return false
	}
}

// String returns the string representation of the insights state
func (s InsightsState) String() string {
	return string(s)
}

// ParseInsightsState parses a string into an InsightsState
func ParseInsightsState(s string) (InsightsState, error) {
	state := InsightsState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid insights state: %s", s)
	}
	return state, nil
}
