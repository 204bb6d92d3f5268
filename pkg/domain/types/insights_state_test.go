package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/musubi/pkg/domain/types"
)

func TestInsightsState_IsValid(t *testing.T) {
	for _, s := range types.AllInsightsStates() {
		t.Run(s.String(), func(t *testing.T) {
			gt.B(t, s.IsValid()).True()
		})
	}

	gt.B(t, types.InsightsState("").IsValid()).False()
	gt.B(t, types.InsightsState("fresh").IsValid()).False()
}

func TestInsightsState_IsSettled(t *testing.T) {
	tests := []struct {
		state types.InsightsState
		want  bool
	}{
		{types.InsightsStateIdle, true},
		{types.InsightsStateLoading, false},
		{types.InsightsStateFresh, true},
		{types.InsightsStateStale, false},
		{types.InsightsStateErrored, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			gt.Value(t, tt.state.IsSettled()).Equal(tt.want)
		})
	}
}

func TestParseInsightsState(t *testing.T) {
	s, err := types.ParseInsightsState("STALE")
	gt.NoError(t, err).Required()
	gt.Value(t, s).Equal(types.InsightsStateStale)

	_, err = types.ParseInsightsState("UNKNOWN")
	gt.Value(t, err).NotNil()
}
