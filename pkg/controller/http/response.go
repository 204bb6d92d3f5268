package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/utils/errutil"
	"github.com/secmon-lab/musubi/pkg/utils/safe"
)

type errorResponse struct {
	Error string `json:"error"`
}

type insightsViewResponse struct {
	UserID     string          `json:"user_id,omitempty"`
	State      string          `json:"state"`
	Value      json.RawMessage `json:"value,omitempty"`
	Error      string          `json:"error,omitempty"`
	FetchedAt  *time.Time      `json:"fetched_at,omitempty"`
	Generation uint64          `json:"generation"`
}

func toInsightsViewResponse(view model.InsightsView) insightsViewResponse {
	resp := insightsViewResponse{
		UserID:     view.Key.String(),
		State:      view.State.String(),
		Generation: view.Generation,
	}
	if view.HasValue() {
		resp.Value = view.Value.Payload
	}
	if view.Err != nil {
		resp.Error = view.Err.Error()
	}
	if !view.FetchedAt.IsZero() {
		fetchedAt := view.FetchedAt.UTC()
		resp.FetchedAt = &fetchedAt
	}
	return resp
}

type invitationStateResponse struct {
	Accepted []string `json:"accepted"`
	Declined []string `json:"declined"`
	Version  uint64   `json:"version"`
}

func toInvitationStateResponse(state model.InvitationState) invitationStateResponse {
	resp := invitationStateResponse{
		Accepted: make([]string, 0, len(state.Accepted)),
		Declined: make([]string, 0, len(state.Declined)),
		Version:  state.Version,
	}
	for _, id := range state.AcceptedIDs() {
		resp.Accepted = append(resp.Accepted, id.String())
	}
	for _, id := range state.DeclinedIDs() {
		resp.Declined = append(resp.Declined, id.String())
	}
	return resp
}

type decisionResponse struct {
	State     invitationStateResponse `json:"state"`
	Persisted bool                    `json:"persisted"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, errorResponse{Error: msg})
}
