package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/utils/errutil"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
	"github.com/secmon-lab/musubi/pkg/utils/safe"
)

func insightsGetHandler(uc InsightsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := uc.Get(r.Context(), identityFrom(r.Context()))
		writeJSON(r.Context(), w, http.StatusOK, toInsightsViewResponse(view))
	}
}

func insightsRefreshHandler(uc InsightsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := identityFrom(r.Context())
		if _, ok := requireUser(w, r); !ok {
			return
		}

		view := uc.Refresh(r.Context(), identity)
		writeJSON(r.Context(), w, http.StatusAccepted, toInsightsViewResponse(view))
	}
}

// insightsEventsHandler streams every view change of the caller's record as
// server-sent events, starting with the current view.
func insightsEventsHandler(uc InsightsUseCase, keepAlive time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity := identityFrom(ctx)
		if _, ok := requireUser(w, r); !ok {
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			errutil.HandleHTTP(ctx, w, goerr.New("streaming is not supported"), http.StatusInternalServerError)
			return
		}

		updates := make(chan model.InsightsView)
		done := make(chan struct{})
		defer close(done)

		unsubscribe := uc.Subscribe(identity, func(v model.InsightsView) {
			select {
			case updates <- v:
			case <-done:
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		send := func(view model.InsightsView) bool {
			data, err := json.Marshal(toInsightsViewResponse(view))
			if err != nil {
				logging.From(ctx).Error("failed to marshal insights event", "error", err)
				return false
			}
			if !safe.Write(ctx, w, fmt.Appendf(nil, "event: insights\ndata: %s\n\n", data)) {
				return false
			}
			flusher.Flush()
			return true
		}

		if !send(uc.Get(ctx, identity)) {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case view := <-updates:
				if !send(view) {
					return
				}
			case <-ticker.C:
				if !safe.Write(ctx, w, []byte(": keep-alive\n\n")) {
					return
				}
				flusher.Flush()
			case <-ctx.Done():
				return
			}
		}
	}
}
