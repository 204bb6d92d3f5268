package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/usecase"
	"github.com/secmon-lab/musubi/pkg/utils/errutil"
)

func invitationStateHandler(uc InvitationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		state, err := uc.State(r.Context(), userID)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to get invitation state"), http.StatusInternalServerError)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, toInvitationStateResponse(state))
	}
}

// invitationDecisionHandler applies decision to the invitation in the URL. A
// decision that was applied but not persisted is answered with 202 and
// persisted=false.
func invitationDecisionHandler(uc InvitationUseCase, decision types.InvitationDecision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		id := types.InvitationID(chi.URLParam(r, "id"))
		if id == "" {
			writeError(r.Context(), w, http.StatusBadRequest, "invitation ID is required")
			return
		}

		state, err := uc.Respond(r.Context(), userID, id, decision)
		switch {
		case err == nil:
			writeJSON(r.Context(), w, http.StatusOK, decisionResponse{
				State:     toInvitationStateResponse(state),
				Persisted: true,
			})
		case errors.Is(err, usecase.ErrPersistenceDrift):
			writeJSON(r.Context(), w, http.StatusAccepted, decisionResponse{
				State:     toInvitationStateResponse(state),
				Persisted: false,
			})
		case errors.Is(err, usecase.ErrInvalidDecision):
			writeError(r.Context(), w, http.StatusBadRequest, "invalid decision")
		default:
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to respond to invitation"), http.StatusInternalServerError)
		}
	}
}

func invitationReconcileHandler(uc InvitationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		state, err := uc.Reconcile(r.Context(), userID)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to reconcile invitations"), http.StatusBadGateway)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, toInvitationStateResponse(state))
	}
}

func invitationEndSessionHandler(uc InvitationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		uc.EndSession(userID)
		w.WriteHeader(http.StatusNoContent)
	}
}
