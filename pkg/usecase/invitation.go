package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/utils/errutil"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
)

type invitationSession struct {
	tracker *InvitationTracker
	once    sync.Once
	err     error
}

// InvitationUseCase keeps one InvitationTracker per active user session and writes
// every decision through to the repository.
//
// A session is reconciled from the repository when it starts and on demand through
// Reconcile. Decisions are applied locally first, then persisted with the tracker
// version, so a delayed write never overwrites a newer decision. A failed write keeps
// the local decision and sends a failure notice; the next reconcile repairs it.
type InvitationUseCase struct {
	repo     interfaces.Repository
	notifier interfaces.Notifier
	messages NoticeMessages
	now      func() time.Time

	mu       sync.Mutex
	sessions map[types.UserID]*invitationSession
}

// NewInvitationUseCase creates a new InvitationUseCase
func NewInvitationUseCase(repo interfaces.Repository, notifier interfaces.Notifier, messages NoticeMessages) *InvitationUseCase {
	return &InvitationUseCase{
		repo:     repo,
		notifier: notifier,
		messages: messages,
		now:      time.Now,
		sessions: make(map[types.UserID]*invitationSession),
	}
}

// Tracker returns the session tracker of userID, starting the session if needed
func (uc *InvitationUseCase) Tracker(ctx context.Context, userID types.UserID) (*InvitationTracker, error) {
	tracker, _, err := uc.session(ctx, userID)
	return tracker, err
}

// State returns the current local state of userID's invitations
func (uc *InvitationUseCase) State(ctx context.Context, userID types.UserID) (model.InvitationState, error) {
	tracker, err := uc.Tracker(ctx, userID)
	if err != nil {
		return model.InvitationState{}, err
	}
	return tracker.Snapshot(), nil
}

// Accept records an accepted invitation for userID
func (uc *InvitationUseCase) Accept(ctx context.Context, userID types.UserID, id types.InvitationID) (model.InvitationState, error) {
	return uc.Respond(ctx, userID, id, types.InvitationDecisionAccepted)
}

// Decline records a declined invitation for userID
func (uc *InvitationUseCase) Decline(ctx context.Context, userID types.UserID, id types.InvitationID) (model.InvitationState, error) {
	return uc.Respond(ctx, userID, id, types.InvitationDecisionDeclined)
}

// Respond applies decision locally and persists it. On a persistence failure the
// returned state still holds the decision and the error wraps ErrPersistenceDrift.
func (uc *InvitationUseCase) Respond(ctx context.Context, userID types.UserID, id types.InvitationID, decision types.InvitationDecision) (model.InvitationState, error) {
	if !decision.IsFinal() {
		return model.InvitationState{}, goerr.Wrap(ErrInvalidDecision, "decision must be accepted or declined",
			goerr.V(DecisionKey, decision))
	}

	tracker, err := uc.Tracker(ctx, userID)
	if err != nil {
		return model.InvitationState{}, err
	}

	state := tracker.Apply(ctx, id, decision)

	resp := &model.InvitationResponse{
		InvitationID: id,
		Decision:     decision,
		Version:      state.Version,
		UpdatedAt:    uc.now().UTC(),
	}
	if err := uc.repo.Invitation().PutResponse(ctx, userID, resp); err != nil {
		drift := goerr.Wrap(errors.Join(ErrPersistenceDrift, err), "failed to persist invitation response",
			goerr.V(UserIDKey, userID),
			goerr.V(InvitationIDKey, id),
			goerr.V(DecisionKey, decision),
		)
		_ = errutil.Handle(ctx, drift, "invitation response drift")

		notice := model.NewNotice(types.NoticeKindInvitationPersistFailed, userID,
			uc.messages.For(types.NoticeKindInvitationPersistFailed))
		notice.InvitationID = id
		sendNotice(ctx, uc.notifier, notice)

		return state, drift
	}

	return state, nil
}

// Reconcile replaces userID's local state with the repository's responses
func (uc *InvitationUseCase) Reconcile(ctx context.Context, userID types.UserID) (model.InvitationState, error) {
	tracker, started, err := uc.session(ctx, userID)
	if err != nil {
		return model.InvitationState{}, err
	}
	if started {
		return tracker.Snapshot(), nil
	}
	return uc.reconcile(ctx, userID, tracker)
}

// EndSession discards userID's local state
func (uc *InvitationUseCase) EndSession(userID types.UserID) {
	uc.mu.Lock()
	s, ok := uc.sessions[userID]
	delete(uc.sessions, userID)
	uc.mu.Unlock()

	if ok {
		s.tracker.Close()
	}
}

// session returns the tracker for userID. started is true when this call created
// and reconciled the session.
func (uc *InvitationUseCase) session(ctx context.Context, userID types.UserID) (*InvitationTracker, bool, error) {
	if err := userID.Validate(); err != nil {
		return nil, false, goerr.Wrap(ErrNoIdentity, "invitation session requires a user", goerr.V(UserIDKey, userID))
	}

	uc.mu.Lock()
	s, ok := uc.sessions[userID]
	if !ok {
		s = &invitationSession{
			tracker: NewInvitationTracker(
				WithTrackerUser(userID),
				WithTrackerNotifier(uc.notifier),
				WithTrackerMessages(uc.messages),
			),
		}
		uc.sessions[userID] = s
	}
	uc.mu.Unlock()

	started := false
	s.once.Do(func() {
		started = true
		// the session outlives the request that opened it
		_, s.err = uc.reconcile(context.WithoutCancel(ctx), userID, s.tracker)
	})

	if s.err != nil {
		uc.mu.Lock()
		if uc.sessions[userID] == s {
			delete(uc.sessions, userID)
		}
		uc.mu.Unlock()
		return nil, false, s.err
	}

	return s.tracker, started, nil
}

// reconcile keeps decisions made while the responses were being listed, since the
// list may have been read before they were stored.
func (uc *InvitationUseCase) reconcile(ctx context.Context, userID types.UserID, tracker *InvitationTracker) (model.InvitationState, error) {
	readAt := tracker.Snapshot().Version
	responses, err := uc.repo.Invitation().ListResponses(ctx, userID)
	if err != nil {
		return model.InvitationState{}, goerr.Wrap(err, "failed to load invitation responses", goerr.V(UserIDKey, userID))
	}

	state := tracker.ReplaceSince(readAt, responses)
	logging.From(ctx).Debug("invitation state reconciled",
		UserIDKey, userID,
		"accepted", len(state.Accepted),
		"declined", len(state.Declined),
	)
	return state, nil
}
