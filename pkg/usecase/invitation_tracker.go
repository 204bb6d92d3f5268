package usecase

import (
	"context"
	"sync"

	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/utils/async"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
)

// InvitationTracker holds one user's accepted and declined invitation sets for the
// lifetime of a UI session. Both sets are rewritten under a single lock, so no
// observer ever sees an ID in both sets. The tracker is optimistic local state, not
// the system of record.
type InvitationTracker struct {
	userID   types.UserID
	notifier interfaces.Notifier
	messages NoticeMessages

	mu          sync.RWMutex
	accepted    map[types.InvitationID]struct{}
	declined    map[types.InvitationID]struct{}
	decidedAt   map[types.InvitationID]uint64
	version     uint64
	subscribers map[uint64]*async.Mailbox[model.InvitationState]
	nextSubID   uint64
}

type InvitationTrackerOption func(*InvitationTracker)

// WithTrackerUser sets the user the tracked invitations belong to
func WithTrackerUser(userID types.UserID) InvitationTrackerOption {
	return func(t *InvitationTracker) {
		t.userID = userID
	}
}

// WithTrackerNotifier sets the notifier receiving one notice per Accept/Decline call
func WithTrackerNotifier(notifier interfaces.Notifier) InvitationTrackerOption {
	return func(t *InvitationTracker) {
		t.notifier = notifier
	}
}

// WithTrackerMessages sets the notice texts
func WithTrackerMessages(messages NoticeMessages) InvitationTrackerOption {
	return func(t *InvitationTracker) {
		t.messages = messages
	}
}

// NewInvitationTracker creates a tracker with every invitation undecided
func NewInvitationTracker(opts ...InvitationTrackerOption) *InvitationTracker {
	t := &InvitationTracker{
		messages:    DefaultNoticeMessages(),
		accepted:    make(map[types.InvitationID]struct{}),
		declined:    make(map[types.InvitationID]struct{}),
		decidedAt:   make(map[types.InvitationID]uint64),
		subscribers: make(map[uint64]*async.Mailbox[model.InvitationState]),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Accept marks id accepted and removes it from the declined set
func (t *InvitationTracker) Accept(ctx context.Context, id types.InvitationID) {
	t.Apply(ctx, id, types.InvitationDecisionAccepted)
}

// Decline marks id declined and removes it from the accepted set
func (t *InvitationTracker) Decline(ctx context.Context, id types.InvitationID) {
	t.Apply(ctx, id, types.InvitationDecisionDeclined)
}

// Apply records decision for id and returns the resulting state. It is idempotent
// with respect to the sets, but every call bumps Version, notifies subscribers and
// sends one notice, so repeated clicks are all acknowledged. A decision other than
// accepted or declined leaves the state untouched.
func (t *InvitationTracker) Apply(ctx context.Context, id types.InvitationID, decision types.InvitationDecision) model.InvitationState {
	var kind types.NoticeKind
	switch decision {
	case types.InvitationDecisionAccepted:
		kind = types.NoticeKindInvitationAccepted
	case types.InvitationDecisionDeclined:
		kind = types.NoticeKindInvitationDeclined
	default:
		logging.From(ctx).Warn("ignoring invitation transition",
			InvitationIDKey, id,
			DecisionKey, decision,
		)
		return t.Snapshot()
	}

	t.mu.Lock()
	switch decision {
	case types.InvitationDecisionAccepted:
		delete(t.declined, id)
		t.accepted[id] = struct{}{}
	case types.InvitationDecisionDeclined:
		delete(t.accepted, id)
		t.declined[id] = struct{}{}
	}
	t.version++
	t.decidedAt[id] = t.version
	state := t.snapshotLocked()
	t.publishLocked()
	t.mu.Unlock()

	notice := model.NewNotice(kind, t.userID, t.messages.For(kind))
	notice.InvitationID = id
	sendNotice(ctx, t.notifier, notice)

	return state
}

// Replace rebuilds both sets from authoritative responses in one step. When the same
// invitation appears more than once, the response with the highest Version wins.
// Version never decreases, so later local decisions stay newer than anything stored.
func (t *InvitationTracker) Replace(responses []*model.InvitationResponse) model.InvitationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.replaceLocked(t.version, responses)
}

// ReplaceSince is Replace for responses read while the tracker was at version readAt.
// Local decisions made after readAt are kept unless a response for the same invitation
// carries a higher version.
func (t *InvitationTracker) ReplaceSince(readAt uint64, responses []*model.InvitationResponse) model.InvitationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.replaceLocked(readAt, responses)
}

func (t *InvitationTracker) replaceLocked(readAt uint64, responses []*model.InvitationResponse) model.InvitationState {
	latest := make(map[types.InvitationID]*model.InvitationResponse, len(responses))
	var maxVersion uint64
	for _, resp := range responses {
		if resp == nil {
			continue
		}
		if prev, ok := latest[resp.InvitationID]; !ok || resp.Version > prev.Version {
			latest[resp.InvitationID] = resp
		}
		if resp.Version > maxVersion {
			maxVersion = resp.Version
		}
	}

	accepted := make(map[types.InvitationID]struct{})
	declined := make(map[types.InvitationID]struct{})
	decidedAt := make(map[types.InvitationID]uint64, len(latest))
	for id, resp := range latest {
		switch resp.Decision {
		case types.InvitationDecisionAccepted:
			accepted[id] = struct{}{}
		case types.InvitationDecisionDeclined:
			declined[id] = struct{}{}
		default:
			continue
		}
		decidedAt[id] = resp.Version
	}

	for id, v := range t.decidedAt {
		if v <= readAt {
			continue
		}
		if resp, ok := latest[id]; ok && resp.Version > v {
			continue
		}
		delete(accepted, id)
		delete(declined, id)
		if _, ok := t.accepted[id]; ok {
			accepted[id] = struct{}{}
		} else if _, ok := t.declined[id]; ok {
			declined[id] = struct{}{}
		}
		decidedAt[id] = v
	}

	t.accepted = accepted
	t.declined = declined
	t.decidedAt = decidedAt
	if maxVersion > t.version {
		t.version = maxVersion
	}
	t.version++
	t.publishLocked()

	return t.snapshotLocked()
}

// Snapshot returns a copy of the current state
func (t *InvitationTracker) Snapshot() model.InvitationState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// Decision returns the current decision for id
func (t *InvitationTracker) Decision(id types.InvitationID) types.InvitationDecision {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.accepted[id]; ok {
		return types.InvitationDecisionAccepted
	}
	if _, ok := t.declined[id]; ok {
		return types.InvitationDecisionDeclined
	}
	return types.InvitationDecisionUndecided
}

// Subscribe registers fn to receive the state after every mutation, in order. The
// returned function cancels the subscription.
func (t *InvitationTracker) Subscribe(fn func(model.InvitationState)) func() {
	mb := async.NewMailbox(context.Background(), fn)

	t.mu.Lock()
	t.nextSubID++
	id := t.nextSubID
	t.subscribers[id] = mb
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subscribers, id)
			t.mu.Unlock()
			mb.Close()
		})
	}
}

// Close cancels every subscription. The tracker stays usable.
func (t *InvitationTracker) Close() {
	t.mu.Lock()
	subs := t.subscribers
	t.subscribers = make(map[uint64]*async.Mailbox[model.InvitationState])
	t.mu.Unlock()

	for _, mb := range subs {
		mb.Close()
	}
}

func (t *InvitationTracker) snapshotLocked() model.InvitationState {
	state := model.InvitationState{
		Accepted: make(map[types.InvitationID]struct{}, len(t.accepted)),
		Declined: make(map[types.InvitationID]struct{}, len(t.declined)),
		Version:  t.version,
	}
	for id := range t.accepted {
		state.Accepted[id] = struct{}{}
	}
	for id := range t.declined {
		state.Declined[id] = struct{}{}
	}
	return state
}

// publishLocked posts a private copy of the state to every subscriber
func (t *InvitationTracker) publishLocked() {
	for _, mb := range t.subscribers {
		mb.Post(t.snapshotLocked())
	}
}
