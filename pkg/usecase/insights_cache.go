package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/utils/async"
	"github.com/secmon-lab/musubi/pkg/utils/errutil"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultInsightsStaleAfter is how long a fetched record stays FRESH
	DefaultInsightsStaleAfter = 5 * time.Minute
)

type insightsRecord struct {
	view model.InsightsView
	// lastError keeps the provider error of the last failed fetch for logging only
	lastError error
}

// InsightsCache holds one insights record per user and keeps it fresh.
//
// Every issued fetch is tagged with a generation taken from a cache wide counter. A
// record remembers the newest generation issued for it, and a completing fetch is
// applied only if its generation is still the newest one. A fetch that was started
// earlier but completes later therefore never overwrites a refresh.
type InsightsCache struct {
	provider   interfaces.InsightsProvider
	notifier   interfaces.Notifier
	messages   NoticeMessages
	staleAfter time.Duration
	now        func() time.Time
	flight     singleflight.Group

	mu          sync.Mutex
	records     map[types.UserID]*insightsRecord
	subscribers map[types.UserID]map[uint64]*async.Mailbox[model.InsightsView]
	generation  uint64
	nextSubID   uint64
}

type InsightsCacheOption func(*InsightsCache)

// WithStaleAfter sets the freshness window
func WithStaleAfter(d time.Duration) InsightsCacheOption {
	return func(c *InsightsCache) {
		c.staleAfter = d
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) InsightsCacheOption {
	return func(c *InsightsCache) {
		c.now = now
	}
}

// WithInsightsNotifier sets the notifier receiving fetch failure notices
func WithInsightsNotifier(notifier interfaces.Notifier) InsightsCacheOption {
	return func(c *InsightsCache) {
		c.notifier = notifier
	}
}

// WithInsightsMessages sets the notice texts
func WithInsightsMessages(messages NoticeMessages) InsightsCacheOption {
	return func(c *InsightsCache) {
		c.messages = messages
	}
}

// NewInsightsCache creates an empty cache backed by provider
func NewInsightsCache(provider interfaces.InsightsProvider, opts ...InsightsCacheOption) *InsightsCache {
	c := &InsightsCache{
		provider:    provider,
		messages:    DefaultNoticeMessages(),
		staleAfter:  DefaultInsightsStaleAfter,
		now:         time.Now,
		records:     make(map[types.UserID]*insightsRecord),
		subscribers: make(map[types.UserID]map[uint64]*async.Mailbox[model.InsightsView]),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// StaleAfter returns the configured freshness window
func (c *InsightsCache) StaleAfter() time.Duration {
	return c.staleAfter
}

// Get returns the current view for identity without blocking.
//
// Without a ready identity nothing is fetched and an IDLE view is returned. The first
// Get for a user issues exactly one fetch and returns LOADING. A FRESH record past the
// freshness window is returned as STALE while one background revalidation starts.
func (c *InsightsCache) Get(ctx context.Context, identity model.Identity) model.InsightsView {
	if !identity.Ready() {
		return idleView(identity)
	}
	key := identity.UserID

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[key]
	if !ok {
		rec = &insightsRecord{view: model.InsightsView{Key: key}}
		c.records[key] = rec
		c.startFetchLocked(ctx, key, rec)
		return rec.view
	}

	switch rec.view.State {
	case types.InsightsStateFresh:
		if !c.expiredLocked(rec) {
			return rec.view
		}
		c.markStaleLocked(key, rec)
		stale := rec.view
		c.startFetchLocked(ctx, key, rec)
		return stale

	case types.InsightsStateStale:
		stale := rec.view
		c.startFetchLocked(ctx, key, rec)
		return stale

	default:
		return rec.view
	}
}

// Refresh issues a new fetch for identity regardless of the record state. Results of
// fetches issued before it are discarded when they arrive.
func (c *InsightsCache) Refresh(ctx context.Context, identity model.Identity) model.InsightsView {
	if !identity.Ready() {
		return idleView(identity)
	}
	key := identity.UserID

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[key]
	if !ok {
		rec = &insightsRecord{view: model.InsightsView{Key: key}}
		c.records[key] = rec
	}
	// a refresh never joins a provider call that is already running
	c.flight.Forget(key.String())
	c.startFetchLocked(ctx, key, rec)

	return rec.view
}

// Subscribe registers fn to receive every view change of identity's record, in
// order. fn runs on a dedicated goroutine and may call back into the cache. The
// returned function cancels the subscription.
func (c *InsightsCache) Subscribe(identity model.Identity, fn func(model.InsightsView)) func() {
	if !identity.Ready() {
		return func() {}
	}
	key := identity.UserID
	mb := async.NewMailbox(context.Background(), fn)

	c.mu.Lock()
	c.nextSubID++
	id := c.nextSubID
	if c.subscribers[key] == nil {
		c.subscribers[key] = make(map[uint64]*async.Mailbox[model.InsightsView])
	}
	c.subscribers[key][id] = mb
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers[key], id)
			if len(c.subscribers[key]) == 0 {
				delete(c.subscribers, key)
			}
			c.mu.Unlock()
			mb.Close()
		})
	}
}

// Await calls Get and blocks until the record settles (FRESH or ERRORED) or ctx is
// done. A fetch failure is reported through the view, not as an error.
func (c *InsightsCache) Await(ctx context.Context, identity model.Identity) (model.InsightsView, error) {
	if !identity.Ready() {
		return idleView(identity), goerr.Wrap(ErrNoIdentity, "cannot await insights",
			goerr.V("identity_status", identity.Status))
	}

	updates := make(chan model.InsightsView)
	done := make(chan struct{})
	unsubscribe := c.Subscribe(identity, func(v model.InsightsView) {
		select {
		case updates <- v:
		case <-done:
		}
	})
	defer unsubscribe()
	defer close(done)

	view := c.Get(ctx, identity)
	if view.State.IsSettled() {
		return view, nil
	}

	for {
		select {
		case v := <-updates:
			if v.Generation >= view.Generation && v.State.IsSettled() {
				return v, nil
			}
			if v.State == types.InsightsStateIdle {
				return v, goerr.New("insights record was evicted while waiting",
					goerr.V(UserIDKey, identity.UserID))
			}
		case <-ctx.Done():
			return view, goerr.Wrap(ctx.Err(), "interrupted while waiting for insights",
				goerr.V(UserIDKey, identity.UserID))
		}
	}
}

// Evict drops identity's record. Fetches still in flight for it are discarded.
func (c *InsightsCache) Evict(identity model.Identity) {
	if identity.UserID == "" {
		return
	}
	key := identity.UserID

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[key]; !ok {
		return
	}
	delete(c.records, key)
	c.publishLocked(key, model.InsightsView{Key: key, State: types.InsightsStateIdle})
}

// Sweep moves FRESH records past the freshness window to STALE. Records somebody is
// subscribed to are revalidated right away, the others on their next Get. It returns
// the number of records that became stale.
func (c *InsightsCache) Sweep(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, rec := range c.records {
		if rec.view.State != types.InsightsStateFresh || !c.expiredLocked(rec) {
			continue
		}
		c.markStaleLocked(key, rec)
		count++

		if len(c.subscribers[key]) > 0 {
			c.startFetchLocked(ctx, key, rec)
		}
	}

	if count > 0 {
		logging.From(ctx).Debug("insights records became stale", "count", count)
	}
	return count
}

// lastErrorOf returns the provider error of the last failed fetch for key, cleared by
// the next successful fetch.
func (c *InsightsCache) lastErrorOf(key types.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.records[key]; ok {
		return rec.lastError
	}
	return nil
}

func (c *InsightsCache) expiredLocked(rec *insightsRecord) bool {
	return !c.now().Before(rec.view.FetchedAt.Add(c.staleAfter))
}

func (c *InsightsCache) markStaleLocked(key types.UserID, rec *insightsRecord) {
	rec.view.State = types.InsightsStateStale
	c.publishLocked(key, rec.view)
}

// startFetchLocked moves rec to LOADING under a new generation and launches the fetch.
// The error of a previous failure is cleared; the value is kept.
func (c *InsightsCache) startFetchLocked(ctx context.Context, key types.UserID, rec *insightsRecord) {
	c.generation++
	gen := c.generation

	rec.view.State = types.InsightsStateLoading
	rec.view.Err = nil
	rec.view.Generation = gen
	c.publishLocked(key, rec.view)

	logging.From(ctx).Debug("fetching insights", UserIDKey, key, GenerationKey, gen)

	async.Dispatch(ctx, func(ctx context.Context) error {
		c.fetch(ctx, key, gen)
		return nil
	})
}

// fetch shares one provider call between all generations of key launched while it
// runs. Each generation then applies the shared result through the generation fence.
func (c *InsightsCache) fetch(ctx context.Context, key types.UserID, gen uint64) {
	v, err, shared := c.flight.Do(key.String(), func() (any, error) {
		return c.provider.FetchInsights(ctx, key)
	})
	if shared {
		logging.From(ctx).Debug("joined in-flight insights fetch", UserIDKey, key, GenerationKey, gen)
	}
	if err != nil {
		c.fail(ctx, key, gen, err)
		return
	}

	insights, _ := v.(*model.Insights)
	if insights == nil {
		c.fail(ctx, key, gen, goerr.New("insights provider returned no payload"))
		return
	}

	c.complete(ctx, key, gen, model.NewInsights(insights.Payload))
}

func (c *InsightsCache) complete(ctx context.Context, key types.UserID, gen uint64, insights *model.Insights) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[key]
	if !ok || rec.view.Generation != gen {
		logging.From(ctx).Debug("discarding superseded insights result", UserIDKey, key, GenerationKey, gen)
		return
	}

	rec.view = model.InsightsView{
		Key:        key,
		Value:      insights,
		State:      types.InsightsStateFresh,
		FetchedAt:  c.now(),
		Generation: gen,
	}
	rec.lastError = nil
	c.publishLocked(key, rec.view)
}

func (c *InsightsCache) fail(ctx context.Context, key types.UserID, gen uint64, cause error) {
	err := goerr.Wrap(cause, "failed to fetch insights",
		goerr.V(UserIDKey, key),
		goerr.V(GenerationKey, gen),
	)

	c.mu.Lock()
	rec, ok := c.records[key]
	if !ok || rec.view.Generation != gen {
		c.mu.Unlock()
		logging.From(ctx).Warn("superseded insights fetch failed", "error", err.Error())
		return
	}

	rec.view.State = types.InsightsStateErrored
	rec.view.Err = ErrFetchFailed
	rec.lastError = cause
	c.publishLocked(key, rec.view)
	c.mu.Unlock()

	_ = errutil.Handle(ctx, err, "insights fetch failed")
	sendNotice(ctx, c.notifier, model.NewNotice(types.NoticeKindInsightsFetchFailed, key,
		c.messages.For(types.NoticeKindInsightsFetchFailed)))
}

func (c *InsightsCache) publishLocked(key types.UserID, view model.InsightsView) {
	for _, mb := range c.subscribers[key] {
		mb.Post(view)
	}
}

func idleView(identity model.Identity) model.InsightsView {
	return model.InsightsView{
		Key:   identity.UserID,
		State: types.InsightsStateIdle,
	}
}
