package usecase_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
)

const testTimeout = 5 * time.Second

type fetchResult struct {
	insights *model.Insights
	err      error
}

// pendingFetch is one provider call held open until the test resolves it
type pendingFetch struct {
	userID types.UserID
	result chan fetchResult
}

func (p *pendingFetch) resolve(payload string) {
	p.result <- fetchResult{insights: model.NewInsights([]byte(payload))}
}

func (p *pendingFetch) reject(err error) {
	p.result <- fetchResult{err: err}
}

// gatedProvider records every FetchInsights call and blocks it until resolved
type gatedProvider struct {
	mu     sync.Mutex
	calls  map[types.UserID]int
	issued chan *pendingFetch
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{
		calls:  make(map[types.UserID]int),
		issued: make(chan *pendingFetch, 64),
	}
}

func (p *gatedProvider) FetchInsights(ctx context.Context, userID types.UserID) (*model.Insights, error) {
	pf := &pendingFetch{userID: userID, result: make(chan fetchResult, 1)}

	p.mu.Lock()
	p.calls[userID]++
	p.mu.Unlock()

	p.issued <- pf
	r := <-pf.result
	return r.insights, r.err
}

func (p *gatedProvider) callCount(userID types.UserID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[userID]
}

func (p *gatedProvider) next(t *testing.T) *pendingFetch {
	t.Helper()
	select {
	case pf := <-p.issued:
		return pf
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for provider call")
		return nil
	}
}

func (p *gatedProvider) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case pf := <-p.issued:
		t.Fatalf("unexpected provider call for %s", pf.userID)
	case <-time.After(50 * time.Millisecond):
	}
}

// recordingNotifier collects notices
type recordingNotifier struct {
	notices chan *model.Notice
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{notices: make(chan *model.Notice, 64)}
}

func (n *recordingNotifier) Notify(ctx context.Context, notice *model.Notice) error {
	n.notices <- notice
	return nil
}

func (n *recordingNotifier) next(t *testing.T) *model.Notice {
	t.Helper()
	select {
	case notice := <-n.notices:
		return notice
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for notice")
		return nil
	}
}

func (n *recordingNotifier) expectNone(t *testing.T) {
	t.Helper()
	select {
	case notice := <-n.notices:
		t.Fatalf("unexpected notice: %s", notice.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// syncBuffer is a goroutine safe log sink
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), s)
}

// debugContext returns a context whose logger writes debug logs into the buffer
func debugContext(t *testing.T) (context.Context, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logging.With(context.Background(), logger), buf
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func awaitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}
