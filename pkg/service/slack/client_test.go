package slack_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/service/slack"
)

func TestNew(t *testing.T) {
	t.Run("returns error when token is empty", func(t *testing.T) {
		_, err := slack.New("", "C123")
		gt.Value(t, err).NotNil()
	})

	t.Run("returns error when channel is empty", func(t *testing.T) {
		_, err := slack.New("test-token", "")
		gt.Value(t, err).NotNil()
	})

	t.Run("creates notifier when token and channel are provided", func(t *testing.T) {
		n, err := slack.New("test-token", "C123")
		gt.NoError(t, err).Required()
		gt.Value(t, n).NotNil()
	})
}

type postedMessage struct {
	channel string
	text    string
	blocks  string
}

func newFakeSlack(t *testing.T, ok bool) (*httptest.Server, func() []postedMessage) {
	t.Helper()

	var mu sync.Mutex
	var posted []postedMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat.postMessage") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		mu.Lock()
		posted = append(posted, postedMessage{
			channel: r.PostForm.Get("channel"),
			text:    r.PostForm.Get("text"),
			blocks:  r.PostForm.Get("blocks"),
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if ok {
			_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
		} else {
			_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
		}
	}))
	t.Cleanup(srv.Close)

	return srv, func() []postedMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]postedMessage(nil), posted...)
	}
}

func TestNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("posts notice to channel", func(t *testing.T) {
		srv, posted := newFakeSlack(t, true)
		n, err := slack.New("test-token", "C123", slack.WithAPIURL(srv.URL+"/"))
		gt.NoError(t, err).Required()

		notice := model.NewNotice(types.NoticeKindInvitationAccepted, "u1", "Invitation accepted")
		notice.InvitationID = "inv-1"
		gt.NoError(t, n.Notify(ctx, notice)).Required()

		msgs := posted()
		gt.Array(t, msgs).Length(1).Required()
		gt.String(t, msgs[0].channel).Equal("C123")
		gt.String(t, msgs[0].text).Equal("Invitation accepted")
		gt.String(t, msgs[0].blocks).Contains("inv-1")
		gt.String(t, msgs[0].blocks).Contains(":white_check_mark:")
	})

	t.Run("returns API error", func(t *testing.T) {
		srv, _ := newFakeSlack(t, false)
		n, err := slack.New("test-token", "C123", slack.WithAPIURL(srv.URL+"/"))
		gt.NoError(t, err).Required()

		notice := model.NewNotice(types.NoticeKindInsightsFetchFailed, "u1", "Could not load insights")
		gt.Error(t, n.Notify(ctx, notice))
	})

	t.Run("rejects nil notice", func(t *testing.T) {
		n, err := slack.New("test-token", "C123")
		gt.NoError(t, err).Required()
		gt.Error(t, n.Notify(ctx, nil))
	})
}

func TestBuildBlocks(t *testing.T) {
	t.Run("failure notice uses warning", func(t *testing.T) {
		notice := model.NewNotice(types.NoticeKindInvitationPersistFailed, "u1", "Saving failed")
		blocks := slack.BuildBlocks(notice)
		gt.Array(t, blocks).Length(2)
	})
}

func TestTruncateToMaxBytes(t *testing.T) {
	t.Run("short string is unchanged", func(t *testing.T) {
		gt.String(t, slack.TruncateToMaxBytes("hello", 10)).Equal("hello")
	})

	t.Run("ASCII is cut at limit", func(t *testing.T) {
		gt.String(t, slack.TruncateToMaxBytes("hello world", 5)).Equal("hello")
	})

	t.Run("multi byte rune is not split", func(t *testing.T) {
		// each rune is 3 bytes
		got := slack.TruncateToMaxBytes("あいう", 7)
		gt.String(t, got).Equal("あい")
	})

	t.Run("long message fits section limit", func(t *testing.T) {
		long := strings.Repeat("x", slack.MaxSectionTextBytes+100)
		gt.Number(t, len(slack.TruncateToMaxBytes(long, slack.MaxSectionTextBytes))).Equal(slack.MaxSectionTextBytes)
	})
}

func TestIntegration(t *testing.T) {
	token := os.Getenv("TEST_SLACK_BOT_TOKEN")
	if token == "" {
		t.Skip("TEST_SLACK_BOT_TOKEN is not set")
	}
	channelID := os.Getenv("TEST_SLACK_CHANNEL_ID")
	if channelID == "" {
		t.Skip("TEST_SLACK_CHANNEL_ID is not set")
	}

	n, err := slack.New(token, channelID)
	gt.NoError(t, err).Required()

	notice := model.NewNotice(types.NoticeKindInvitationAccepted, "integration-test", "musubi integration test")
	gt.NoError(t, n.Notify(context.Background(), notice)).Required()
}
