package config_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/musubi/pkg/cli/config"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
)

func TestRepository_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest("memory", "").Configure(ctx)
		gt.NoError(t, err).Required()
		defer func() { _ = repo.Close() }()

		list, err := repo.Invitation().ListResponses(ctx, "u1")
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(0)
	})

	t.Run("firestore without project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("firestore", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrMissingOption)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("mysql", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrUnknownBackend)
	})
}

func TestProvider_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		p, closer, err := config.NewProviderForTest("none", "", 0).Configure(ctx)
		gt.NoError(t, err).Required()
		defer closer()
		gt.Bool(t, p == nil).True()
	})

	t.Run("http", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gt.String(t, r.URL.Path).Equal("/v1/users/u1/insights")
			_, _ = w.Write([]byte(`{"score":7}`))
		}))
		defer srv.Close()

		p, closer, err := config.NewProviderForTest("http", srv.URL+"/v1", time.Second).Configure(ctx)
		gt.NoError(t, err).Required()
		defer closer()

		got, err := p.FetchInsights(ctx, "u1")
		gt.NoError(t, err).Required()
		gt.String(t, string(got.Payload)).Equal(`{"score":7}`)
	})

	t.Run("http without url", func(t *testing.T) {
		_, _, err := config.NewProviderForTest("http", "", time.Second).Configure(ctx)
		gt.Error(t, err).Is(config.ErrMissingOption)
	})

	t.Run("firestore without project", func(t *testing.T) {
		_, _, err := config.NewProviderForTest("firestore", "", 0).Configure(ctx)
		gt.Error(t, err).Is(config.ErrMissingOption)
	})

	t.Run("gcs without bucket", func(t *testing.T) {
		_, _, err := config.NewProviderForTest("gcs", "", 0).Configure(ctx)
		gt.Error(t, err).Is(config.ErrMissingOption)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, _, err := config.NewProviderForTest("bigquery", "", 0).Configure(ctx)
		gt.Error(t, err).Is(config.ErrUnknownBackend)
	})
}

func TestSlack_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("log only", func(t *testing.T) {
		n, err := config.NewSlackForTest("", "", "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, n.Notify(ctx, model.NewNotice(types.NoticeKindInvitationAccepted, "u1", "ok")))
	})

	t.Run("token without channel", func(t *testing.T) {
		_, err := config.NewSlackForTest("xoxb-test", "", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrMissingOption)
	})

	t.Run("posts to slack", func(t *testing.T) {
		var posted atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			posted.Add(1)
			gt.NoError(t, r.ParseForm())
			gt.String(t, r.PostForm.Get("channel")).Equal("C123")
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C123", "ts": "1.0"})
		}))
		defer srv.Close()

		n, err := config.NewSlackForTest("xoxb-test", "C123", srv.URL+"/").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, n.Notify(ctx, model.NewNotice(types.NoticeKindInvitationDeclined, "u1", "declined"))).Required()
		gt.Number(t, posted.Load()).Equal(1)
	})
}

func TestLogger_Configure(t *testing.T) {
	original := logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "musubi.log")
		closer, err := config.NewLoggerForTest("debug", "json", path).Configure()
		gt.NoError(t, err).Required()

		type credential struct {
			Name  string
			Value string `masq:"secret"`
		}
		logging.Default().Debug("hello", "credential", credential{Name: "analytics", Value: "should-not-appear"})
		closer()

		data, err := os.ReadFile(path)
		gt.NoError(t, err).Required()
		gt.String(t, string(data)).Contains(`"msg":"hello"`)
		gt.String(t, string(data)).Contains("analytics")
		gt.String(t, string(data)).NotContains("should-not-appear")
	})

	t.Run("console to stderr", func(t *testing.T) {
		closer, err := config.NewLoggerForTest("warn", "console", "stderr").Configure()
		gt.NoError(t, err).Required()
		defer closer()
		gt.Bool(t, logging.Default().Enabled(context.Background(), slog.LevelInfo)).False()
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("verbose", "json", "stderr").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stderr").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}
