package cli_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/musubi/pkg/cli"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
)

func TestPrintInsightsView(t *testing.T) {
	color.NoColor = true

	t.Run("fresh payload", func(t *testing.T) {
		var buf bytes.Buffer
		view := model.InsightsView{
			Key:       "u1",
			Value:     model.NewInsights([]byte(`{"score":42}`)),
			State:     types.InsightsStateFresh,
			FetchedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		}
		gt.NoError(t, cli.PrintInsightsView(&buf, view)).Required()

		out := buf.String()
		gt.String(t, out).Contains("u1")
		gt.String(t, out).Contains(types.InsightsStateFresh.String())
		gt.String(t, out).Contains("2026-10-17T09:00:00Z")
		gt.String(t, out).Contains(`"score": 42`)
	})

	t.Run("errored without value", func(t *testing.T) {
		var buf bytes.Buffer
		view := model.InsightsView{
			Key:   "u2",
			State: types.InsightsStateErrored,
			Err:   errors.New("provider unavailable"),
		}
		gt.NoError(t, cli.PrintInsightsView(&buf, view)).Required()
		gt.String(t, buf.String()).Contains("provider unavailable")
		gt.String(t, buf.String()).NotContains("fetched")
	})
}

func TestRun_Insights(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/u1/insights":
			_, _ = w.Write([]byte(`{"score":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	t.Run("success", func(t *testing.T) {
		err := cli.Run(context.Background(), []string{
			"musubi", "--log-output", "stderr",
			"insights", "--user", "u1",
			"--insights-provider", "http", "--insights-url", srv.URL,
		}, "test")
		gt.NoError(t, err)
	})

	t.Run("fetch failure", func(t *testing.T) {
		err := cli.Run(context.Background(), []string{
			"musubi", "--log-output", "stderr",
			"insights", "--user", "missing",
			"--insights-provider", "http", "--insights-url", srv.URL,
		}, "test")
		gt.Error(t, err)
	})

	t.Run("provider required", func(t *testing.T) {
		err := cli.Run(context.Background(), []string{
			"musubi", "--log-output", "stderr",
			"insights", "--user", "u1",
		}, "test")
		gt.Error(t, err)
	})
}
