package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/cli/config"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdInsights() *cli.Command {
	var userID string
	var timeout time.Duration
	var providerCfg config.Provider

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID to fetch insights for",
			Required:    true,
			Destination: &userID,
		},
		&cli.DurationFlag{
			Name:        "wait",
			Usage:       "Maximum time to wait for the provider",
			Value:       30 * time.Second,
			Destination: &timeout,
		},
	}
	flags = append(flags, providerCfg.Flags()...)

	return &cli.Command{
		Name:    "insights",
		Aliases: []string{"i"},
		Usage:   "Fetch insights for a user once and print them",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			provider, closer, err := providerCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize insights provider")
			}
			defer closer()
			if provider == nil {
				return goerr.Wrap(config.ErrMissingOption, "--insights-provider is required")
			}

			cache := usecase.NewInsightsCache(provider)

			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			view, err := cache.Await(ctx, model.PresentIdentity(types.UserID(userID)))
			if err != nil {
				return goerr.Wrap(err, "failed to fetch insights", goerr.V("user_id", userID))
			}

			if err := printInsightsView(c.Root().Writer, view); err != nil {
				return err
			}
			if view.State == types.InsightsStateErrored {
				return goerr.New("insights fetch failed", goerr.V("user_id", userID))
			}
			return nil
		},
	}
}

var stateColors = map[types.InsightsState]*color.Color{
	types.InsightsStateFresh:   color.New(color.FgGreen, color.Bold),
	types.InsightsStateStale:   color.New(color.FgYellow, color.Bold),
	types.InsightsStateLoading: color.New(color.FgCyan, color.Bold),
	types.InsightsStateErrored: color.New(color.FgRed, color.Bold),
	types.InsightsStateIdle:    color.New(color.Faint),
}

func printInsightsView(w io.Writer, view model.InsightsView) error {
	label := color.New(color.FgHiBlack)

	stateColor, ok := stateColors[view.State]
	if !ok {
		stateColor = color.New(color.Reset)
	}

	_, _ = label.Fprint(w, "user:    ")
	_, _ = fmt.Fprintln(w, view.Key)
	_, _ = label.Fprint(w, "state:   ")
	_, _ = stateColor.Fprintln(w, view.State)
	if !view.FetchedAt.IsZero() {
		_, _ = label.Fprint(w, "fetched: ")
		_, _ = fmt.Fprintln(w, view.FetchedAt.Format(time.RFC3339))
	}
	if view.Err != nil {
		_, _ = label.Fprint(w, "error:   ")
		_, _ = color.New(color.FgRed).Fprintln(w, view.Err.Error())
	}

	if !view.HasValue() {
		return nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, view.Value.Payload, "", "  "); err != nil {
		return goerr.Wrap(err, "failed to format insights payload")
	}
	_, _ = fmt.Fprintln(w, out.String())
	return nil
}
