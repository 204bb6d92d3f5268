package cli

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/cli/config"
	httpctrl "github.com/secmon-lab/musubi/pkg/controller/http"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/service/worker"
	"github.com/secmon-lab/musubi/pkg/usecase"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var configPath string
	var noAuthUID string
	var repoCfg config.Repository
	var providerCfg config.Provider
	var slackCfg config.Slack

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MUSUBI_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file (cache policy and notice messages)",
			Sources:     cli.EnvVars("MUSUBI_CONFIG"),
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip the identity header and run every request as the specified user ID (development only). Example: --no-auth=user-1",
			Category:    "Authentication",
			Sources:     cli.EnvVars("MUSUBI_NO_AUTH"),
			Destination: &noAuthUID,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, providerCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			appCfg, err := config.LoadAppConfiguration(configPath)
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}
			staleAfter, err := appCfg.StaleAfter()
			if err != nil {
				return err
			}
			sweepInterval, err := appCfg.SweepInterval()
			if err != nil {
				return err
			}

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			provider, closeProvider, err := providerCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize insights provider")
			}
			defer closeProvider()

			notifier, err := slackCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure notifier")
			}

			ucOpts := []usecase.Option{
				usecase.WithNotifier(notifier),
				usecase.WithNoticeMessages(appCfg.NoticeMessages()),
				usecase.WithInsightsCacheOptions(usecase.WithStaleAfter(staleAfter)),
			}
			if provider != nil {
				ucOpts = append(ucOpts, usecase.WithInsightsProvider(provider))
			}
			uc := usecase.New(repo, ucOpts...)

			httpOpts := []httpctrl.Options{
				httpctrl.WithInvitation(uc.Invitation),
			}

			var sweeper *worker.StalenessSweepWorker
			if uc.Insights != nil {
				httpOpts = append(httpOpts, httpctrl.WithInsights(uc.Insights))

				sweeper = worker.NewStalenessSweepWorker(uc.Insights, sweepInterval)
				if err := sweeper.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start staleness sweep worker")
				}
				defer sweeper.Stop()
			}

			if noAuthUID != "" {
				userID := types.UserID(noAuthUID)
				if err := userID.Validate(); err != nil {
					return goerr.Wrap(err, "invalid --no-auth user ID")
				}
				httpOpts = append(httpOpts, httpctrl.WithNoAuthUser(userID))
				logging.Default().Warn("Running in no-auth mode (development only)", "user_id", noAuthUID)
			}

			// Event streams end when the base context is canceled on shutdown
			baseCtx, cancelBase := context.WithCancel(ctx)
			defer cancelBase()

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return baseCtx },
			}
			server.RegisterOnShutdown(cancelBase)

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server",
					"addr", addr,
					"repository", repoCfg,
					"insights", providerCfg,
					"slack", slackCfg,
					"stale_after", staleAfter,
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop the sweep before draining open streams
				if sweeper != nil {
					sweeper.Stop()
				}

				// Create shutdown context with timeout
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				// Attempt graceful shutdown
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
