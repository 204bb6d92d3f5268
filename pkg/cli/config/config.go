package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/musubi/pkg/service/worker"
	"github.com/secmon-lab/musubi/pkg/usecase"
)

// AppConfig represents the application configuration file
type AppConfig struct {
	Insights InsightsPolicy `toml:"insights"`
	Messages Messages       `toml:"messages"`
}

// InsightsPolicy is the cache policy. Durations use time.ParseDuration syntax.
type InsightsPolicy struct {
	StaleAfter    string `toml:"stale_after"`
	SweepInterval string `toml:"sweep_interval"`
}

// Messages overrides the user-visible notice texts
type Messages struct {
	InvitationAccepted      string `toml:"invitation_accepted"`
	InvitationDeclined      string `toml:"invitation_declined"`
	InvitationPersistFailed string `toml:"invitation_persist_failed"`
	InsightsFetchFailed     string `toml:"insights_fetch_failed"`
}

func parsePositiveDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidDuration, "failed to parse duration",
			goerr.V(FieldKey, field), goerr.V(ValueKey, value))
	}
	if d <= 0 {
		return 0, goerr.Wrap(ErrInvalidDuration, "duration must be positive",
			goerr.V(FieldKey, field), goerr.V(ValueKey, value))
	}
	return d, nil
}

// StaleAfter returns the freshness window of cached insights
func (a *AppConfig) StaleAfter() (time.Duration, error) {
	return parsePositiveDuration("insights.stale_after", a.Insights.StaleAfter, usecase.DefaultInsightsStaleAfter)
}

// SweepInterval returns the period of the staleness sweep
func (a *AppConfig) SweepInterval() (time.Duration, error) {
	return parsePositiveDuration("insights.sweep_interval", a.Insights.SweepInterval, worker.DefaultSweepInterval)
}

// NoticeMessages returns the configured messages. Unset entries fall back to the
// built-in texts.
func (a *AppConfig) NoticeMessages() usecase.NoticeMessages {
	return usecase.NoticeMessages{
		InvitationAccepted:      a.Messages.InvitationAccepted,
		InvitationDeclined:      a.Messages.InvitationDeclined,
		InvitationPersistFailed: a.Messages.InvitationPersistFailed,
		InsightsFetchFailed:     a.Messages.InsightsFetchFailed,
	}
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if _, err := a.StaleAfter(); err != nil {
		return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid insights policy")
	}
	if _, err := a.SweepInterval(); err != nil {
		return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid insights policy")
	}
	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file. An empty
// path yields the defaults.
func LoadAppConfiguration(path string) (*AppConfig, error) {
	if path == "" {
		return &AppConfig{}, nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "failed to parse TOML config", goerr.V(ConfigPathKey, path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}
