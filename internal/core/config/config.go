// Package config handles configuration loading and validation for hwbot.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hay-kot/hwbot/internal/core/homework"
	"github.com/hay-kot/hwbot/internal/core/styles"
)

// Defaults for the status API and messaging endpoints.
const (
	DefaultStatusEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultTelegramURL    = "https://api.telegram.org"
	DefaultInterval       = 10 * time.Minute
	DefaultTimeout        = 10 * time.Second
)

// Special values for PollConfig.StartFrom.
const (
	StartFromNow   = "now"
	StartFromEpoch = "epoch"
)

// defaultStatusMessages provides the built-in per-status templates that users
// can override.
var defaultStatusMessages = map[homework.Status]string{
	homework.StatusReviewing: `Status of "{{ .Name }}" changed. The work was taken for review.`,
	homework.StatusApproved:  `Status of "{{ .Name }}" changed. Reviewed: the reviewer liked everything. Hooray!`,
	homework.StatusRejected:  `Status of "{{ .Name }}" changed. Reviewed: the reviewer has comments.`,
}

const defaultFailureMessage = `Bot failure: {{ .Error }}`

// Config holds the application configuration.
type Config struct {
	Poll      PollConfig      `yaml:"poll"`
	StatusAPI StatusAPIConfig `yaml:"status_api"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Messages  MessagesConfig  `yaml:"messages"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	UI        UIConfig        `yaml:"ui"`
	Secrets   Secrets         `yaml:"-"` // loaded from the environment, never from the file
}

// PollConfig holds polling loop settings.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
	// StartFrom is the initial lower-bound timestamp: "now", "epoch", or a
	// duration to look back from the current time (e.g. "720h").
	StartFrom string `yaml:"start_from"`
	// DedupeFailures suppresses a failure notification whose text equals
	// the previous one. Nil means enabled.
	DedupeFailures *bool `yaml:"dedupe_failures"`
}

// StatusAPIConfig holds settings for the homework status API.
type StatusAPIConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// TelegramConfig holds settings for the Telegram Bot API.
type TelegramConfig struct {
	APIURL  string        `yaml:"api_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// MessagesConfig holds chat message templates.
type MessagesConfig struct {
	// Statuses maps a homework status to its message template. The
	// template receives Name, Status, Comment and UpdatedAt.
	Statuses map[string]string `yaml:"statuses"`
	// Failure is the template used for cycle failures. It receives Error.
	Failure string `yaml:"failure"`
}

// MetricsConfig holds settings for the metrics/debug HTTP server.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// UIConfig holds terminal output settings.
type UIConfig struct {
	Theme string `yaml:"theme"` // built-in palette used by doctor output
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	statuses := make(map[string]string, len(defaultStatusMessages))
	for status, msg := range defaultStatusMessages {
		statuses[string(status)] = msg
	}

	return Config{
		Poll: PollConfig{
			Interval:  DefaultInterval,
			StartFrom: StartFromNow,
		},
		StatusAPI: StatusAPIConfig{
			Endpoint: DefaultStatusEndpoint,
			Timeout:  DefaultTimeout,
		},
		Telegram: TelegramConfig{
			APIURL:  DefaultTelegramURL,
			Timeout: DefaultTimeout,
		},
		Messages: MessagesConfig{
			Statuses: statuses,
			Failure:  defaultFailureMessage,
		},
		UI: UIConfig{
			Theme: styles.DefaultTheme,
		},
	}
}

// Load reads configuration from the given path. If configPath is empty or
// doesn't exist, defaults are used. Secrets are not loaded here; see
// LoadSecrets. All failures are returned as *ConfigurationError.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	userMessages := map[string]string{}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, &ConfigurationError{Err: fmt.Errorf("read config file: %w", err)}
			}

			// Decode templates separately so user entries are merged over
			// the defaults instead of replacing the whole map.
			cfg.Messages.Statuses = userMessages
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, &ConfigurationError{Err: fmt.Errorf("parse config file: %w", err)}
			}
			userMessages = cfg.Messages.Statuses
		}
	}

	cfg.Messages.Statuses = mergeMessages(DefaultConfig().Messages.Statuses, userMessages)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("invalid config: %w", err)}
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Poll.Interval == 0 {
		c.Poll.Interval = defaults.Poll.Interval
	}
	if strings.TrimSpace(c.Poll.StartFrom) == "" {
		c.Poll.StartFrom = defaults.Poll.StartFrom
	}
	if c.StatusAPI.Endpoint == "" {
		c.StatusAPI.Endpoint = defaults.StatusAPI.Endpoint
	}
	if c.StatusAPI.Timeout == 0 {
		c.StatusAPI.Timeout = defaults.StatusAPI.Timeout
	}
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = defaults.Telegram.APIURL
	}
	if c.Telegram.Timeout == 0 {
		c.Telegram.Timeout = defaults.Telegram.Timeout
	}
	if c.Messages.Failure == "" {
		c.Messages.Failure = defaults.Messages.Failure
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// mergeMessages merges user templates into defaults.
// User templates override defaults for the same status.
func mergeMessages(defaults, user map[string]string) map[string]string {
	result := make(map[string]string, len(defaults)+len(user))
	for k, v := range defaults {
		result[k] = v
	}
	for k, v := range user {
		result[k] = v
	}
	return result
}

// DedupeFailuresEnabled reports whether repeated identical failure notifications
// are suppressed.
func (p PollConfig) DedupeFailuresEnabled() bool {
	return p.DedupeFailures == nil || *p.DedupeFailures
}

// StartTime resolves StartFrom against now.
func (p PollConfig) StartTime(now time.Time) (time.Time, error) {
	switch v := strings.ToLower(strings.TrimSpace(p.StartFrom)); v {
	case "", StartFromNow:
		return now, nil
	case StartFromEpoch:
		return time.Unix(0, 0), nil
	default:
		d, err := time.ParseDuration(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("start_from must be %q, %q or a duration: %w", StartFromNow, StartFromEpoch, err)
		}
		if d < 0 {
			return time.Time{}, fmt.Errorf("start_from duration must not be negative")
		}
		return now.Add(-d), nil
	}
}
