// Package hwbot wires the bot's components from a loaded configuration.
package hwbot

import (
	"fmt"
	"time"

	"github.com/hay-kot/hwbot/internal/core/config"
	"github.com/hay-kot/hwbot/internal/poller"
	"github.com/hay-kot/hwbot/internal/practicum"
	"github.com/hay-kot/hwbot/internal/telegram"
)

// App is the central entry point for bot operations. Commands consume App
// instead of cherry-picking raw dependencies.
type App struct {
	Config   *config.Config
	Client   *practicum.Client
	Bot      *telegram.Bot
	Renderer *poller.MessageRenderer

	// Doctor is set even when loading the configuration failed.
	Doctor *DoctorService
}

// NewApp builds the status client, the Telegram bot and the message renderer
// from cfg. cfg must be validated and carry its secrets.
func NewApp(cfg *config.Config) (*App, error) {
	renderer, err := poller.NewRenderer(cfg.Messages)
	if err != nil {
		return nil, &config.ConfigurationError{Err: fmt.Errorf("message templates: %w", err)}
	}

	return &App{
		Config: cfg,
		Client: practicum.New(practicum.Options{
			Endpoint: cfg.StatusAPI.Endpoint,
			Token:    cfg.Secrets.PracticumToken,
			Timeout:  cfg.StatusAPI.Timeout,
		}),
		Bot: telegram.New(telegram.Options{
			APIURL:  cfg.Telegram.APIURL,
			Token:   cfg.Secrets.TelegramToken,
			ChatID:  cfg.Secrets.TelegramChatID,
			Timeout: cfg.Telegram.Timeout,
		}),
		Renderer: renderer,
	}, nil
}

// NewPoller creates the polling loop with its start time resolved against
// now.
func (a *App) NewPoller(now time.Time) (*poller.Poller, error) {
	start, err := a.Config.Poll.StartTime(now)
	if err != nil {
		return nil, &config.ConfigurationError{Err: fmt.Errorf("poll.start_from: %w", err)}
	}

	return poller.New(a.Client, a.Bot, a.Renderer, poller.Options{
		Interval:       a.Config.Poll.Interval,
		Start:          start,
		DedupeFailures: a.Config.Poll.DedupeFailuresEnabled(),
	}), nil
}
