package hwbot

import (
	"context"
	"errors"

	"github.com/hay-kot/hwbot/internal/core/config"
	"github.com/hay-kot/hwbot/internal/core/doctor"
)

// DoctorService runs health checks on the bot setup. It works with a partial
// setup so it can report why loading failed.
type DoctorService struct {
	configPath string
	cfg        *config.Config
	loadErr    error
	environ    map[string]string
	app        *App
}

// NewDoctorService creates a DoctorService. cfg and app are nil when loading
// failed with loadErr.
func NewDoctorService(configPath string, cfg *config.Config, loadErr error, environ map[string]string, app *App) *DoctorService {
	return &DoctorService{
		configPath: configPath,
		cfg:        cfg,
		loadErr:    loadErr,
		environ:    environ,
		app:        app,
	}
}

// RunChecks executes all doctor checks and returns results.
func (d *DoctorService) RunChecks(ctx context.Context) []doctor.Result {
	statusCheck := doctor.NewStatusAPICheck(nil)
	telegramCheck := doctor.NewTelegramCheck(nil)
	if d.app != nil {
		statusCheck = doctor.NewStatusAPICheck(d.app.Client)
		telegramCheck = doctor.NewTelegramCheck(d.app.Bot)
	}

	checks := []doctor.Check{
		doctor.NewConfigCheck(d.configPath, d.cfg, d.configErr()),
		doctor.NewSecretsCheck(d.environ),
		statusCheck,
		telegramCheck,
	}
	return doctor.RunAll(ctx, checks)
}

// configErr drops missing-secret errors, which the secrets check reports.
func (d *DoctorService) configErr() error {
	var ce *config.ConfigurationError
	if errors.As(d.loadErr, &ce) && len(ce.Missing) > 0 {
		return nil
	}
	return d.loadErr
}
