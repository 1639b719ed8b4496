package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/hwbot/internal/core/config"
)

// ConfigCheck reports on the config file and the result of loading it.
type ConfigCheck struct {
	path string
	cfg  *config.Config
	err  error
}

// NewConfigCheck creates a config check. cfg is nil when loading failed with
// err.
func NewConfigCheck(path string, cfg *config.Config, err error) *ConfigCheck {
	return &ConfigCheck{path: path, cfg: cfg, err: err}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}
	result.Items = append(result.Items, c.fileItem())

	if c.err != nil {
		var fieldErrs criterio.FieldErrors
		if errors.As(c.err, &fieldErrs) {
			for _, fe := range fieldErrs {
				result.Items = append(result.Items, CheckItem{
					Label:  fe.Field,
					Status: StatusFail,
					Detail: fe.Err.Error(),
				})
			}
			return result
		}

		result.Items = append(result.Items, CheckItem{
			Label:  "Load",
			Status: StatusFail,
			Detail: c.err.Error(),
		})
		return result
	}

	if c.cfg == nil {
		return result
	}

	result.Items = append(result.Items,
		CheckItem{
			Label:  "Poll interval",
			Status: StatusPass,
			Detail: c.cfg.Poll.Interval.String(),
		},
		CheckItem{
			Label:  "Start from",
			Status: StatusPass,
			Detail: c.cfg.Poll.StartFrom,
		},
		CheckItem{
			Label:  "Message templates",
			Status: StatusPass,
			Detail: fmt.Sprintf("%d statuses", len(c.cfg.Messages.Statuses)),
		},
	)

	metrics := CheckItem{Label: "Metrics server", Status: StatusPass, Detail: "disabled"}
	if c.cfg.Metrics.Addr != "" {
		metrics.Detail = c.cfg.Metrics.Addr
	}
	result.Items = append(result.Items, metrics)

	return result
}

func (c *ConfigCheck) fileItem() CheckItem {
	item := CheckItem{Label: "Config file", Status: StatusPass}

	switch _, err := os.Stat(c.path); {
	case c.path == "":
		item.Detail = "not set, using defaults"
	case errors.Is(err, os.ErrNotExist):
		item.Detail = c.path + " not found, using defaults"
	case err != nil:
		item.Status = StatusFail
		item.Detail = err.Error()
	default:
		item.Detail = c.path
	}

	return item
}
