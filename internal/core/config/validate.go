package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/hwbot/internal/core/homework"
	"github.com/hay-kot/hwbot/internal/core/styles"
	"github.com/hay-kot/hwbot/pkg/tmpl"
)

// StatusTemplateData defines available fields for status message templates.
type StatusTemplateData struct {
	Name      string    // Submission name
	Status    string    // Review status
	Comment   string    // Reviewer comment, may be empty
	UpdatedAt time.Time // Last update reported by the API
}

// FailureTemplateData defines available fields for the failure message template.
type FailureTemplateData struct {
	Error string // Failure description
}

// Validate checks that the configuration is valid. Errors are returned as
// criterio.FieldErrors.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		c.validatePoll(),
		criterio.Run("status_api.endpoint", c.StatusAPI.Endpoint, httpURL),
		criterio.Run("telegram.api_url", c.Telegram.APIURL, httpURL),
		c.validateTimeouts(),
		c.validateMessages(),
		criterio.Run("metrics.addr", c.Metrics.Addr, listenAddr),
		criterio.Run("ui.theme", c.UI.Theme, themeName),
	)
}

func (c *Config) validatePoll() error {
	var errs criterio.FieldErrorsBuilder
	if c.Poll.Interval <= 0 {
		errs = errs.Append("poll.interval", fmt.Errorf("must be positive, got %s", c.Poll.Interval))
	}
	if _, err := c.Poll.StartTime(time.Now()); err != nil {
		errs = errs.Append("poll.start_from", err)
	}
	return errs.ToError()
}

func (c *Config) validateTimeouts() error {
	var errs criterio.FieldErrorsBuilder
	if c.StatusAPI.Timeout <= 0 {
		errs = errs.Append("status_api.timeout", fmt.Errorf("must be positive, got %s", c.StatusAPI.Timeout))
	}
	if c.Telegram.Timeout <= 0 {
		errs = errs.Append("telegram.timeout", fmt.Errorf("must be positive, got %s", c.Telegram.Timeout))
	}
	return errs.ToError()
}

// validateMessages checks that every template belongs to a known status and
// renders with sample data.
func (c *Config) validateMessages() error {
	var errs criterio.FieldErrorsBuilder

	for status, text := range c.Messages.Statuses {
		field := fmt.Sprintf("messages.statuses[%q]", status)
		if _, err := homework.ParseStatus(status); err != nil {
			errs = errs.Append(field, err)
			continue
		}
		sample := StatusTemplateData{Name: "homework", Status: status, Comment: "comment", UpdatedAt: time.Now()}
		if err := validateTemplate(text, sample); err != nil {
			errs = errs.Append(field, fmt.Errorf("template error: %w", err))
		}
	}

	for _, status := range homework.Statuses() {
		if _, ok := c.Messages.Statuses[string(status)]; !ok {
			errs = errs.Append(fmt.Sprintf("messages.statuses[%q]", status), fmt.Errorf("template is required"))
		}
	}

	if err := validateTemplate(c.Messages.Failure, FailureTemplateData{Error: "error"}); err != nil {
		errs = errs.Append("messages.failure", fmt.Errorf("template error: %w", err))
	}

	return errs.ToError()
}

func validateTemplate(text string, data any) error {
	if text == "" {
		return fmt.Errorf("template is empty")
	}
	_, err := tmpl.Render(text, data)
	return err
}

// httpURL validates an absolute http(s) URL.
func httpURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

// themeName validates that name is a built-in theme.
func themeName(name string) error {
	if _, ok := styles.GetPalette(name); !ok {
		return fmt.Errorf("unknown theme %q, available: %s", name, strings.Join(styles.ThemeNames(), ", "))
	}
	return nil
}

// listenAddr validates a host:port listen address. Empty is allowed.
func listenAddr(addr string) error {
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}
	return nil
}
