// Package doctor checks that the bot can start: the config file parses,
// the required secrets are present, and both the status API and the
// Telegram Bot API accept the configured credentials.
package doctor

import (
	"context"

	"github.com/hay-kot/hwbot/internal/core/logging"
)

// Status is the outcome of a single check item.
type Status string

const (
	StatusPass Status = "pass"
	// StatusWarn is used for items that do not stop the bot, including
	// service checks skipped because the configuration is incomplete.
	StatusWarn Status = "warn"
	// StatusFail means `hwbot run` would exit or fail every cycle.
	StatusFail Status = "fail"
)

// CheckItem is one line of a check, such as a single secret or a config key.
type CheckItem struct {
	Label  string `json:"label"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Result groups the items reported by one check.
type Result struct {
	Name  string      `json:"name"`
	Items []CheckItem `json:"items"`
}

// Check inspects one part of the bot setup. Run reports problems as items
// and never returns an error.
type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// RunAll runs checks in order. Once ctx is done the remaining checks are
// reported as failed without being run.
func RunAll(ctx context.Context, checks []Check) []Result {
	log := logging.Component("doctor")

	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{
				Name:  check.Name(),
				Items: []CheckItem{{Label: "Not run", Status: StatusFail, Detail: err.Error()}},
			})
			continue
		}

		result := check.Run(ctx)
		counts := Tally([]Result{result})
		log.Debug().Ctx(ctx).
			Str("check", result.Name).
			Int("warned", counts.Warned).
			Int("failed", counts.Failed).
			Msg("doctor check finished")

		results = append(results, result)
	}
	return results
}

// Counts totals check items by status.
type Counts struct {
	Passed int `json:"passed"`
	Warned int `json:"warned"`
	Failed int `json:"failed"`
}

// Healthy reports whether no item failed. Warnings do not count.
func (c Counts) Healthy() bool {
	return c.Failed == 0
}

// Tally counts the items of all results.
func Tally(results []Result) Counts {
	var c Counts
	for _, r := range results {
		for _, item := range r.Items {
			switch item.Status {
			case StatusPass:
				c.Passed++
			case StatusWarn:
				c.Warned++
			case StatusFail:
				c.Failed++
			}
		}
	}
	return c
}
