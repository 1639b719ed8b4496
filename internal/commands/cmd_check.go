package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/hwbot/internal/core/homework"
	"github.com/hay-kot/hwbot/internal/hwbot"
	"github.com/hay-kot/hwbot/pkg/iojson"
)

type CheckCmd struct {
	flags *Flags
	app   *hwbot.App

	from   string
	format string
}

// NewCheckCmd creates a new check command
func NewCheckCmd(flags *Flags, app *hwbot.App) *CheckCmd {
	return &CheckCmd{flags: flags, app: app}
}

// Register adds the check command to the application
func (cmd *CheckCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "check",
		Usage:     "Query the status API once and print the records",
		UsageText: "hwbot check [--from <unix|duration>] [--format text|json|jsonl]",
		Description: `Performs a single status API request and prints the returned homework
records. No chat messages are sent.

--from accepts unix seconds (1700000000) or a duration to look back from now
(720h). It defaults to poll.start_from from the config.

--format jsonl prints one compact JSON record per line.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "from",
				Usage:       "lower-bound timestamp as unix seconds or a duration ago",
				Destination: &cmd.from,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json, jsonl)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *CheckCmd) run(ctx context.Context, c *cli.Command) error {
	if err := cmd.flags.RequireConfig(); err != nil {
		return err
	}

	from, err := cmd.resolveFrom(time.Now())
	if err != nil {
		return err
	}

	resp, err := cmd.app.Client.Statuses(ctx, from)
	if err != nil {
		return fmt.Errorf("get homework statuses: %w", err)
	}

	out := c.Root().Writer

	switch cmd.format {
	case "json":
		return iojson.WriteWith(out, os.Stderr, resp)
	case "jsonl":
		return writeRecordLines(out, resp.Homeworks)
	case "text":
	default:
		return fmt.Errorf("unknown --format %q: expected text, json or jsonl", cmd.format)
	}

	if len(resp.Homeworks) == 0 {
		fmt.Fprintf(os.Stderr, "No homework updates since %s\n", from.Format(time.DateTime))
		return nil
	}

	return writeRecordTable(out, resp.Homeworks)
}

func writeRecordLines(w io.Writer, records []homework.Record) error {
	for _, hw := range records {
		if err := iojson.WriteLine(w, hw); err != nil {
			return err
		}
	}
	return nil
}

func writeRecordTable(out io.Writer, records []homework.Record) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSTATUS\tUPDATED\tCOMMENT")
	for _, hw := range records {
		status := hw.Status
		if !homework.Status(hw.Status).IsValid() {
			status += " (unknown)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", hw.Name, status, hw.UpdatedAt.Format(time.DateTime), oneLine(hw.Comment))
	}

	return w.Flush()
}

// resolveFrom parses --from, falling back to the configured start.
func (cmd *CheckCmd) resolveFrom(now time.Time) (time.Time, error) {
	return parseFrom(cmd.from, now, cmd.app.Config.Poll.StartTime)
}

func parseFrom(raw string, now time.Time, fallback func(time.Time) (time.Time, error)) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback(now)
	}

	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --from %q: expected unix seconds or a duration", raw)
	}
	if d < 0 {
		return time.Time{}, fmt.Errorf("invalid --from %q: duration must not be negative", raw)
	}
	return now.Add(-d), nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
