package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/hwbot/internal/debugserver"
	"github.com/hay-kot/hwbot/internal/hwbot"
)

type RunCmd struct {
	flags *Flags
	app   *hwbot.App

	debugAddr string
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags, app *hwbot.App) *RunCmd {
	return &RunCmd{flags: flags, app: app}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Poll review statuses and notify the chat",
		UsageText: "hwbot run [--debug-addr :9090]",
		Description: `Polls the homework status API on the configured interval and sends a
Telegram message whenever the status of the newest submission changes.
Failures are reported to the chat once per distinct error.

This is the default command. It runs until interrupted (SIGINT/SIGTERM).`,
		Flags:  cmd.Flags(),
		Action: cmd.Run,
	})

	return app
}

// Flags returns the run flags so they can also be registered on the root
// command.
func (cmd *RunCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "debug-addr",
			Usage:       "serve /metrics and /debug/pprof on this address (overrides metrics.addr)",
			Sources:     cli.EnvVars("HWBOT_DEBUG_ADDR"),
			Destination: &cmd.debugAddr,
		},
	}
}

// Run starts the polling loop and blocks until ctx is cancelled.
func (cmd *RunCmd) Run(ctx context.Context, c *cli.Command) error {
	if err := cmd.flags.RequireConfig(); err != nil {
		return err
	}

	addr := cmd.debugAddr
	if addr == "" {
		addr = cmd.app.Config.Metrics.Addr
	}
	if addr != "" {
		srv := debugserver.New(addr)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("start debug server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to shut down debug server")
			}
		}()
	}

	p, err := cmd.app.NewPoller(time.Now())
	if err != nil {
		return err
	}

	err = p.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("received shutdown signal")
		return nil
	}
	return err
}
