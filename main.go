package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/hwbot/internal/commands"
	"github.com/hay-kot/hwbot/internal/core/config"
	"github.com/hay-kot/hwbot/internal/core/logging"
	"github.com/hay-kot/hwbot/internal/core/styles"
	"github.com/hay-kot/hwbot/internal/hwbot"
	"github.com/hay-kot/hwbot/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var (
		logCloser func()
		app       = &hwbot.App{}
	)

	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "hwbot",
		Usage:     "Forward homework review status changes to Telegram",
		UsageText: "hwbot [global options] [command [command options]]",
		Description: `hwbot polls the homework review status API and sends a Telegram message
whenever the status of your latest submission changes.

Secrets are read from the environment (or .env files):
  PRACTICUM_TOKEN, TELEGRAM_TOKEN, TELEGRAM_CHAT_ID

Run 'hwbot' with no arguments to start polling.
Run 'hwbot doctor' to verify the setup.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("HWBOT_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stdout)",
				Sources:     cli.EnvVars("HWBOT_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (json, console)",
				Sources:     cli.EnvVars("HWBOT_LOG_FORMAT"),
				Value:       logutils.FormatConsole,
				Destination: &flags.LogFormat,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("HWBOT_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringSliceFlag{
				Name:        "env-file",
				Usage:       "env files to load before reading secrets (missing files are skipped)",
				Sources:     cli.EnvVars("HWBOT_ENV_FILE"),
				Value:       commands.DefaultEnvFiles(),
				Destination: &flags.EnvFiles,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFormat, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			command := "run"
			if c.Args().Present() {
				command = c.Args().First()
			}
			ctx = logging.WithCommand(ctx, command)

			// Loading failures are recorded rather than returned so doctor
			// can report them; every other command exits on them.
			flags.Config, flags.LoadErr = load(flags)

			if flags.Config != nil {
				// Validation ensures the theme name is known.
				palette, _ := styles.GetPalette(flags.Config.UI.Theme)
				styles.SetTheme(palette)
			}

			if flags.LoadErr == nil {
				a, err := hwbot.NewApp(flags.Config)
				if err != nil {
					flags.LoadErr = err
				} else {
					*app = *a
				}
			}

			var built *hwbot.App
			if flags.LoadErr == nil {
				built = app
			}
			app.Doctor = hwbot.NewDoctorService(
				flags.ConfigPath,
				flags.Config,
				flags.LoadErr,
				env.ToMap(os.Environ()),
				built,
			)

			return ctx, nil
		},
	}

	runCmd := commands.NewRunCmd(flags, app)

	root = runCmd.Register(root)
	root = commands.NewCheckCmd(flags, app).Register(root)
	root = commands.NewSendCmd(flags, app).Register(root)
	root = commands.NewDoctorCmd(flags, app).Register(root)

	// Register run flags on root command
	root.Flags = append(root.Flags, runCmd.Flags()...)

	// Set run as default action when no subcommand is provided
	root.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'hwbot --help' for usage", c.Args().First())
		}
		return runCmd.Run(ctx, c)
	}

	exitCode := 0
	runErr := root.Run(ctx, os.Args)
	stop()

	var cfgErr *config.ConfigurationError
	switch {
	case runErr == nil:
	case errors.As(runErr, &cfgErr):
		log.Error().Err(runErr).Msg("configuration error")
		exitCode = 1
	default:
		var exitErr cli.ExitCoder
		if !errors.As(runErr, &exitErr) || runErr.Error() != "" {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, runErr.Error())
		}
		exitCode = 1
	}

	// Closed after the final error is logged.
	if logCloser != nil {
		logCloser()
	}
	os.Exit(exitCode)
}

// load reads env files, the config file and the secrets.
func load(flags *commands.Flags) (*config.Config, error) {
	n, err := config.LoadEnvFiles(flags.EnvFiles)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("count", n).Msg("loaded env files")

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	secrets, err := config.LoadProcessSecrets()
	if err != nil {
		return cfg, err
	}
	cfg.Secrets = secrets
	log.Debug().Interface("secrets", secrets.Redacted()).Msg("loaded secrets")

	return cfg, nil
}
