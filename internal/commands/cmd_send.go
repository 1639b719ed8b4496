package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/hwbot/internal/hwbot"
	"github.com/hay-kot/hwbot/pkg/iojson"
)

// SendInput is the JSON input accepted by send when no text arguments are
// given.
type SendInput struct {
	Text string `json:"text"`
}

type SendCmd struct {
	flags *Flags
	app   *hwbot.App
	fr    *iojson.FileReader[SendInput]
}

// NewSendCmd creates a new send command
func NewSendCmd(flags *Flags, app *hwbot.App) *SendCmd {
	return &SendCmd{
		flags: flags,
		app:   app,
		fr:    &iojson.FileReader[SendInput]{},
	}
}

// Register adds the send command to the application
func (cmd *SendCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "send",
		Usage:     "Send a message to the configured chat",
		UsageText: "hwbot send <text...>\n   echo '{\"text\":\"hello\"}' | hwbot send",
		Description: `Sends a message through the Telegram bot to verify delivery.

The text is taken from the arguments. Without arguments a JSON object
{"text": "..."} is read from --file or stdin.`,
		Flags:  []cli.Flag{cmd.fr.Flag()},
		Action: cmd.run,
	})

	return app
}

func (cmd *SendCmd) run(ctx context.Context, c *cli.Command) error {
	if err := cmd.flags.RequireConfig(); err != nil {
		return err
	}

	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		input, err := cmd.fr.Read()
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		text = strings.TrimSpace(input.Text)
	}
	if text == "" {
		return errors.New("message text is empty")
	}

	if err := cmd.app.Bot.Send(ctx, text); err != nil {
		return err
	}

	log.Info().Int("length", len(text)).Msg("message sent")
	_, _ = fmt.Fprintln(os.Stderr, "Message sent")
	return nil
}
