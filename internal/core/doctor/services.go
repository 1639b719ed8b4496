package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/hay-kot/hwbot/internal/practicum"
	"github.com/hay-kot/hwbot/internal/telegram"
)

// StatusLister is the part of the status API client used by StatusAPICheck.
type StatusLister interface {
	Statuses(ctx context.Context, from time.Time) (practicum.Response, error)
}

// BotIdentity is the part of the Telegram bot used by TelegramCheck.
type BotIdentity interface {
	Me(ctx context.Context) (telegram.User, error)
}

const skippedDetail = "skipped, configuration incomplete"

// StatusAPICheck performs a status request for the current time to verify
// the endpoint and token.
type StatusAPICheck struct {
	client StatusLister
	now    func() time.Time
}

// NewStatusAPICheck creates the check. A nil client marks it as skipped.
func NewStatusAPICheck(client StatusLister) *StatusAPICheck {
	return &StatusAPICheck{client: client, now: time.Now}
}

func (c *StatusAPICheck) Name() string {
	return "Status API"
}

func (c *StatusAPICheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.client == nil {
		result.Items = append(result.Items, CheckItem{Label: "Request", Status: StatusWarn, Detail: skippedDetail})
		return result
	}

	resp, err := c.client.Statuses(ctx, c.now())
	if err != nil {
		result.Items = append(result.Items, CheckItem{Label: "Request", Status: StatusFail, Detail: err.Error()})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "Request",
		Status: StatusPass,
		Detail: fmt.Sprintf("%d recent homework(s)", len(resp.Homeworks)),
	})
	return result
}

// TelegramCheck verifies the bot token with getMe.
type TelegramCheck struct {
	bot BotIdentity
}

// NewTelegramCheck creates the check. A nil bot marks it as skipped.
func NewTelegramCheck(bot BotIdentity) *TelegramCheck {
	return &TelegramCheck{bot: bot}
}

func (c *TelegramCheck) Name() string {
	return "Telegram"
}

func (c *TelegramCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.bot == nil {
		result.Items = append(result.Items, CheckItem{Label: "Bot token", Status: StatusWarn, Detail: skippedDetail})
		return result
	}

	me, err := c.bot.Me(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{Label: "Bot token", Status: StatusFail, Detail: err.Error()})
		return result
	}

	result.Items = append(result.Items, CheckItem{Label: "Bot token", Status: StatusPass, Detail: "@" + me.Username})
	return result
}
