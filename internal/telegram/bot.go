// Package telegram sends chat messages through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/rs/zerolog"

	"github.com/hay-kot/hwbot/internal/core/logging"
	"github.com/hay-kot/hwbot/internal/core/notify"
)

const maxReplyBytes = 1 << 20

// MaxMessageLength is the Bot API limit for sendMessage text, counted in
// UTF-16 code units.
const MaxMessageLength = 4096

const ellipsis = "…"

// Options configures a Bot.
type Options struct {
	APIURL  string
	Token   string
	ChatID  string
	Timeout time.Duration
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Bot delivers messages to a single chat. It implements notify.Notifier.
type Bot struct {
	baseURL string
	chatID  string
	http    *http.Client
	log     zerolog.Logger
}

var _ notify.Notifier = (*Bot)(nil)

// User is the subset of the Bot API User object returned by getMe.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type reply struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Result      json.RawMessage `json:"result"`
}

// New creates a Bot.
func New(opts Options) *Bot {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Bot{
		baseURL: strings.TrimRight(opts.APIURL, "/") + "/bot" + opts.Token,
		chatID:  opts.ChatID,
		http:    hc,
		log:     logging.Component("telegram"),
	}
}

// Send posts text to the configured chat. Text longer than
// MaxMessageLength is cut and ends with an ellipsis. Any failure is a
// *notify.DeliveryError.
func (b *Bot) Send(ctx context.Context, text string) error {
	if cut, ok := truncate(text, MaxMessageLength); ok {
		b.log.Warn().Ctx(ctx).Int("length", len(text)).Msg("message too long, truncated")
		text = cut
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": b.chatID,
		"text":    text,
	})
	if err != nil {
		return &notify.DeliveryError{Err: fmt.Errorf("encode message: %w", err)}
	}

	if _, err := b.call(ctx, http.MethodPost, "sendMessage", payload); err != nil {
		return err
	}

	b.log.Debug().Ctx(ctx).Str("text", text).Msg("bot sent message")
	return nil
}

// truncate cuts text to at most limit UTF-16 code units, replacing the tail
// with an ellipsis. It reports whether text was cut.
func truncate(text string, limit int) (string, bool) {
	units := 0
	for _, r := range text {
		units += utf16.RuneLen(r)
	}
	if units <= limit {
		return text, false
	}

	budget := limit - utf16.RuneLen('…')
	units = 0
	for i, r := range text {
		n := utf16.RuneLen(r)
		if units+n > budget {
			return text[:i] + ellipsis, true
		}
		units += n
	}
	return text, false
}

// Me returns the bot account the token belongs to.
func (b *Bot) Me(ctx context.Context) (User, error) {
	result, err := b.call(ctx, http.MethodGet, "getMe", nil)
	if err != nil {
		return User{}, err
	}

	var u User
	if err := json.Unmarshal(result, &u); err != nil {
		return User{}, &notify.DeliveryError{Reason: "decode getMe result", Err: err}
	}
	return u, nil
}

func (b *Bot) call(ctx context.Context, method, apiMethod string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+"/"+apiMethod, reader)
	if err != nil {
		return nil, &notify.DeliveryError{Err: fmt.Errorf("create request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, &notify.DeliveryError{Err: redactToken(err, b.baseURL)}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			b.log.Debug().Err(err).Msg("close telegram response body")
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, &notify.DeliveryError{Err: fmt.Errorf("read %s reply: %w", apiMethod, err)}
	}

	var r reply
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &notify.DeliveryError{
			Reason: fmt.Sprintf("%s: status code %d", apiMethod, resp.StatusCode),
			Err:    fmt.Errorf("decode reply: %w", err),
		}
	}

	if !r.OK || resp.StatusCode != http.StatusOK {
		reason := r.Description
		if reason == "" {
			reason = fmt.Sprintf("status code %d", resp.StatusCode)
		}
		return nil, &notify.DeliveryError{Reason: apiMethod + ": " + reason}
	}

	return r.Result, nil
}

// redactToken strips the bot token from transport errors, which embed the
// request URL.
func redactToken(err error, baseURL string) error {
	msg := err.Error()
	if i := strings.LastIndex(baseURL, "/bot"); i >= 0 {
		token := baseURL[i+len("/bot"):]
		if token != "" {
			msg = strings.ReplaceAll(msg, token, "<token>")
		}
	}
	return fmt.Errorf("%s", msg)
}
