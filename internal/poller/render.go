package poller

import (
	"fmt"

	"github.com/hay-kot/hwbot/internal/core/config"
	"github.com/hay-kot/hwbot/internal/core/homework"
	"github.com/hay-kot/hwbot/pkg/tmpl"
)

// Renderer turns cycle outcomes into chat message text.
type Renderer interface {
	Status(c Change) (string, error)
	Failure(err error) string
}

// MessageRenderer renders messages from the configured templates.
type MessageRenderer struct {
	statuses map[homework.Status]*tmpl.Template
	failure  *tmpl.Template
}

var _ Renderer = (*MessageRenderer)(nil)

// NewRenderer compiles the message templates. Every known status must have
// a template.
func NewRenderer(msgs config.MessagesConfig) (*MessageRenderer, error) {
	r := &MessageRenderer{statuses: make(map[homework.Status]*tmpl.Template, len(msgs.Statuses))}

	for _, status := range homework.Statuses() {
		text, ok := msgs.Statuses[string(status)]
		if !ok {
			return nil, fmt.Errorf("no message template for status %q", status)
		}
		t, err := tmpl.Parse(string(status), text)
		if err != nil {
			return nil, fmt.Errorf("status %q: %w", status, err)
		}
		r.statuses[status] = t
	}

	failure, err := tmpl.Parse("failure", msgs.Failure)
	if err != nil {
		return nil, fmt.Errorf("failure message: %w", err)
	}
	r.failure = failure

	return r, nil
}

// Status renders the message for a detected change. A non-empty reviewer
// comment is appended on its own line.
func (r *MessageRenderer) Status(c Change) (string, error) {
	t, ok := r.statuses[c.Status]
	if !ok {
		return "", &homework.UnknownStatusError{Status: string(c.Status)}
	}

	msg, err := t.Execute(config.StatusTemplateData{
		Name:      c.Record.Name,
		Status:    string(c.Status),
		Comment:   c.Record.Comment,
		UpdatedAt: c.Record.UpdatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("render %s message: %w", c.Status, err)
	}

	if c.Record.Comment != "" {
		msg += "\n" + c.Record.Comment
	}

	return msg, nil
}

// Failure renders the message for a failed cycle. It never fails: when the
// template cannot be executed the error text is used as is.
func (r *MessageRenderer) Failure(err error) string {
	msg, rerr := r.failure.Execute(config.FailureTemplateData{Error: err.Error()})
	if rerr != nil {
		msg = "Bot failure: " + err.Error()
	}
	return msg
}
