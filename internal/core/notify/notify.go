// Package notify defines the chat notification capability the poller
// depends on.
package notify

import (
	"context"
	"fmt"
)

// Notifier sends a text message to a fixed chat destination.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// DeliveryError is returned when a message could not be delivered.
type DeliveryError struct {
	// Reason is a short description reported by the messaging service, if any.
	Reason string
	Err    error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("deliver message: %s: %v", e.Reason, e.Err)
	case e.Reason != "":
		return "deliver message: " + e.Reason
	case e.Err != nil:
		return fmt.Sprintf("deliver message: %v", e.Err)
	default:
		return "deliver message: unknown error"
	}
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
