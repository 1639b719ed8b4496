// Package homework defines the review-status domain model shared by the
// status client and the poller.
package homework

import (
	"fmt"
	"time"
)

// Status is the review state of a submission.
type Status string

const (
	StatusReviewing Status = "reviewing"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Statuses returns every recognized status in display order.
func Statuses() []Status {
	return []Status{StatusReviewing, StatusApproved, StatusRejected}
}

// ParseStatus converts a raw API value into a Status. Unrecognized values
// return an *UnknownStatusError.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusReviewing, StatusApproved, StatusRejected:
		return s, nil
	default:
		return "", &UnknownStatusError{Status: raw}
	}
}

// IsValid reports whether s is one of the recognized statuses.
func (s Status) IsValid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s Status) String() string {
	return string(s)
}

// Record is a single homework review record as returned by the status API.
// The status is kept raw; callers validate it with ParseStatus.
type Record struct {
	Name      string    `json:"homework_name"`
	Status    string    `json:"status"`
	Comment   string    `json:"reviewer_comment,omitempty"`
	UpdatedAt time.Time `json:"date_updated"`
}

// UnknownStatusError is returned when the API reports a status outside the
// recognized set.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown homework status %q", e.Status)
}
