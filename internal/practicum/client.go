// Package practicum is a client for the homework review-status API.
package practicum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/hwbot/internal/core/homework"
	"github.com/hay-kot/hwbot/internal/core/logging"
)

const maxBodyBytes = 4 << 20

// Response is a decoded status API answer.
type Response struct {
	// Homeworks holds records updated since the requested timestamp,
	// newest first.
	Homeworks []homework.Record `json:"homeworks"`
	// CurrentDate is the server clock in seconds since epoch, zero if absent.
	CurrentDate int64 `json:"current_date"`
}

// Options configures a Client.
type Options struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client fetches homework review records.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	log      zerolog.Logger
}

// New creates a status API client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		endpoint: opts.Endpoint,
		token:    opts.Token,
		http:     hc,
		log:      logging.Component("practicum"),
	}
}

// Statuses returns the records updated at or after from. Failures are
// *NetworkError, *UnexpectedStatusError or *MalformedResponseError.
func (c *Client) Statuses(ctx context.Context, from time.Time) (Response, error) {
	body, err := c.get(ctx, from)
	if err != nil {
		return Response{}, err
	}
	return decodeResponse(body)
}

func (c *Client) get(ctx context.Context, from time.Time) ([]byte, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("parse endpoint: %w", err)}
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(from.Unix(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "hwbot")

	c.log.Debug().Ctx(ctx).Int64("from_date", from.Unix()).Msg("requesting homework statuses")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Debug().Err(err).Msg("close status api response body")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UnexpectedStatusError{
			Endpoint:   c.endpoint,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(body),
		}
	}

	return body, nil
}

// errorDetail extracts the message/code fields the API puts in error bodies.
func errorDetail(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch {
	case payload.Message != "" && payload.Code != "":
		return payload.Code + ": " + payload.Message
	case payload.Message != "":
		return payload.Message
	default:
		return payload.Code
	}
}

func decodeResponse(body []byte) (Response, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil || top == nil {
		return Response{}, &MalformedResponseError{Reason: "response is not a JSON object", Err: err}
	}

	rawList, ok := top["homeworks"]
	if !ok {
		return Response{}, malformed(`no key "homeworks" in response`)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawList, &items); err != nil || items == nil {
		return Response{}, malformed(`value under "homeworks" is not a list`)
	}

	resp := Response{Homeworks: make([]homework.Record, 0, len(items))}
	for i, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			return Response{}, &MalformedResponseError{Reason: fmt.Sprintf("homeworks[%d]", i), Err: err}
		}
		resp.Homeworks = append(resp.Homeworks, rec)
	}

	if raw, ok := top["current_date"]; ok {
		if err := json.Unmarshal(raw, &resp.CurrentDate); err != nil {
			return Response{}, &MalformedResponseError{Reason: `"current_date" is not an integer`, Err: err}
		}
	}

	return resp, nil
}

func decodeRecord(raw json.RawMessage) (homework.Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return homework.Record{}, fmt.Errorf("homework is not a JSON object")
	}

	var rec homework.Record
	if err := requiredString(fields, "homework_name", &rec.Name); err != nil {
		return homework.Record{}, err
	}
	if err := requiredString(fields, "status", &rec.Status); err != nil {
		return homework.Record{}, err
	}

	if v, ok := fields["reviewer_comment"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &rec.Comment); err != nil {
			return homework.Record{}, fmt.Errorf(`"reviewer_comment" is not a string`)
		}
	}

	if v, ok := fields["date_updated"]; ok && string(v) != "null" {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return homework.Record{}, fmt.Errorf(`"date_updated" is not a string`)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return homework.Record{}, fmt.Errorf(`"date_updated": %w`, err)
		}
		rec.UpdatedAt = t
	}

	return rec, nil
}

func requiredString(fields map[string]json.RawMessage, key string, dst *string) error {
	v, ok := fields[key]
	if !ok {
		return fmt.Errorf("no key %q in homework", key)
	}
	if err := json.Unmarshal(v, dst); err != nil || string(v) == "null" {
		return fmt.Errorf("%q is not a string", key)
	}
	return nil
}
