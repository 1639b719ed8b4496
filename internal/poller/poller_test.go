package poller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hay-kot/hwbot/internal/core/config"
	"github.com/hay-kot/hwbot/internal/core/homework"
	"github.com/hay-kot/hwbot/internal/core/notify"
	"github.com/hay-kot/hwbot/internal/practicum"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type reply struct {
	records []homework.Record
	err     error
}

// scriptedClient returns the scripted replies in order and repeats the last
// one once the script is exhausted.
type scriptedClient struct {
	mu      sync.Mutex
	replies []reply
	froms   []time.Time
}

func (c *scriptedClient) Statuses(_ context.Context, from time.Time) (practicum.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.froms = append(c.froms, from)
	i := min(len(c.froms)-1, len(c.replies)-1)
	r := c.replies[i]
	if r.err != nil {
		return practicum.Response{}, r.err
	}
	return practicum.Response{Homeworks: r.records}, nil
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.froms)
}

type recorder struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recorder) Send(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, text)
	return nil
}

func record(name string, status homework.Status, updated time.Time) homework.Record {
	return homework.Record{Name: name, Status: string(status), UpdatedAt: updated}
}

func ok(records ...homework.Record) reply { return reply{records: records} }

func newTestPoller(t *testing.T, client StatusClient, n notify.Notifier) *Poller {
	t.Helper()
	r, err := NewRenderer(config.DefaultConfig().Messages)
	require.NoError(t, err)
	return New(client, n, r, Options{Interval: time.Minute, Start: start, DedupeFailures: true})
}

func runCycles(p *Poller, n int) []CycleResult {
	results := make([]CycleResult, 0, n)
	for range n {
		results = append(results, p.Cycle(context.Background()))
	}
	return results
}

func TestCycle_SameStatusNotifiesOnce(t *testing.T) {
	rec := record("hw1", homework.StatusReviewing, start.Add(time.Minute))
	client := &scriptedClient{replies: []reply{ok(rec)}}
	n := &recorder{}
	p := newTestPoller(t, client, n)

	results := runCycles(p, 4)

	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], `"hw1"`)
	assert.True(t, results[0].Notified)
	for _, r := range results[1:] {
		assert.False(t, r.Notified)
		assert.NoError(t, r.Err)
	}
}

func TestCycle_StatusFlipNotifiesEachChange(t *testing.T) {
	client := &scriptedClient{replies: []reply{
		ok(record("hw1", homework.StatusReviewing, start.Add(1*time.Minute))),
		ok(record("hw1", homework.StatusRejected, start.Add(2*time.Minute))),
		ok(record("hw1", homework.StatusReviewing, start.Add(3*time.Minute))),
	}}
	n := &recorder{}
	p := newTestPoller(t, client, n)

	runCycles(p, 3)

	assert.Len(t, n.sent, 3)
	assert.Equal(t, homework.StatusReviewing, p.State().LastStatus)
}

func TestCycle_ReviewingApprovedApproved(t *testing.T) {
	client := &scriptedClient{replies: []reply{
		ok(record("hw1", homework.StatusReviewing, start.Add(1*time.Minute))),
		ok(record("hw1", homework.StatusApproved, start.Add(2*time.Minute))),
		ok(record("hw1", homework.StatusApproved, start.Add(2*time.Minute))),
	}}
	n := &recorder{}
	p := newTestPoller(t, client, n)

	runCycles(p, 3)

	require.Len(t, n.sent, 2)
	assert.Contains(t, n.sent[0], "taken for review")
	assert.Contains(t, n.sent[1], "Hooray!")
}

func TestCycle_NewSubmissionSameStatusNotifies(t *testing.T) {
	client := &scriptedClient{replies: []reply{
		ok(record("hw1", homework.StatusApproved, start.Add(1*time.Minute))),
		ok(record("hw2", homework.StatusApproved, start.Add(2*time.Minute))),
	}}
	n := &recorder{}
	p := newTestPoller(t, client, n)

	runCycles(p, 2)

	assert.Len(t, n.sent, 2)
	assert.Equal(t, "hw2", p.State().LastName)
}

func TestCycle_EmptyResult(t *testing.T) {
	client := &scriptedClient{replies: []reply{ok()}}
	n := &recorder{}
	p := newTestPoller(t, client, n)

	res := p.Cycle(context.Background())

	assert.Empty(t, n.sent)
	assert.Equal(t, 0, res.Records)
	require.NoError(t, res.Err)
	assert.Equal(t, start, p.State().From)
}

func TestCycle_FromAdvancesToNewestRecord(t *testing.T) {
	newest := start.Add(5 * time.Minute)
	client := &scriptedClient{replies: []reply{ok(
		record("hw2", homework.StatusReviewing, newest),
		record("hw1", homework.StatusApproved, start.Add(time.Minute)),
	)}}
	p := newTestPoller(t, client, &recorder{})

	res := p.Cycle(context.Background())

	assert.Equal(t, 2, res.Records)
	assert.Equal(t, newest, p.State().From)
	assert.Equal(t, "hw2", p.State().LastName)
}

func TestCycle_NetworkErrorKeepsFrom(t *testing.T) {
	netErr := &practicum.NetworkError{Err: errors.New("connection refused")}
	client := &scriptedClient{replies: []reply{
		{err: netErr},
		ok(record("hw1", homework.StatusReviewing, start.Add(time.Minute))),
	}}
	n := &recorder{}
	p := newTestPoller(t, client, n)

	results := runCycles(p, 2)

	var target *practicum.NetworkError
	require.ErrorAs(t, results[0].Err, &target)
	require.Len(t, client.froms, 2)
	assert.Equal(t, client.froms[0], client.froms[1])
	assert.Equal(t, start, client.froms[1])

	require.Len(t, n.sent, 2)
	assert.Contains(t, n.sent[0], "Bot failure:")
	assert.Contains(t, n.sent[0], "connection refused")
}

func TestCycle_TimeoutMidRun(t *testing.T) {
	timeout := &practicum.NetworkError{Err: context.DeadlineExceeded}
	client := &scriptedClient{replies: []reply{
		ok(record("hw1", homework.StatusReviewing, start.Add(1*time.Minute))),
		{err: timeout},
		ok(record("hw1", homework.StatusApproved, start.Add(2*time.Minute))),
	}}
	n := &recorder{}
	p := newTestPoller(t, client, n)

	results := runCycles(p, 3)

	require.Len(t, n.sent, 3)
	assert.Contains(t, n.sent[1], "Bot failure:")
	failures := 0
	for _, msg := range n.sent {
		if strings.HasPrefix(msg, "Bot failure:") {
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.True(t, results[2].Notified)
	assert.Empty(t, p.State().LastFailure)
}

func TestCycle_UnknownStatus(t *testing.T) {
	client := &scriptedClient{replies: []reply{ok(
		homework.Record{Name: "hw1", Status: "on_hold", UpdatedAt: start.Add(time.Minute)},
	)}}
	n := &recorder{}
	p := newTestPoller(t, client, n)

	res := p.Cycle(context.Background())

	var unknown *homework.UnknownStatusError
	require.ErrorAs(t, res.Err, &unknown)
	assert.Equal(t, "on_hold", unknown.Status)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, start, p.State().From)
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "on_hold")
}

func TestCycle_FailureDedupe(t *testing.T) {
	tests := []struct {
		name   string
		dedupe bool
		want   int
	}{
		{name: "enabled", dedupe: true, want: 1},
		{name: "disabled", dedupe: false, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{replies: []reply{
				{err: &practicum.UnexpectedStatusError{Endpoint: "http://api", StatusCode: 503}},
			}}
			n := &recorder{}
			r, err := NewRenderer(config.DefaultConfig().Messages)
			require.NoError(t, err)
			p := New(client, n, r, Options{Interval: time.Minute, Start: start, DedupeFailures: tt.dedupe})

			runCycles(p, 3)

			assert.Len(t, n.sent, tt.want)
		})
	}
}

func TestCycle_SuccessClearsFailureMemory(t *testing.T) {
	fail := reply{err: &practicum.UnexpectedStatusError{Endpoint: "http://api", StatusCode: 500}}
	client := &scriptedClient{replies: []reply{fail, fail, ok(), fail}}
	n := &recorder{}
	p := newTestPoller(t, client, n)

	runCycles(p, 4)

	require.Len(t, n.sent, 2)
	assert.Equal(t, n.sent[0], n.sent[1])
}

func TestCycle_DistinctFailuresAreAllSent(t *testing.T) {
	client := &scriptedClient{replies: []reply{
		{err: &practicum.UnexpectedStatusError{Endpoint: "http://api", StatusCode: 500}},
		{err: &practicum.MalformedResponseError{Reason: `"homeworks" key is missing`}},
	}}
	n := &recorder{}
	p := newTestPoller(t, client, n)

	runCycles(p, 2)

	assert.Len(t, n.sent, 2)
}

func TestCycle_DeliveryErrorRetriesChange(t *testing.T) {
	rec := record("hw1", homework.StatusApproved, start.Add(time.Minute))
	client := &scriptedClient{replies: []reply{ok(rec)}}
	n := &recorder{err: &notify.DeliveryError{Reason: "Bad Request: chat not found"}}
	p := newTestPoller(t, client, n)

	res := p.Cycle(context.Background())

	var de *notify.DeliveryError
	require.ErrorAs(t, res.DeliveryErr, &de)
	require.NoError(t, res.Err)
	assert.False(t, res.Notified)
	assert.Empty(t, p.State().LastName)
	assert.Equal(t, rec.UpdatedAt, p.State().From)

	n.err = nil
	res = p.Cycle(context.Background())

	assert.True(t, res.Notified)
	assert.Len(t, n.sent, 1)
	assert.Equal(t, homework.StatusApproved, p.State().LastStatus)
}

func TestCycle_FailureDeliveryErrorIsRetried(t *testing.T) {
	client := &scriptedClient{replies: []reply{
		{err: &practicum.NetworkError{Err: errors.New("no route to host")}},
	}}
	n := &recorder{err: &notify.DeliveryError{Err: errors.New("telegram down")}}
	p := newTestPoller(t, client, n)

	res := p.Cycle(context.Background())
	require.Error(t, res.DeliveryErr)
	assert.Empty(t, p.State().LastFailure)

	n.err = nil
	res = p.Cycle(context.Background())
	assert.True(t, res.Notified)
	assert.Len(t, n.sent, 1)
}

func TestCycle_Metrics(t *testing.T) {
	m := getMetrics()
	okBefore := testutil.ToFloat64(m.cycles.WithLabelValues(resultOK))
	failedBefore := testutil.ToFloat64(m.cycles.WithLabelValues(resultFailed))
	suppressedBefore := testutil.ToFloat64(m.notifications.WithLabelValues(kindFailure, deliverySuppressed))

	fail := reply{err: &practicum.UnexpectedStatusError{Endpoint: "http://api", StatusCode: 500}}
	client := &scriptedClient{replies: []reply{
		ok(record("hw1", homework.StatusReviewing, start.Add(time.Minute))),
		fail,
		fail,
	}}
	p := newTestPoller(t, client, &recorder{})

	runCycles(p, 3)

	assert.InDelta(t, 1, testutil.ToFloat64(m.cycles.WithLabelValues(resultOK))-okBefore, 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.cycles.WithLabelValues(resultFailed))-failedBefore, 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.notifications.WithLabelValues(kindFailure, deliverySuppressed))-suppressedBefore, 0)
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := &scriptedClient{replies: []reply{
		ok(record("hw1", homework.StatusReviewing, start.Add(time.Minute))),
	}}
	n := &recorder{}
	r, err := NewRenderer(config.DefaultConfig().Messages)
	require.NoError(t, err)
	p := New(client, n, r, Options{Interval: 5 * time.Millisecond, Start: start, DedupeFailures: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return client.calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Len(t, n.sent, 1)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	client := &scriptedClient{replies: []reply{ok()}}
	p := newTestPoller(t, client, &recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, client.calls())
}

func TestNew_Defaults(t *testing.T) {
	r, err := NewRenderer(config.DefaultConfig().Messages)
	require.NoError(t, err)

	before := time.Now()
	p := New(&scriptedClient{}, &recorder{}, r, Options{})

	assert.Equal(t, config.DefaultInterval, p.opts.Interval)
	assert.False(t, p.State().From.Before(before), fmt.Sprintf("from %s should not precede %s", p.State().From, before))
}
