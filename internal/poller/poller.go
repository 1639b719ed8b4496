// Package poller runs the status polling loop: query the status API, detect
// a status change of the newest submission and notify the chat.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/hwbot/internal/core/config"
	"github.com/hay-kot/hwbot/internal/core/homework"
	"github.com/hay-kot/hwbot/internal/core/logging"
	"github.com/hay-kot/hwbot/internal/core/notify"
	"github.com/hay-kot/hwbot/internal/practicum"
)

// StatusClient fetches homework records updated since from.
type StatusClient interface {
	Statuses(ctx context.Context, from time.Time) (practicum.Response, error)
}

// State is the in-memory poll state. The zero LastName and LastStatus mean
// nothing has been notified yet.
type State struct {
	// From is the lower-bound timestamp for the next query.
	From        time.Time
	LastName    string
	LastStatus  homework.Status
	LastFailure string
}

// Options configures a Poller.
type Options struct {
	Interval       time.Duration
	Start          time.Time
	DedupeFailures bool
}

// CycleResult describes the outcome of a single cycle.
type CycleResult struct {
	Records  int
	Notified bool
	// Err is the status API or detection failure, if any.
	Err error
	// DeliveryErr is set when a notification could not be sent.
	DeliveryErr error
}

// Poller owns the poll state and runs the loop. State is only touched from
// the goroutine calling Run or Cycle.
type Poller struct {
	client   StatusClient
	notifier notify.Notifier
	renderer Renderer
	opts     Options

	state  State
	cycles uint64
	log    zerolog.Logger
}

// New creates a Poller. A zero Interval falls back to the default and a zero
// Start means the current time.
func New(client StatusClient, notifier notify.Notifier, renderer Renderer, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = config.DefaultInterval
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}

	return &Poller{
		client:   client,
		notifier: notifier,
		renderer: renderer,
		opts:     opts,
		state:    State{From: opts.Start},
		log:      logging.Component("poller"),
	}
}

// State returns a snapshot of the poll state. It must not be called
// concurrently with Run.
func (p *Poller) State() State {
	return p.state
}

// Run executes a cycle immediately and then one cycle per interval until ctx
// is cancelled. It always returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info().
		Dur("interval", p.opts.Interval).
		Time("from", p.state.From).
		Msg("starting poller")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		p.Cycle(ctx)

		timer := time.NewTimer(p.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.log.Info().Msg("poller stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Cycle performs one poll, detect and notify pass. Recoverable failures are
// logged, reported to the chat and returned in the result; they never stop
// the loop.
func (p *Poller) Cycle(ctx context.Context) CycleResult {
	p.cycles++
	ctx = logging.WithCycle(ctx, p.cycles)
	m := getMetrics()

	p.log.Debug().Ctx(ctx).Time("from", p.state.From).Msg("polling status api")

	start := time.Now()
	resp, err := p.client.Statuses(ctx, p.state.From)
	m.apiLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			// shutting down
			return CycleResult{Err: err}
		}
		return p.fail(ctx, fmt.Errorf("get homework statuses: %w", err))
	}

	res := CycleResult{Records: len(resp.Homeworks)}

	change, changed, err := Detect(resp.Homeworks, p.state)
	if err != nil {
		failed := p.fail(ctx, err)
		failed.Records = res.Records
		return failed
	}

	m.lastSuccess.SetToCurrentTime()
	p.state.LastFailure = ""

	if changed {
		p.notifyChange(ctx, change, &res)
	} else if res.Records > 0 {
		p.log.Debug().Ctx(ctx).
			Str("homework", resp.Homeworks[0].Name).
			Str("status", resp.Homeworks[0].Status).
			Msg("status unchanged")
	} else {
		p.log.Debug().Ctx(ctx).Msg("no new homework updates")
	}

	if res.Records == 0 {
		m.cycles.WithLabelValues(resultEmpty).Inc()
		return res
	}

	if newest := resp.Homeworks[0].UpdatedAt; !newest.IsZero() {
		p.state.From = newest
	}
	m.cycles.WithLabelValues(resultOK).Inc()

	return res
}

func (p *Poller) notifyChange(ctx context.Context, change Change, res *CycleResult) {
	m := getMetrics()

	msg, err := p.renderer.Status(change)
	if err != nil {
		p.log.Error().Ctx(ctx).Err(err).Str("homework", change.Record.Name).Msg("render status message")
		res.Err = err
		return
	}

	if err := p.notifier.Send(ctx, msg); err != nil {
		p.log.Error().Ctx(ctx).Err(err).
			Str("homework", change.Record.Name).
			Str("status", change.Status.String()).
			Msg("status notification not delivered")
		m.notifications.WithLabelValues(kindStatus, deliveryFailed).Inc()
		res.DeliveryErr = err
		return
	}

	p.state.LastName = change.Record.Name
	p.state.LastStatus = change.Status
	res.Notified = true
	m.notifications.WithLabelValues(kindStatus, deliverySent).Inc()

	p.log.Info().Ctx(ctx).
		Str("homework", change.Record.Name).
		Str("status", change.Status.String()).
		Msg("status notification sent")
}

// fail reports a cycle failure to the log and, unless it repeats the last
// failure sent, to the chat. The lower bound is left unchanged.
func (p *Poller) fail(ctx context.Context, err error) CycleResult {
	m := getMetrics()
	m.cycles.WithLabelValues(resultFailed).Inc()

	res := CycleResult{Err: err}
	p.log.Error().Ctx(ctx).Err(err).Msg("cycle failed")

	msg := p.renderer.Failure(err)
	if p.opts.DedupeFailures && msg == p.state.LastFailure {
		p.log.Debug().Ctx(ctx).Msg("repeated failure, notification suppressed")
		m.notifications.WithLabelValues(kindFailure, deliverySuppressed).Inc()
		return res
	}

	if derr := p.notifier.Send(ctx, msg); derr != nil {
		p.log.Error().Ctx(ctx).Err(derr).Msg("failure notification not delivered")
		m.notifications.WithLabelValues(kindFailure, deliveryFailed).Inc()
		res.DeliveryErr = derr
		return res
	}

	p.state.LastFailure = msg
	res.Notified = true
	m.notifications.WithLabelValues(kindFailure, deliverySent).Inc()

	return res
}
