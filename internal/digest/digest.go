// Package digest composes the morning notification and hands it to the
// sender.
package digest

import (
	"context"
	"fmt"
	"io"
	"time"

	appLog "dailydigest/internal/log"
	"dailydigest/internal/markup"
	"dailydigest/internal/model"
	"dailydigest/internal/planner"
	"dailydigest/internal/weather"
)

// Sender delivers a composed digest. *pushover.Client implements it.
type Sender interface {
	Send(ctx context.Context, msg model.DigestMessage) error
}

// Title returns the notification title for the date of now.
func Title(now time.Time) string {
	return "Good morning! " + now.Format("Monday, January 2")
}

// Compose joins the two sections. Degraded sections are included verbatim.
func Compose(now time.Time, weatherSec, assignments model.Section, html bool) model.DigestMessage {
	return model.DigestMessage{
		Title: Title(now),
		Body:  weatherSec.Text + "\n\n" + assignments.Text,
		HTML:  html,
	}
}

// Options are the per-run settings the Runner needs from configuration.
type Options struct {
	City      string
	DaysAhead int
	Location  *time.Location
	HTML      bool
	// DryRun composes and prints the digest without sending it.
	DryRun bool
}

// Runner executes one digest run: weather, assignments, send.
type Runner struct {
	opts    Options
	weather weather.Lookuper
	planner planner.Source
	sender  Sender
	out     io.Writer
	now     func() time.Time
}

// NewRunner wires a Runner. out receives the body after a successful send.
func NewRunner(opts Options, w weather.Lookuper, p planner.Source, s Sender, out io.Writer) *Runner {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Runner{
		opts:    opts,
		weather: w,
		planner: p,
		sender:  s,
		out:     out,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run performs the lookups, sends the digest and writes its body to the
// output. Lookup failures never abort the run; a send failure is returned.
func (r *Runner) Run(ctx context.Context) (model.DigestMessage, error) {
	now := r.now().In(r.opts.Location)
	m := markup.For(r.opts.HTML)

	weatherSec := weather.Section(ctx, r.weather, r.opts.City, m)
	assignSec := planner.Section(ctx, r.planner, now, r.opts.Location, r.opts.DaysAhead, m)

	msg := Compose(now, weatherSec, assignSec, r.opts.HTML)
	appLog.Info("digest composed",
		"title", msg.Title,
		"weather_degraded", weatherSec.Degraded,
		"assignments_degraded", assignSec.Degraded,
		"dry_run", r.opts.DryRun,
	)

	if !r.opts.DryRun {
		if err := r.sender.Send(ctx, msg); err != nil {
			return msg, err
		}
	}

	if r.out != nil {
		if _, err := fmt.Fprintln(r.out, msg.Body); err != nil {
			return msg, fmt.Errorf("digest: write output: %w", err)
		}
	}
	return msg, nil
}
