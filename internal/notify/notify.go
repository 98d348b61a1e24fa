// Package notify fans change events out to the configured channels.
// Channels are fully isolated: one channel failing never prevents the
// others from being attempted, and delivery never mutates store state.
package notify

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

// maxListFields caps list-style payload fields per message. Downstream
// transports enforce payload limits (webhook embeds allow 25 fields);
// everything beyond the cap is dropped with a logged count.
const maxListFields = 25

// Channel is one independent notification transport. Send receives the
// whole batch for the cycle and renders one message from it.
type Channel interface {
	Name() string
	Send(ctx context.Context, events []watch.ChangeEvent) error
}

// Dispatcher delivers a cycle's events to every enabled channel.
type Dispatcher struct {
	channels []Channel
	limiter  *rate.Limiter
	log      logx.Logger
}

func NewDispatcher(channels []Channel, ratePerSec int, log logx.Logger) *Dispatcher {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		channels: channels,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:      log,
	}
}

// Dispatch sends the batch to every channel. With zero configured channels
// it is a logged no-op, not an error. Per-channel failures are logged and
// isolated; Dispatch itself never fails the cycle.
func (d *Dispatcher) Dispatch(ctx context.Context, events []watch.ChangeEvent) {
	if len(events) == 0 {
		return
	}
	if len(d.channels) == 0 {
		d.log.Debug("no notification channels configured; dropping events",
			logx.Int("events", len(events)))
		return
	}

	for _, ch := range d.channels {
		if err := d.limiter.Wait(ctx); err != nil {
			d.log.Warn("dispatch cancelled", logx.String("channel", ch.Name()), logx.Err(err))
			return
		}
		if err := ch.Send(ctx, events); err != nil {
			d.log.Warn("channel delivery failed",
				logx.String("channel", ch.Name()), logx.Int("events", len(events)), logx.Err(err))
			continue
		}
		d.log.Info("notification sent",
			logx.String("channel", ch.Name()), logx.Int("events", len(events)))
	}
}

// capEvents applies the per-message list cap; dropped is logged by callers.
func capEvents(events []watch.ChangeEvent) (kept []watch.ChangeEvent, dropped int) {
	if len(events) <= maxListFields {
		return events, 0
	}
	return events[:maxListFields], len(events) - maxListFields
}
