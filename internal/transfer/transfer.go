// Package transfer delivers qualified call handoffs to the human agent
// channel: a webhook for the dialer integration and an SMS heads-up for the
// agent on shift.
package transfer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/qualivoice/qualivoice/internal/models"
)

// Notifier delivers one handoff notification to a single channel.
type Notifier interface {
	NotifyHandoff(ctx context.Context, req models.HandoffRequest) error
}

// Dispatcher fans a handoff out to every configured notifier. A channel
// failure is logged and does not block the others; the call itself proceeds
// to transfer regardless.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a dispatcher over the given notifiers.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// NotifyHandoff delivers the handoff to all channels and returns the joined
// errors of any that failed.
func (d *Dispatcher) NotifyHandoff(ctx context.Context, req models.HandoffRequest) error {
	var errs []error
	for _, n := range d.notifiers {
		if err := n.NotifyHandoff(ctx, req); err != nil {
			slog.Error("Dispatcher.NotifyHandoff: channel delivery failed",
				"callID", req.CallID, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Info("Dispatcher.NotifyHandoff: handoff delivered",
		"callID", req.CallID, "channels", len(d.notifiers))
	return nil
}
