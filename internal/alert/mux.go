package alert

import (
	"context"

	"go.uber.org/zap"

	"github.com/aromano/pricewatch/internal/tracker"
)

// Mux fans a message out to every configured transport. Delivery failures
// are logged and never propagated, so a broken bot token cannot stall a
// tracking cycle.
type Mux struct {
	logger    *zap.Logger
	notifiers []tracker.Notifier
}

// NewMux builds a fan-out notifier over the given transports.
func NewMux(logger *zap.Logger, notifiers ...tracker.Notifier) *Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mux{logger: logger, notifiers: notifiers}
}

// Send implements tracker.Notifier. It always returns nil.
func (m *Mux) Send(ctx context.Context, message string) error {
	for _, n := range m.notifiers {
		if err := n.Send(ctx, message); err != nil {
			m.logger.Warn("alert delivery failed",
				zap.Error(err),
			)
		}
	}
	return nil
}

// Len reports the number of configured transports.
func (m *Mux) Len() int {
	return len(m.notifiers)
}
