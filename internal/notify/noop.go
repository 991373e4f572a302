package notify

import (
	"context"
	"log/slog"
)

type noop struct {
	logger *slog.Logger
}

// NewNoop creates a Notifier that logs deliveries instead of sending them.
func NewNoop(logger *slog.Logger) Notifier {
	return &noop{logger: logger.With("system", "notify")}
}

func (n *noop) Send(_ context.Context, phone, text string) error {
	n.logger.Info("outbound message suppressed", "phone", phone, "chars", len(text))
	return nil
}
