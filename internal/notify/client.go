package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/khidma-co/khidma/internal/config"
	"github.com/khidma-co/khidma/pkg/metrics"
)

type client struct {
	rest       *resty.Client
	sender     string
	maxElapsed func() backoff.BackOff
	logger     *slog.Logger
}

type sendPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// New creates a Notifier from the notify configuration. When the channel is
// disabled it returns a log-only notifier for local development and tests.
func New(cfg *config.NotifyConfig, logger *slog.Logger) Notifier {
	if !cfg.Enabled {
		return NewNoop(logger)
	}

	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.TimeoutDuration()).
		SetHeader("Authorization", "Bearer "+cfg.APIKey)

	maxElapsed := cfg.MaxElapsedDuration()

	return &client{
		rest:   rest,
		sender: cfg.Sender,
		maxElapsed: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = maxElapsed
			return bo
		},
		logger: logger.With("system", "notify"),
	}
}

// Send posts the message to the channel gateway with exponential backoff.
// Every attempt for one message carries the same idempotency key, so gateway
// redelivery under at-least-once semantics collapses to a single display.
func (c *client) Send(ctx context.Context, phone, text string) error {
	key := uuid.NewString()

	operation := func() error {
		resp, err := c.rest.R().
			SetContext(ctx).
			SetHeader("X-Idempotency-Key", key).
			SetBody(sendPayload{From: c.sender, To: phone, Body: text}).
			Post("/messages")
		if err != nil {
			return err
		}

		if resp.IsError() {
			if resp.StatusCode() >= 500 {
				return fmt.Errorf("gateway error: %s", resp.Status())
			}
			return backoff.Permanent(fmt.Errorf("gateway rejected message: %s", resp.Status()))
		}

		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(c.maxElapsed(), ctx))
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
		c.logger.Error("message delivery failed", "phone", phone, "error", err)
		return err
	}

	metrics.DeliveriesTotal.WithLabelValues("delivered").Inc()
	return nil
}
