// Package notify delivers outbound messages to customers and providers
// over the business's messaging channel. Delivery is best-effort with
// respect to ledger writes: callers fire and forget, and a failed send
// never rolls back a persisted record.
package notify

import "context"

// Notifier sends a text message to a phone number.
type Notifier interface {
	Send(ctx context.Context, phone, text string) error
}
