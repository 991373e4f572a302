// Package responses implements the response arbiter for the coordination
// engine. Inbound provider replies are classified against the first-valid-
// reply rule: the first reply matching the acceptance vocabulary takes the
// Eligible slot for its request, later valid replies are waitlisted, and an
// explicit administrative confirmation promotes the winner.
package responses

import (
	"time"

	"github.com/google/uuid"
)

// Classification statuses for a provider reply.
const (
	StatusEligible   = "Eligible"
	StatusWaitlisted = "Waitlisted"
	StatusConfirmed  = "Confirmed"
	StatusRejected   = "Rejected"
	StatusInvalid    = "Invalid Response"
)

// Assignment methods.
const (
	MethodAuto   = "auto"
	MethodManual = "manual"
)

// Response represents one provider reply to a broadcast, classified and
// arbitrated. For a given request at most one Response ever holds Confirmed.
type Response struct {
	ID               uuid.UUID  `json:"id"`
	RequestID        uuid.UUID  `json:"request_id"`
	ProviderID       *uuid.UUID `json:"provider_id"`
	ProviderName     string     `json:"provider_name"`
	ProviderPhone    string     `json:"provider_phone"`
	CustomerPhone    string     `json:"customer_phone"`
	Message          string     `json:"message"`
	Status           string     `json:"status"`
	IsFirst          bool       `json:"is_first"`
	Channel          string     `json:"channel"`
	AssignmentMethod string     `json:"assignment_method"`
	IsLocked         bool       `json:"is_locked"`
	OverrideReason   *string    `json:"override_reason"`
	Timestamp        time.Time  `json:"timestamp"`
}

// ClassifyCommand carries one inbound provider reply for arbitration.
type ClassifyCommand struct {
	RequestID     uuid.UUID  `json:"request_id"`
	ProviderID    *uuid.UUID `json:"provider_id"`
	ProviderName  string     `json:"provider_name"`
	ProviderPhone string     `json:"provider_phone"`
	Message       string     `json:"message"`
	Channel       string     `json:"channel"`
}

// OverrideCommand carries a manual assignment that bypasses arbitration.
type OverrideCommand struct {
	RequestID  uuid.UUID `json:"request_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Reason     string    `json:"reason"`
}
