// Package requests implements the request domain for the coordination engine.
// It owns the request lifecycle from verified intake to terminal state and
// enforces the single-assignment lock that prevents double-dispatch of a
// request that already has a committed provider.
package requests

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle statuses. A request moves New → Broadcasted → Provider Confirmed
// → In Progress → Completed; Dropped is reachable from any non-terminal state.
const (
	StatusNew               = "New"
	StatusBroadcasted       = "Broadcasted"
	StatusProviderConfirmed = "Provider Confirmed"
	StatusInProgress        = "In Progress"
	StatusCompleted         = "Completed"
	StatusDropped           = "Dropped"
)

// Urgency levels for a request.
const (
	UrgencyHigh     = "High"
	UrgencyNormal   = "Normal"
	UrgencyFlexible = "Flexible"
)

// Request represents one customer service need moving through the
// coordination lifecycle. Terminal requests are retained for audit,
// never deleted.
type Request struct {
	ID                  uuid.UUID  `json:"id"`
	CustomerID          string     `json:"customer_id"`
	CustomerPhone       string     `json:"customer_phone"`
	Service             string     `json:"service"`
	SubService          *string    `json:"sub_service"`
	Area                string     `json:"area"`
	Urgency             string     `json:"urgency"`
	Description         string     `json:"description"`
	Source              string     `json:"source"`
	Status              string     `json:"status"`
	PhoneVerified       bool       `json:"phone_verified"`
	VerificationMethod  string     `json:"verification_method"`
	VerifiedAt          *time.Time `json:"verified_at"`
	SessionID           string     `json:"session_id"`
	TermsVersionID      string     `json:"terms_version_id"`
	BroadcastPrepared   bool       `json:"broadcast_prepared"`
	BroadcastedAt       *time.Time `json:"broadcasted_at"`
	AssignedProviderID  *uuid.UUID `json:"assigned_provider_id"`
	AuditBundleComplete bool       `json:"audit_bundle_complete"`
	Flags               []string   `json:"flags"`
	CreatedAt           time.Time  `json:"created_at"`
	LastStateChangeAt   time.Time  `json:"last_state_change_at"`
}

// CreateCommand carries the data needed to register a new request.
// The caller is responsible for having completed the one-time-code
// challenge; Create rejects unverified phones.
type CreateCommand struct {
	CustomerID         string     `json:"customer_id"`
	CustomerPhone      string     `json:"customer_phone"`
	Service            string     `json:"service"`
	SubService         *string    `json:"sub_service"`
	Area               string     `json:"area"`
	Urgency            string     `json:"urgency"`
	Description        string     `json:"description"`
	Source             string     `json:"source"`
	PhoneVerified      bool       `json:"phone_verified"`
	VerificationMethod string     `json:"verification_method"`
	VerifiedAt         *time.Time `json:"verified_at"`
	SessionID          string     `json:"session_id"`
	TermsVersionID     string     `json:"terms_version_id"`
}

// Patch carries optional field updates applied atomically with a status
// transition. Nil fields are left unchanged; Flags, when present, are
// appended to the request's flag set. Assignment is deliberately absent:
// assigned_provider_id is written only by the arbiter's confirm and
// override paths, never through a transition.
type Patch struct {
	Urgency           *string  `json:"urgency,omitempty"`
	Description       *string  `json:"description,omitempty"`
	BroadcastPrepared *bool    `json:"broadcast_prepared,omitempty"`
	Flags             []string `json:"flags,omitempty"`
}
