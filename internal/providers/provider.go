// Package providers implements the governance engine for provider companies:
// application intake, conduct flags, disputes, feedback, and standing
// demotion when conduct thresholds are crossed.
package providers

import (
	"time"

	"github.com/google/uuid"
)

// Provider standings. Demotion to Observed is automatic and monotonic;
// every other change is an explicit administrative action.
const (
	StatusActive   = "Active"
	StatusObserved = "Observed"
	StatusPaused   = "Paused"
	StatusRemoved  = "Removed"
)

// Flag kinds recorded in the governance ledger. Only conduct flags count
// toward the demotion threshold; disputes feed the risk dashboard.
const (
	KindConduct = "conduct"
	KindDispute = "dispute"
)

// Provider represents a company eligible to receive broadcasts.
type Provider struct {
	ID            uuid.UUID `json:"id"`
	CompanyName   string    `json:"company_name"`
	CRNumber      string    `json:"cr_number"`
	ContactPhone  string    `json:"contact_phone"`
	Services      []string  `json:"services"`
	CoverageAreas []string  `json:"coverage_areas"`
	Status        string    `json:"status"`
	ResponseRate  float64   `json:"response_rate"`
	ConductScore  float64   `json:"conduct_score"`
	ConductFlags  int       `json:"conduct_flags"`
	Disputes      int       `json:"disputes"`
	CreatedAt     time.Time `json:"created_at"`
}

// Flag is one append-only governance record against a provider.
type Flag struct {
	ID         uuid.UUID  `json:"id"`
	ProviderID uuid.UUID  `json:"provider_id"`
	RequestID  *uuid.UUID `json:"request_id"`
	Kind       string     `json:"kind"`
	Reason     string     `json:"reason"`
	Severity   string     `json:"severity"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Feedback is one append-only customer rating against a provider.
type Feedback struct {
	ID         uuid.UUID  `json:"id"`
	ProviderID uuid.UUID  `json:"provider_id"`
	RequestID  *uuid.UUID `json:"request_id"`
	Rating     int        `json:"rating"`
	Comment    string     `json:"comment"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ApplyCommand carries a provider application for intake.
type ApplyCommand struct {
	CompanyName   string   `json:"company_name"`
	CRNumber      string   `json:"cr_number"`
	ContactPhone  string   `json:"contact_phone"`
	Services      []string `json:"services"`
	CoverageAreas []string `json:"coverage_areas"`
}

// FlagCommand carries one conduct flag to raise against a provider.
type FlagCommand struct {
	ProviderID uuid.UUID  `json:"provider_id"`
	RequestID  *uuid.UUID `json:"request_id"`
	Reason     string     `json:"reason"`
	Severity   string     `json:"severity"`
}

// DisputeCommand carries one dispute record against a provider.
type DisputeCommand struct {
	ProviderID uuid.UUID  `json:"provider_id"`
	RequestID  *uuid.UUID `json:"request_id"`
	Reason     string     `json:"reason"`
}

// FeedbackCommand carries one customer rating against a provider.
type FeedbackCommand struct {
	ProviderID uuid.UUID  `json:"provider_id"`
	RequestID  *uuid.UUID `json:"request_id"`
	Rating     int        `json:"rating"`
	Comment    string     `json:"comment"`
}
