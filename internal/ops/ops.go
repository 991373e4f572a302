// Package ops implements the operational metrics engine: a read-only
// aggregation over the request, response, and provider ledgers that derives
// the attention, flow, risk, integrity, and audit dashboards from one
// consistent snapshot. Nothing here ever writes.
package ops

import (
	"time"

	"github.com/google/uuid"
)

// RequestRow is the slice of a request the dashboards need.
type RequestRow struct {
	ID                  uuid.UUID `json:"id"`
	Status              string    `json:"status"`
	PhoneVerified       bool      `json:"phone_verified"`
	AuditBundleComplete bool      `json:"audit_bundle_complete"`
	ResponseCount       int       `json:"response_count"`
	CreatedAt           time.Time `json:"created_at"`
	LastStateChangeAt   time.Time `json:"last_state_change_at"`
}

// ProviderRow is the slice of a provider the dashboards need.
type ProviderRow struct {
	ID           uuid.UUID `json:"id"`
	CompanyName  string    `json:"company_name"`
	Status       string    `json:"status"`
	ConductFlags int       `json:"conduct_flags"`
	Disputes     int       `json:"disputes"`
	ResponseRate float64   `json:"response_rate"`
}

// Snapshot is one consistent read of the ledgers. All five dashboards are
// computed from the same snapshot with no cross-mutation.
type Snapshot struct {
	Requests  []RequestRow `json:"requests"`
	Providers []ProviderRow `json:"providers"`
	TakenAt   time.Time    `json:"taken_at"`
}

// Attention signals.
const (
	SignalStuckNew            = "stuck_new"
	SignalSilentBroadcast     = "silent_broadcast"
	SignalStalledConfirmation = "stalled_confirmation"
)

// AttentionItem is one request crossing a staleness threshold.
type AttentionItem struct {
	RequestID uuid.UUID     `json:"request_id"`
	Signal    string        `json:"signal"`
	Status    string        `json:"status"`
	Age       time.Duration `json:"age"`
}

// Attention lists requests an operator should look at now.
type Attention struct {
	Items []AttentionItem `json:"items"`
	Total int             `json:"total"`
}

// Flow summarizes pipeline shape and today's throughput.
type Flow struct {
	ByStatus       map[string]int `json:"by_status"`
	CreatedToday   int            `json:"created_today"`
	CompletedToday int            `json:"completed_today"`
}

// ProviderRisk is one provider inside a risk band.
type ProviderRisk struct {
	ProviderID   uuid.UUID `json:"provider_id"`
	CompanyName  string    `json:"company_name"`
	ConductFlags int       `json:"conduct_flags"`
	ResponseRate float64   `json:"response_rate"`
}

// Risk lists providers approaching governance thresholds.
type Risk struct {
	ConductWatch  []ProviderRisk `json:"conduct_watch"`
	ResponseWatch []ProviderRisk `json:"response_watch"`
	OpenDisputes  int            `json:"open_disputes"`
}

// Integrity is the verified-request percentage.
type Integrity struct {
	Score    int `json:"score"`
	Verified int `json:"verified"`
	Total    int `json:"total"`
}

// Audit reports whether every request carries a complete evidentiary bundle.
type Audit struct {
	Ready      bool `json:"ready"`
	Incomplete int  `json:"incomplete"`
	Total      int  `json:"total"`
}

// Dashboard bundles the five independent views of one snapshot.
type Dashboard struct {
	GeneratedAt time.Time `json:"generated_at"`
	Attention   Attention `json:"attention"`
	Flow        Flow      `json:"flow"`
	Risk        Risk      `json:"risk"`
	Integrity   Integrity `json:"integrity"`
	Audit       Audit     `json:"audit"`
}

// Thresholds are the fixed operational tuning knobs, sourced from config.
type Thresholds struct {
	StuckNew            time.Duration
	SilentBroadcast     time.Duration
	StalledConfirmation time.Duration
	FlagThreshold       int
	RateFloor           float64
	RateTarget          float64
}
