// Package verification implements the one-time-code challenge a customer
// phone must pass before a request can be created. Codes live in an
// in-process TTL store; exhausting the allowed attempts locks the phone out
// for a governance-configured period.
package verification

import (
	"time"
)

// Session is the proof minted when a phone passes the challenge. Its id is
// recorded on the request intake and feeds the audit bundle.
type Session struct {
	Phone      string    `json:"phone"`
	SessionID  string    `json:"session_id"`
	Method     string    `json:"method"`
	VerifiedAt time.Time `json:"verified_at"`
}

// IssueCommand requests a code delivery for a phone.
type IssueCommand struct {
	Phone string `json:"phone"`
}

// CheckCommand submits a code for verification.
type CheckCommand struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// challenge is one outstanding code with its running failure count.
type challenge struct {
	code     string
	attempts int
}
