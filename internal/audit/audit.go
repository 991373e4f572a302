// Package audit computes whether a request's evidentiary bundle is complete.
// The bundle is the record an operator needs to prove a request was properly
// verified, consented, and tracked: phone verification, session, terms
// acceptance, and lifecycle timestamps.
package audit

import "time"

// MethodWhatsAppOTP is the only verification channel accepted as audit evidence.
const MethodWhatsAppOTP = "WhatsApp OTP"

// Bundle carries the evidentiary fields of a request.
type Bundle struct {
	PhoneVerified      bool
	VerificationMethod string
	VerifiedAt         *time.Time
	SessionID          string
	TermsVersionID     string
	CreatedAt          time.Time
	LastStateChangeAt  time.Time
}

// Complete reports whether every part of the bundle is present. There is no
// partial credit: verification (with the exact channel), session, terms, and
// both lifecycle timestamps must all hold. The result is a pure function of
// the bundle and must be recomputed on every mutation, never hand-set.
func Complete(b Bundle) bool {
	verified := b.PhoneVerified &&
		b.VerifiedAt != nil &&
		b.VerificationMethod == MethodWhatsAppOTP

	return verified &&
		b.SessionID != "" &&
		b.TermsVersionID != "" &&
		!b.CreatedAt.IsZero() &&
		!b.LastStateChangeAt.IsZero()
}
