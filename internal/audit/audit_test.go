package audit_test

import (
	"testing"
	"time"

	"github.com/khidma-co/khidma/internal/audit"
)

func completeBundle() audit.Bundle {
	now := time.Now()
	return audit.Bundle{
		PhoneVerified:      true,
		VerificationMethod: audit.MethodWhatsAppOTP,
		VerifiedAt:         &now,
		SessionID:          "sess-1",
		TermsVersionID:     "terms-v2",
		CreatedAt:          now,
		LastStateChangeAt:  now,
	}
}

func TestCompleteBundle(t *testing.T) {
	if !audit.Complete(completeBundle()) {
		t.Error("complete bundle should report complete")
	}
}

func TestEachConditionMandatory(t *testing.T) {
	cases := map[string]func(*audit.Bundle){
		"phone not verified":   func(b *audit.Bundle) { b.PhoneVerified = false },
		"missing verified_at":  func(b *audit.Bundle) { b.VerifiedAt = nil },
		"wrong method":         func(b *audit.Bundle) { b.VerificationMethod = "SMS OTP" },
		"empty session":        func(b *audit.Bundle) { b.SessionID = "" },
		"empty terms version":  func(b *audit.Bundle) { b.TermsVersionID = "" },
		"zero created_at":      func(b *audit.Bundle) { b.CreatedAt = time.Time{} },
		"zero last transition": func(b *audit.Bundle) { b.LastStateChangeAt = time.Time{} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			b := completeBundle()
			mutate(&b)
			if audit.Complete(b) {
				t.Errorf("bundle with %s should be incomplete", name)
			}
		})
	}
}

func TestMethodMatchIsExact(t *testing.T) {
	b := completeBundle()
	b.VerificationMethod = "whatsapp otp"
	if audit.Complete(b) {
		t.Error("verification method comparison must be exact")
	}
}
