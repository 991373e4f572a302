package responses

import "strings"

// acceptanceVocabulary holds the tokens a provider reply must match, after
// normalization, to compete for the assignment lock. Anything else is a
// terminal Invalid Response classification.
var acceptanceVocabulary = map[string]struct{}{
	"YES":       {},
	"AVAILABLE": {},
	"READY":     {},
}

// Normalize trims surrounding whitespace and upper-cases a reply for
// vocabulary comparison.
func Normalize(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}

// Accepts reports whether a raw reply matches the acceptance vocabulary.
func Accepts(text string) bool {
	_, ok := acceptanceVocabulary[Normalize(text)]
	return ok
}

// Arbitrate returns the classification and first-reply flag for a new reply,
// given whether the request already has a response holding Eligible or
// Confirmed. The caller must evaluate hasWinner and persist the result inside
// one serialized critical section per request; the check and the write
// together are the lock.
func Arbitrate(text string, hasWinner bool) (status string, isFirst bool) {
	if !Accepts(text) {
		return StatusInvalid, false
	}
	if hasWinner {
		return StatusWaitlisted, false
	}
	return StatusEligible, true
}
