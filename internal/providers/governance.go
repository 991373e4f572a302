package providers

// Standing returns the provider status after a conduct flag brings the
// running count to flagCount. Demotion is monotonic: an Active provider at
// or past the threshold becomes Observed, and no flag count ever promotes
// or otherwise changes a standing.
func Standing(current string, flagCount, threshold int) string {
	if current == StatusActive && flagCount >= threshold {
		return StatusObserved
	}
	return current
}

// ValidStatus reports whether s is a recognized provider standing.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusObserved, StatusPaused, StatusRemoved:
		return true
	}
	return false
}

// ValidRating reports whether a feedback rating is on the 1-5 scale.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}
