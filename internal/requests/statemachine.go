package requests

// transitions maps each status to the set of statuses it may move to.
// Broadcasted permits re-entry so repeat broadcasts stay valid transitions;
// the broadcasted_at stamp is only written once.
var transitions = map[string][]string{
	StatusNew:               {StatusBroadcasted, StatusDropped},
	StatusBroadcasted:       {StatusBroadcasted, StatusProviderConfirmed, StatusInProgress, StatusDropped},
	StatusProviderConfirmed: {StatusInProgress, StatusDropped},
	StatusInProgress:        {StatusCompleted, StatusDropped},
	StatusCompleted:         {},
	StatusDropped:           {},
}

// IsTerminal reports whether a status permits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusDropped
}

// IsLocked reports whether a request with this status holds the
// single-assignment lock: a committed provider that only a terminal
// state releases.
func IsLocked(status string) bool {
	return status == StatusInProgress || IsTerminal(status)
}

// CanTransition reports whether a status change is permitted by the
// lifecycle state machine.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a recognized lifecycle status.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// ValidUrgency reports whether u is a recognized urgency level.
func ValidUrgency(u string) bool {
	switch u {
	case UrgencyHigh, UrgencyNormal, UrgencyFlexible:
		return true
	}
	return false
}
