package requests_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/khidma-co/khidma/internal/requests"
)

func TestLifecyclePath(t *testing.T) {
	path := []string{
		requests.StatusNew,
		requests.StatusBroadcasted,
		requests.StatusProviderConfirmed,
		requests.StatusInProgress,
		requests.StatusCompleted,
	}

	for i := 0; i < len(path)-1; i++ {
		if !requests.CanTransition(path[i], path[i+1]) {
			t.Errorf("%s -> %s should be permitted", path[i], path[i+1])
		}
	}
}

func TestDroppedFromAnyNonTerminal(t *testing.T) {
	for _, from := range []string{
		requests.StatusNew,
		requests.StatusBroadcasted,
		requests.StatusProviderConfirmed,
		requests.StatusInProgress,
	} {
		if !requests.CanTransition(from, requests.StatusDropped) {
			t.Errorf("%s -> Dropped should be permitted", from)
		}
	}
}

func TestCompletedOnlyFromInProgress(t *testing.T) {
	for _, from := range []string{
		requests.StatusNew,
		requests.StatusBroadcasted,
		requests.StatusProviderConfirmed,
		requests.StatusDropped,
	} {
		if requests.CanTransition(from, requests.StatusCompleted) {
			t.Errorf("%s -> Completed should be rejected", from)
		}
	}

	if !requests.CanTransition(requests.StatusInProgress, requests.StatusCompleted) {
		t.Error("In Progress -> Completed should be permitted")
	}
}

func TestLockPermanence(t *testing.T) {
	for _, to := range []string{
		requests.StatusNew,
		requests.StatusBroadcasted,
		requests.StatusProviderConfirmed,
	} {
		if requests.CanTransition(requests.StatusInProgress, to) {
			t.Errorf("In Progress -> %s should be rejected", to)
		}
	}
}

func TestTerminalStatesPermitNothing(t *testing.T) {
	all := []string{
		requests.StatusNew,
		requests.StatusBroadcasted,
		requests.StatusProviderConfirmed,
		requests.StatusInProgress,
		requests.StatusCompleted,
		requests.StatusDropped,
	}

	for _, terminal := range []string{requests.StatusCompleted, requests.StatusDropped} {
		for _, to := range all {
			if requests.CanTransition(terminal, to) {
				t.Errorf("%s -> %s should be rejected", terminal, to)
			}
		}
	}
}

func TestRepeatBroadcastPermitted(t *testing.T) {
	if !requests.CanTransition(requests.StatusBroadcasted, requests.StatusBroadcasted) {
		t.Error("repeat broadcast should remain a valid transition")
	}
}

func TestIsLocked(t *testing.T) {
	locked := map[string]bool{
		requests.StatusNew:               false,
		requests.StatusBroadcasted:       false,
		requests.StatusProviderConfirmed: false,
		requests.StatusInProgress:        true,
		requests.StatusCompleted:         true,
		requests.StatusDropped:           true,
	}

	for status, want := range locked {
		if got := requests.IsLocked(status); got != want {
			t.Errorf("IsLocked(%s) = %v, want %v", status, got, want)
		}
	}
}

// A transition patch must not be able to smuggle an assignment onto an
// unlocked request; assigned_provider_id is owned by the arbiter's confirm
// and override paths.
func TestPatchCarriesNoAssignment(t *testing.T) {
	body := `{
		"urgency": "High",
		"assigned_provider_id": "0d4de31c-1a2f-4e47-9d8e-6f3a2b1c0d9e"
	}`

	var patch requests.Patch
	if err := json.Unmarshal([]byte(body), &patch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if patch.Urgency == nil || *patch.Urgency != "High" {
		t.Errorf("urgency = %v, want High", patch.Urgency)
	}

	out, err := json.Marshal(patch)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "assigned_provider_id") {
		t.Errorf("patch must not carry an assignment, got %s", out)
	}
}

func TestValidUrgency(t *testing.T) {
	for _, u := range []string{requests.UrgencyHigh, requests.UrgencyNormal, requests.UrgencyFlexible} {
		if !requests.ValidUrgency(u) {
			t.Errorf("ValidUrgency(%s) = false, want true", u)
		}
	}

	if requests.ValidUrgency("Immediate") {
		t.Error("unknown urgency should be invalid")
	}
}
