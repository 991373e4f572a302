package ops

import (
	"math"
	"time"

	"github.com/khidma-co/khidma/internal/providers"
	"github.com/khidma-co/khidma/internal/requests"
)

// ComputeAttention flags requests crossing the staleness thresholds:
// verified New requests nobody broadcast, broadcasts with zero replies,
// and confirmations that never started.
func ComputeAttention(s Snapshot, th Thresholds, now time.Time) Attention {
	items := make([]AttentionItem, 0)

	for _, r := range s.Requests {
		switch r.Status {
		case requests.StatusNew:
			if !r.PhoneVerified {
				continue
			}
			if age := now.Sub(r.CreatedAt); age > th.StuckNew {
				items = append(items, AttentionItem{
					RequestID: r.ID,
					Signal:    SignalStuckNew,
					Status:    r.Status,
					Age:       age,
				})
			}
		case requests.StatusBroadcasted:
			if r.ResponseCount > 0 {
				continue
			}
			if age := now.Sub(r.LastStateChangeAt); age > th.SilentBroadcast {
				items = append(items, AttentionItem{
					RequestID: r.ID,
					Signal:    SignalSilentBroadcast,
					Status:    r.Status,
					Age:       age,
				})
			}
		case requests.StatusProviderConfirmed:
			if age := now.Sub(r.LastStateChangeAt); age > th.StalledConfirmation {
				items = append(items, AttentionItem{
					RequestID: r.ID,
					Signal:    SignalStalledConfirmation,
					Status:    r.Status,
					Age:       age,
				})
			}
		}
	}

	return Attention{Items: items, Total: len(items)}
}

// ComputeFlow tallies the pipeline by status and today's throughput in the
// snapshot's wall-clock day (UTC).
func ComputeFlow(s Snapshot, now time.Time) Flow {
	flow := Flow{ByStatus: make(map[string]int)}
	year, month, day := now.UTC().Date()

	for _, r := range s.Requests {
		flow.ByStatus[r.Status]++

		cy, cm, cd := r.CreatedAt.UTC().Date()
		if cy == year && cm == month && cd == day {
			flow.CreatedToday++
		}

		if r.Status == requests.StatusCompleted {
			ly, lm, ld := r.LastStateChangeAt.UTC().Date()
			if ly == year && lm == month && ld == day {
				flow.CompletedToday++
			}
		}
	}

	return flow
}

// ComputeRisk lists providers one flag below demotion, providers inside the
// response-rate warning band, and the open dispute total.
func ComputeRisk(s Snapshot, th Thresholds) Risk {
	risk := Risk{
		ConductWatch:  make([]ProviderRisk, 0),
		ResponseWatch: make([]ProviderRisk, 0),
	}

	for _, p := range s.Providers {
		if p.Status == providers.StatusRemoved {
			continue
		}

		entry := ProviderRisk{
			ProviderID:   p.ID,
			CompanyName:  p.CompanyName,
			ConductFlags: p.ConductFlags,
			ResponseRate: p.ResponseRate,
		}

		if p.ConductFlags == th.FlagThreshold-1 {
			risk.ConductWatch = append(risk.ConductWatch, entry)
		}

		if p.ResponseRate >= th.RateFloor && p.ResponseRate < th.RateTarget {
			risk.ResponseWatch = append(risk.ResponseWatch, entry)
		}

		risk.OpenDisputes += p.Disputes
	}

	return risk
}

// ComputeIntegrity returns the verified-request percentage, defaulting to
// 100 on an empty snapshot.
func ComputeIntegrity(s Snapshot) Integrity {
	total := len(s.Requests)
	if total == 0 {
		return Integrity{Score: 100}
	}

	verified := 0
	for _, r := range s.Requests {
		if r.PhoneVerified {
			verified++
		}
	}

	return Integrity{
		Score:    int(math.Round(100 * float64(verified) / float64(total))),
		Verified: verified,
		Total:    total,
	}
}

// ComputeAudit reports readiness: every request's bundle complete, vacuously
// true for an empty snapshot.
func ComputeAudit(s Snapshot) Audit {
	audit := Audit{Ready: true, Total: len(s.Requests)}

	for _, r := range s.Requests {
		if !r.AuditBundleComplete {
			audit.Ready = false
			audit.Incomplete++
		}
	}

	return audit
}
