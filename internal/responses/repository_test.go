package responses_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/internal/audit"
	"github.com/khidma-co/khidma/internal/broadcasts"
	"github.com/khidma-co/khidma/internal/notify"
	"github.com/khidma-co/khidma/internal/providers"
	"github.com/khidma-co/khidma/internal/requests"
	"github.com/khidma-co/khidma/internal/responses"
	"github.com/khidma-co/khidma/internal/testdb"
	"github.com/khidma-co/khidma/pkg/pagination"
)

type domain struct {
	db         *sql.DB
	requests   requests.System
	responses  responses.System
	broadcasts broadcasts.System
	providers  providers.System
}

func newDomain(t *testing.T) domain {
	t.Helper()
	db := testdb.Open(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pag := pagination.Config{DefaultPageSize: 25, MaxPageSize: 100}
	notifier := notify.NewNoop(logger)

	reqs := requests.New(db, logger, pag)
	return domain{
		db:         db,
		requests:   reqs,
		responses:  responses.New(db, notifier, logger, pag),
		broadcasts: broadcasts.New(db, reqs, notifier, logger, pag),
		providers:  providers.New(db, logger, pag, 3),
	}
}

func (d domain) seedProvider(t *testing.T, name string, services, areas []string) *providers.Provider {
	t.Helper()
	p, err := d.providers.Apply(context.Background(), providers.ApplyCommand{
		CompanyName:   name,
		CRNumber:      "CR-" + uuid.NewString(),
		ContactPhone:  "+974" + uuid.NewString()[:8],
		Services:      services,
		CoverageAreas: areas,
	})
	if err != nil {
		t.Fatalf("seed provider %s: %v", name, err)
	}
	return p
}

func (d domain) newRequest(t *testing.T, service, area string) *requests.Request {
	t.Helper()
	now := time.Now().UTC()
	req, err := d.requests.Create(context.Background(), requests.CreateCommand{
		CustomerID:         uuid.NewString(),
		CustomerPhone:      "+974" + uuid.NewString()[:8],
		Service:            service,
		Area:               area,
		Urgency:            requests.UrgencyHigh,
		Source:             "whatsapp",
		PhoneVerified:      true,
		VerificationMethod: audit.MethodWhatsAppOTP,
		VerifiedAt:         &now,
		SessionID:          uuid.NewString(),
		TermsVersionID:     "terms-v1",
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

func (d domain) broadcastedRequest(t *testing.T, service, area string) *requests.Request {
	t.Helper()
	req := d.newRequest(t, service, area)
	prepared := true
	moved, err := d.requests.Transition(
		context.Background(), req.ID, requests.StatusBroadcasted,
		requests.Patch{BroadcastPrepared: &prepared},
	)
	if err != nil {
		t.Fatalf("broadcast request: %v", err)
	}
	return moved
}

func (d domain) reply(t *testing.T, requestID uuid.UUID, p *providers.Provider, message string) *responses.Response {
	t.Helper()
	resp, err := d.responses.Classify(context.Background(), responses.ClassifyCommand{
		RequestID:     requestID,
		ProviderID:    &p.ID,
		ProviderName:  p.CompanyName,
		ProviderPhone: p.ContactPhone,
		Message:       message,
		Channel:       "whatsapp",
	})
	if err != nil {
		t.Fatalf("classify reply from %s: %v", p.CompanyName, err)
	}
	return resp
}

func TestConfirmPromotesWinnerAndDemotesSiblings(t *testing.T) {
	d := newDomain(t)
	ctx := context.Background()

	req := d.broadcastedRequest(t, "AC Repair", "Doha")
	first := d.seedProvider(t, "CoolFix", []string{"AC Repair"}, []string{"Doha"})
	second := d.seedProvider(t, "ChillServe", []string{"AC Repair"}, []string{"Doha"})

	winner := d.reply(t, req.ID, first, "YES")
	if winner.Status != responses.StatusEligible || !winner.IsFirst {
		t.Fatalf("first reply = %q/first=%v, want Eligible/true", winner.Status, winner.IsFirst)
	}
	runnerUp := d.reply(t, req.ID, second, "yes")
	if runnerUp.Status != responses.StatusWaitlisted {
		t.Fatalf("second reply = %q, want %q", runnerUp.Status, responses.StatusWaitlisted)
	}

	confirmed, err := d.responses.Confirm(ctx, winner.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != responses.StatusConfirmed {
		t.Errorf("status = %q, want %q", confirmed.Status, responses.StatusConfirmed)
	}
	if !confirmed.IsLocked {
		t.Error("expected confirmed response to be locked")
	}

	siblings, err := d.responses.ListByRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("list by request: %v", err)
	}
	for _, s := range siblings {
		if s.ID == winner.ID {
			continue
		}
		if s.Status != responses.StatusWaitlisted {
			t.Errorf("sibling %s status = %q, want %q", s.ProviderName, s.Status, responses.StatusWaitlisted)
		}
	}

	parent, err := d.requests.Find(ctx, req.ID)
	if err != nil {
		t.Fatalf("find parent: %v", err)
	}
	if parent.Status != requests.StatusInProgress {
		t.Errorf("parent status = %q, want %q", parent.Status, requests.StatusInProgress)
	}
	if parent.AssignedProviderID == nil || *parent.AssignedProviderID != first.ID {
		t.Errorf("assigned provider = %v, want %s", parent.AssignedProviderID, first.ID)
	}
}

func TestConfirmRejectsNonEligibleResponse(t *testing.T) {
	d := newDomain(t)

	req := d.broadcastedRequest(t, "Plumbing", "Al Wakrah")
	p := d.seedProvider(t, "PipeWorks", []string{"Plumbing"}, []string{"Al Wakrah"})

	invalid := d.reply(t, req.ID, p, "maybe next week")
	if invalid.Status != responses.StatusInvalid {
		t.Fatalf("reply = %q, want %q", invalid.Status, responses.StatusInvalid)
	}

	if _, err := d.responses.Confirm(context.Background(), invalid.ID); !errors.Is(err, responses.ErrNotEligible) {
		t.Fatalf("confirm error = %v, want ErrNotEligible", err)
	}
}

func TestOverrideRejectedWhenLocked(t *testing.T) {
	d := newDomain(t)
	ctx := context.Background()

	req := d.broadcastedRequest(t, "Electrical", "Lusail")
	assigned := d.seedProvider(t, "VoltCo", []string{"Electrical"}, []string{"Lusail"})
	other := d.seedProvider(t, "AmpWorks", []string{"Electrical"}, []string{"Lusail"})

	winner := d.reply(t, req.ID, assigned, "YES")
	if _, err := d.responses.Confirm(ctx, winner.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	_, err := d.responses.Override(ctx, responses.OverrideCommand{
		RequestID:  req.ID,
		ProviderID: other.ID,
		Reason:     "customer asked for a different company",
	})
	if !errors.Is(err, requests.ErrRequestLocked) {
		t.Fatalf("override error = %v, want ErrRequestLocked", err)
	}

	parent, err := d.requests.Find(ctx, req.ID)
	if err != nil {
		t.Fatalf("find parent: %v", err)
	}
	if parent.AssignedProviderID == nil || *parent.AssignedProviderID != assigned.ID {
		t.Errorf("assigned provider = %v after rejected override, want %s", parent.AssignedProviderID, assigned.ID)
	}
}

func TestOverrideSupersedesEligibleReply(t *testing.T) {
	d := newDomain(t)
	ctx := context.Background()

	req := d.broadcastedRequest(t, "Cleaning", "Al Khor")
	fastest := d.seedProvider(t, "SpotLess", []string{"Cleaning"}, []string{"Al Khor"})
	chosen := d.seedProvider(t, "ShinePro", []string{"Cleaning"}, []string{"Al Khor"})

	winner := d.reply(t, req.ID, fastest, "AVAILABLE")
	if winner.Status != responses.StatusEligible {
		t.Fatalf("reply = %q, want %q", winner.Status, responses.StatusEligible)
	}

	manual, err := d.responses.Override(ctx, responses.OverrideCommand{
		RequestID:  req.ID,
		ProviderID: chosen.ID,
		Reason:     "customer preference",
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if manual.Status != responses.StatusConfirmed {
		t.Errorf("override status = %q, want %q", manual.Status, responses.StatusConfirmed)
	}
	if manual.AssignmentMethod != responses.MethodManual {
		t.Errorf("assignment method = %q, want %q", manual.AssignmentMethod, responses.MethodManual)
	}
	if manual.OverrideReason == nil || *manual.OverrideReason != "customer preference" {
		t.Errorf("override reason = %v, want %q", manual.OverrideReason, "customer preference")
	}

	demoted, err := d.responses.Find(ctx, winner.ID)
	if err != nil {
		t.Fatalf("find superseded reply: %v", err)
	}
	if demoted.Status != responses.StatusWaitlisted {
		t.Errorf("superseded status = %q, want %q", demoted.Status, responses.StatusWaitlisted)
	}

	parent, err := d.requests.Find(ctx, req.ID)
	if err != nil {
		t.Fatalf("find parent: %v", err)
	}
	if parent.Status != requests.StatusInProgress {
		t.Errorf("parent status = %q, want %q", parent.Status, requests.StatusInProgress)
	}
	if parent.AssignedProviderID == nil || *parent.AssignedProviderID != chosen.ID {
		t.Errorf("assigned provider = %v, want %s", parent.AssignedProviderID, chosen.ID)
	}
}

func TestClassifyRepeatReplyReturnsOriginal(t *testing.T) {
	d := newDomain(t)

	req := d.broadcastedRequest(t, "Pest Control", "Al Rayyan")
	p := d.seedProvider(t, "BugOff", []string{"Pest Control"}, []string{"Al Rayyan"})

	first := d.reply(t, req.ID, p, "YES")
	again := d.reply(t, req.ID, p, "YES")
	if again.ID != first.ID {
		t.Errorf("repeat reply created a new record: %s vs %s", again.ID, first.ID)
	}
	if again.Status != first.Status {
		t.Errorf("repeat reply status = %q, want %q", again.Status, first.Status)
	}
}

// Full coordination pass: verified intake, committed broadcast, two
// competing replies, confirmation, lock enforcement, completion.
func TestAssignmentLifecycleEndToEnd(t *testing.T) {
	d := newDomain(t)
	ctx := context.Background()

	req := d.newRequest(t, "AC Repair", "Doha")
	companyA := d.seedProvider(t, "Arctic Air", []string{"AC Repair"}, []string{"Doha"})
	companyB := d.seedProvider(t, "Breeze Tech", []string{"AC Repair"}, []string{"Doha"})

	cast, err := d.broadcasts.Commit(ctx, broadcasts.CommitCommand{
		RequestID:   req.ID,
		MessageText: "AC Repair needed in Doha, urgency High",
		TargetGroup: "doha-ac",
	})
	if err != nil {
		t.Fatalf("commit broadcast: %v", err)
	}
	if cast.Version != 1 {
		t.Fatalf("broadcast version = %d, want 1", cast.Version)
	}

	afterCast, err := d.requests.Find(ctx, req.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if afterCast.Status != requests.StatusBroadcasted {
		t.Fatalf("status = %q, want %q", afterCast.Status, requests.StatusBroadcasted)
	}
	if afterCast.BroadcastedAt == nil {
		t.Fatal("expected broadcasted_at to be stamped")
	}

	replyA := d.reply(t, req.ID, companyA, "YES")
	if replyA.Status != responses.StatusEligible || !replyA.IsFirst {
		t.Fatalf("reply A = %q/first=%v, want Eligible/true", replyA.Status, replyA.IsFirst)
	}
	replyB := d.reply(t, req.ID, companyB, "YES")
	if replyB.Status != responses.StatusWaitlisted {
		t.Fatalf("reply B = %q, want %q", replyB.Status, responses.StatusWaitlisted)
	}

	if _, err := d.responses.Confirm(ctx, replyA.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	assigned, err := d.requests.Find(ctx, req.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if assigned.Status != requests.StatusInProgress {
		t.Fatalf("status = %q, want %q", assigned.Status, requests.StatusInProgress)
	}
	if assigned.AssignedProviderID == nil || *assigned.AssignedProviderID != companyA.ID {
		t.Fatalf("assigned provider = %v, want %s", assigned.AssignedProviderID, companyA.ID)
	}

	// The assignment lock forbids re-broadcasting an in-progress request.
	_, err = d.requests.Transition(ctx, req.ID, requests.StatusBroadcasted, requests.Patch{})
	if !errors.Is(err, requests.ErrRequestLocked) {
		t.Fatalf("re-broadcast error = %v, want ErrRequestLocked", err)
	}
	still, err := d.requests.Find(ctx, req.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if still.Status != requests.StatusInProgress {
		t.Fatalf("status = %q after rejected re-broadcast, want %q", still.Status, requests.StatusInProgress)
	}

	done, err := d.requests.Transition(ctx, req.ID, requests.StatusCompleted, requests.Patch{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != requests.StatusCompleted {
		t.Fatalf("status = %q, want %q", done.Status, requests.StatusCompleted)
	}
	if done.AssignedProviderID == nil || *done.AssignedProviderID != companyA.ID {
		t.Errorf("assignment lost on completion: %v", done.AssignedProviderID)
	}
}
