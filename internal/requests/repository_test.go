package requests_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/internal/audit"
	"github.com/khidma-co/khidma/internal/requests"
	"github.com/khidma-co/khidma/internal/testdb"
	"github.com/khidma-co/khidma/pkg/pagination"
	"github.com/khidma-co/khidma/pkg/routes"
)

func newStore(t *testing.T) requests.System {
	t.Helper()
	db := testdb.Open(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return requests.New(db, logger, pagination.Config{DefaultPageSize: 25, MaxPageSize: 100})
}

func verifiedIntake(service, area string) requests.CreateCommand {
	now := time.Now().UTC()
	return requests.CreateCommand{
		CustomerID:         uuid.NewString(),
		CustomerPhone:      "+974" + uuid.NewString()[:8],
		Service:            service,
		Area:               area,
		Urgency:            requests.UrgencyHigh,
		Description:        "compressor not starting",
		Source:             "whatsapp",
		PhoneVerified:      true,
		VerificationMethod: audit.MethodWhatsAppOTP,
		VerifiedAt:         &now,
		SessionID:          uuid.NewString(),
		TermsVersionID:     "terms-v1",
	}
}

func TestCreatePersistsVerifiedIntake(t *testing.T) {
	sys := newStore(t)
	ctx := context.Background()

	created, err := sys.Create(ctx, verifiedIntake("AC Repair", "Doha"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != requests.StatusNew {
		t.Errorf("status = %q, want %q", created.Status, requests.StatusNew)
	}
	if !created.AuditBundleComplete {
		t.Error("expected a complete audit bundle for fully verified intake")
	}

	found, err := sys.Find(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.CustomerPhone != created.CustomerPhone {
		t.Errorf("customer phone = %q, want %q", found.CustomerPhone, created.CustomerPhone)
	}
}

func TestTransitionRejectsInvalidStep(t *testing.T) {
	sys := newStore(t)
	ctx := context.Background()

	created, err := sys.Create(ctx, verifiedIntake("Plumbing", "Al Rayyan"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = sys.Transition(ctx, created.ID, requests.StatusCompleted, requests.Patch{})
	if !errors.Is(err, requests.ErrInvalidTransition) {
		t.Fatalf("New -> Completed error = %v, want ErrInvalidTransition", err)
	}

	found, err := sys.Find(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Status != requests.StatusNew {
		t.Errorf("status = %q after rejected transition, want %q", found.Status, requests.StatusNew)
	}
}

// A transition request may carry a patch, but assignment is not part of
// the patch surface: an assigned_provider_id key in the body must be
// ignored all the way down to the row.
func TestTransitionEndpointCannotAssignProvider(t *testing.T) {
	sys := newStore(t)
	ctx := context.Background()

	created, err := sys.Create(ctx, verifiedIntake("Electrical", "Al Wakrah"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().Routes())
	server := httptest.NewServer(mux)
	defer server.Close()

	body := fmt.Sprintf(
		`{"status":%q,"patch":{"urgency":"Flexible","assigned_provider_id":%q}}`,
		requests.StatusBroadcasted, uuid.NewString(),
	)
	resp, err := http.Post(
		server.URL+"/requests/"+created.ID.String()+"/transition",
		"application/json",
		strings.NewReader(body),
	)
	if err != nil {
		t.Fatalf("post transition: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	found, err := sys.Find(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Status != requests.StatusBroadcasted {
		t.Errorf("status = %q, want %q", found.Status, requests.StatusBroadcasted)
	}
	if found.Urgency != requests.UrgencyFlexible {
		t.Errorf("urgency = %q, want %q", found.Urgency, requests.UrgencyFlexible)
	}
	if found.AssignedProviderID != nil {
		t.Errorf("assigned provider = %v, want nil", found.AssignedProviderID)
	}
	if found.BroadcastedAt == nil {
		t.Error("expected broadcasted_at to be stamped")
	}
}
