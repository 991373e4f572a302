package requests

import (
	"encoding/json"
	"net/url"

	"github.com/khidma-co/khidma/pkg/query"
	"github.com/khidma-co/khidma/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "requests", "r").
	Project("id", "ID").
	Project("customer_id", "CustomerID").
	Project("customer_phone", "CustomerPhone").
	Project("service", "Service").
	Project("sub_service", "SubService").
	Project("area", "Area").
	Project("urgency", "Urgency").
	Project("description", "Description").
	Project("source", "Source").
	Project("status", "Status").
	Project("phone_verified", "PhoneVerified").
	Project("verification_method", "VerificationMethod").
	Project("verified_at", "VerifiedAt").
	Project("session_id", "SessionID").
	Project("terms_version_id", "TermsVersionID").
	Project("broadcast_prepared", "BroadcastPrepared").
	Project("broadcasted_at", "BroadcastedAt").
	Project("assigned_provider_id", "AssignedProviderID").
	Project("audit_bundle_complete", "AuditBundleComplete").
	Project("flags", "Flags").
	Project("created_at", "CreatedAt").
	Project("last_state_change_at", "LastStateChangeAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// returningColumns lists the bare column names, in scanRequest order, for
// INSERT … RETURNING statements where the projection alias is not in scope.
const returningColumns = `id, customer_id, customer_phone, service, sub_service, area,
	urgency, description, source, status, phone_verified, verification_method,
	verified_at, session_id, terms_version_id, broadcast_prepared, broadcasted_at,
	assigned_provider_id, audit_bundle_complete, flags, created_at, last_state_change_at`

// Filters contains optional filtering criteria for request queries.
// Nil fields are ignored. Status, Area, Service, Urgency, and
// CustomerPhone use exact matching; Description uses contains matching.
type Filters struct {
	Status        *string `json:"status,omitempty"`
	Area          *string `json:"area,omitempty"`
	Service       *string `json:"service,omitempty"`
	Urgency       *string `json:"urgency,omitempty"`
	CustomerPhone *string `json:"customer_phone,omitempty"`
	Description   *string `json:"description,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("Area", f.Area).
		WhereEquals("Service", f.Service).
		WhereEquals("Urgency", f.Urgency).
		WhereEquals("CustomerPhone", f.CustomerPhone).
		WhereContains("Description", f.Description)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if a := values.Get("area"); a != "" {
		f.Area = &a
	}

	if sv := values.Get("service"); sv != "" {
		f.Service = &sv
	}

	if u := values.Get("urgency"); u != "" {
		f.Urgency = &u
	}

	if p := values.Get("customer_phone"); p != "" {
		f.CustomerPhone = &p
	}

	if d := values.Get("description"); d != "" {
		f.Description = &d
	}

	return f
}

func scanRequest(s repository.Scanner) (Request, error) {
	var (
		r        Request
		rawFlags []byte
	)

	err := s.Scan(
		&r.ID,
		&r.CustomerID,
		&r.CustomerPhone,
		&r.Service,
		&r.SubService,
		&r.Area,
		&r.Urgency,
		&r.Description,
		&r.Source,
		&r.Status,
		&r.PhoneVerified,
		&r.VerificationMethod,
		&r.VerifiedAt,
		&r.SessionID,
		&r.TermsVersionID,
		&r.BroadcastPrepared,
		&r.BroadcastedAt,
		&r.AssignedProviderID,
		&r.AuditBundleComplete,
		&rawFlags,
		&r.CreatedAt,
		&r.LastStateChangeAt,
	)
	if err != nil {
		return r, err
	}

	if len(rawFlags) > 0 {
		if err := json.Unmarshal(rawFlags, &r.Flags); err != nil {
			return r, err
		}
	}
	if r.Flags == nil {
		r.Flags = []string{}
	}

	return r, nil
}

func marshalFlags(flags []string) ([]byte, error) {
	if flags == nil {
		flags = []string{}
	}
	return json.Marshal(flags)
}
