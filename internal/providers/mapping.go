package providers

import (
	"encoding/json"
	"net/url"

	"github.com/khidma-co/khidma/pkg/query"
	"github.com/khidma-co/khidma/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "providers", "v").
	Project("id", "ID").
	Project("company_name", "CompanyName").
	Project("cr_number", "CRNumber").
	Project("contact_phone", "ContactPhone").
	Project("services", "Services").
	Project("coverage_areas", "CoverageAreas").
	Project("status", "Status").
	Project("response_rate", "ResponseRate").
	Project("conduct_score", "ConductScore").
	Project("conduct_flags", "ConductFlags").
	Project("disputes", "Disputes").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CompanyName",
	Descending: false,
}

const returningColumns = `id, company_name, cr_number, contact_phone, services,
	coverage_areas, status, response_rate, conduct_score, conduct_flags,
	disputes, created_at`

// Filters contains optional filtering criteria for provider queries.
type Filters struct {
	Status       *string `json:"status,omitempty"`
	ContactPhone *string `json:"contact_phone,omitempty"`
	Service      *string `json:"service,omitempty"`
	Area         *string `json:"area,omitempty"`
}

// Apply adds filter conditions to a query builder. Service and area match
// against the provider's jsonb coverage arrays.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("Status", f.Status).
		WhereEquals("ContactPhone", f.ContactPhone)

	if f.Service != nil && *f.Service != "" {
		b.WhereRaw("jsonb_exists(v.services, $%d)", *f.Service)
	}

	if f.Area != nil && *f.Area != "" {
		b.WhereRaw("jsonb_exists(v.coverage_areas, $%d)", *f.Area)
	}

	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if p := values.Get("contact_phone"); p != "" {
		f.ContactPhone = &p
	}

	if s := values.Get("service"); s != "" {
		f.Service = &s
	}

	if a := values.Get("area"); a != "" {
		f.Area = &a
	}

	return f
}

func scanProvider(s repository.Scanner) (Provider, error) {
	var (
		p           Provider
		rawServices []byte
		rawAreas    []byte
	)

	err := s.Scan(
		&p.ID,
		&p.CompanyName,
		&p.CRNumber,
		&p.ContactPhone,
		&rawServices,
		&rawAreas,
		&p.Status,
		&p.ResponseRate,
		&p.ConductScore,
		&p.ConductFlags,
		&p.Disputes,
		&p.CreatedAt,
	)
	if err != nil {
		return p, err
	}

	if err := unmarshalList(rawServices, &p.Services); err != nil {
		return p, err
	}
	if err := unmarshalList(rawAreas, &p.CoverageAreas); err != nil {
		return p, err
	}

	return p, nil
}

func scanFlag(s repository.Scanner) (Flag, error) {
	var f Flag
	err := s.Scan(
		&f.ID,
		&f.ProviderID,
		&f.RequestID,
		&f.Kind,
		&f.Reason,
		&f.Severity,
		&f.CreatedAt,
	)
	return f, err
}

func scanFeedback(s repository.Scanner) (Feedback, error) {
	var f Feedback
	err := s.Scan(
		&f.ID,
		&f.ProviderID,
		&f.RequestID,
		&f.Rating,
		&f.Comment,
		&f.CreatedAt,
	)
	return f, err
}

func unmarshalList(raw []byte, dest *[]string) error {
	if raw == nil {
		*dest = []string{}
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func marshalList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}
