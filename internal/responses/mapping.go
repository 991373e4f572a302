package responses

import (
	"net/url"

	"github.com/khidma-co/khidma/pkg/query"
	"github.com/khidma-co/khidma/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "responses", "p").
	Project("id", "ID").
	Project("request_id", "RequestID").
	Project("provider_id", "ProviderID").
	Project("provider_name", "ProviderName").
	Project("provider_phone", "ProviderPhone").
	Project("customer_phone", "CustomerPhone").
	Project("message", "Message").
	Project("status", "Status").
	Project("is_first", "IsFirst").
	Project("channel", "Channel").
	Project("assignment_method", "AssignmentMethod").
	Project("is_locked", "IsLocked").
	Project("override_reason", "OverrideReason").
	Project("ts", "Timestamp")

// Arrival order breaks timestamp ties: the insertion sequence is the
// secondary sort so first write wins deterministically.
var defaultSort = []query.SortField{
	{Field: "Timestamp", Descending: false},
	{Field: "seq", Descending: false},
}

const returningColumns = `id, request_id, provider_id, provider_name, provider_phone,
	customer_phone, message, status, is_first, channel, assignment_method,
	is_locked, override_reason, ts`

// Filters contains optional filtering criteria for response queries.
type Filters struct {
	RequestID     *string `json:"request_id,omitempty"`
	Status        *string `json:"status,omitempty"`
	ProviderPhone *string `json:"provider_phone,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("RequestID", f.RequestID).
		WhereEquals("Status", f.Status).
		WhereEquals("ProviderPhone", f.ProviderPhone)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if r := values.Get("request_id"); r != "" {
		f.RequestID = &r
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if p := values.Get("provider_phone"); p != "" {
		f.ProviderPhone = &p
	}

	return f
}

func scanResponse(s repository.Scanner) (Response, error) {
	var r Response
	err := s.Scan(
		&r.ID,
		&r.RequestID,
		&r.ProviderID,
		&r.ProviderName,
		&r.ProviderPhone,
		&r.CustomerPhone,
		&r.Message,
		&r.Status,
		&r.IsFirst,
		&r.Channel,
		&r.AssignmentMethod,
		&r.IsLocked,
		&r.OverrideReason,
		&r.Timestamp,
	)
	return r, err
}
