package broadcasts

import (
	"net/url"

	"github.com/khidma-co/khidma/pkg/query"
	"github.com/khidma-co/khidma/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "broadcasts", "b").
	Project("id", "ID").
	Project("request_id", "RequestID").
	Project("message_text", "MessageText").
	Project("target_group", "TargetGroup").
	Project("version", "Version").
	Project("generated_at", "GeneratedAt").
	Project("confirmed_provider_id", "ConfirmedProviderID")

var defaultSort = []query.SortField{
	{Field: "GeneratedAt", Descending: true},
}

const returningColumns = `id, request_id, message_text, target_group, version,
	generated_at, confirmed_provider_id`

// Filters contains optional filtering criteria for broadcast queries.
type Filters struct {
	RequestID   *string `json:"request_id,omitempty"`
	TargetGroup *string `json:"target_group,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("RequestID", f.RequestID).
		WhereEquals("TargetGroup", f.TargetGroup)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if r := values.Get("request_id"); r != "" {
		f.RequestID = &r
	}

	if t := values.Get("target_group"); t != "" {
		f.TargetGroup = &t
	}

	return f
}

func scanBroadcast(s repository.Scanner) (Broadcast, error) {
	var b Broadcast
	err := s.Scan(
		&b.ID,
		&b.RequestID,
		&b.MessageText,
		&b.TargetGroup,
		&b.Version,
		&b.GeneratedAt,
		&b.ConfirmedProviderID,
	)
	return b, err
}
