package responses

import (
	"context"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/pkg/pagination"
)

// System defines the public contract for response arbitration operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Response], error)

	Find(ctx context.Context, id uuid.UUID) (*Response, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]Response, error)

	// Classify records an inbound provider reply and arbitrates it against
	// the first-valid-reply rule. The winner check and write execute inside
	// one serialized critical section per request. A repeat reply from the
	// same provider for the same request returns the original classification.
	Classify(ctx context.Context, cmd ClassifyCommand) (*Response, error)

	// Confirm promotes the Eligible response to Confirmed, demotes its
	// siblings to Waitlisted, assigns the provider, and moves the request
	// to In Progress.
	Confirm(ctx context.Context, responseID uuid.UUID) (*Response, error)

	// Override assigns a provider manually, superseding any Eligible winner.
	// Overriding a request that is already In Progress or terminal is
	// rejected with ErrRequestLocked.
	Override(ctx context.Context, cmd OverrideCommand) (*Response, error)
}
