package broadcasts

import (
	"context"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/pkg/pagination"
)

// System defines the public contract for broadcast operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Broadcast], error)

	Find(ctx context.Context, id uuid.UUID) (*Broadcast, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]Broadcast, error)

	// Prepare renders the outbound text for review without writing anything.
	Prepare(ctx context.Context, cmd PrepareCommand) (*Preview, error)

	// Commit records an immutable broadcast, transitions the request to
	// Broadcasted, and dispatches to matching providers asynchronously.
	Commit(ctx context.Context, cmd CommitCommand) (*Broadcast, error)
}
