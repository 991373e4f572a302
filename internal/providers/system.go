package providers

import (
	"context"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/pkg/pagination"
)

// System defines the public contract for provider governance operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Provider], error)

	Find(ctx context.Context, id uuid.UUID) (*Provider, error)

	// Apply registers a provider application. A CR number or contact phone
	// that is already registered is rejected with ErrDuplicate.
	Apply(ctx context.Context, cmd ApplyCommand) (*Provider, error)

	// RaiseFlag appends a conduct flag; reaching the threshold demotes the
	// provider to Observed, monotonically.
	RaiseFlag(ctx context.Context, cmd FlagCommand) (*Provider, error)

	// RecordDispute increments the dispute count without changing standing.
	RecordDispute(ctx context.Context, cmd DisputeCommand) (*Provider, error)

	// RecordFeedback appends a rating and refreshes derived scores.
	RecordFeedback(ctx context.Context, cmd FeedbackCommand) (*Provider, error)

	// Reinstate returns an Observed provider to Active. Explicit admin
	// action; never automatic.
	Reinstate(ctx context.Context, id uuid.UUID) (*Provider, error)

	ListFlags(ctx context.Context, providerID uuid.UUID) ([]Flag, error)
	ListFeedback(ctx context.Context, providerID uuid.UUID) ([]Feedback, error)
}
