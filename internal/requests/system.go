package requests

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/pkg/pagination"
)

// System defines the public contract for request domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Request], error)

	Find(ctx context.Context, id uuid.UUID) (*Request, error)
	Create(ctx context.Context, cmd CreateCommand) (*Request, error)

	// Transition applies a status change plus patch atomically, stamping
	// last_state_change_at and recomputing the audit bundle. Attempts to
	// move a locked request anywhere other than a terminal state return
	// ErrRequestLocked; other disallowed moves return ErrInvalidTransition.
	Transition(ctx context.Context, id uuid.UUID, newStatus string, patch Patch) (*Request, error)

	// TransitionTx is Transition running inside a caller-owned transaction,
	// for writes that must commit or roll back together with the status
	// change.
	TransitionTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, newStatus string, patch Patch) (*Request, error)
}
