package requests

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/internal/audit"
	"github.com/khidma-co/khidma/pkg/pagination"
	"github.com/khidma-co/khidma/pkg/query"
	"github.com/khidma-co/khidma/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a request repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "requests"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Request], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Description", "CustomerPhone", "Area")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.CountWhere(ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	reqs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRequest)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}

	result := pagination.NewPageResult(reqs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Request, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	req, err := repository.QueryOne(ctx, r.db, q, args, scanRequest)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &req, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Request, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}

	if cmd.Urgency == "" {
		cmd.Urgency = UrgencyNormal
	}

	now := time.Now().UTC()
	bundleComplete := audit.Complete(audit.Bundle{
		PhoneVerified:      cmd.PhoneVerified,
		VerificationMethod: cmd.VerificationMethod,
		VerifiedAt:         cmd.VerifiedAt,
		SessionID:          cmd.SessionID,
		TermsVersionID:     cmd.TermsVersionID,
		CreatedAt:          now,
		LastStateChangeAt:  now,
	})

	flags, err := marshalFlags(nil)
	if err != nil {
		return nil, fmt.Errorf("marshal flags: %w", err)
	}

	q := fmt.Sprintf(`
		INSERT INTO requests(
			id, customer_id, customer_phone, service, sub_service, area,
			urgency, description, source, status, phone_verified,
			verification_method, verified_at, session_id, terms_version_id,
			broadcast_prepared, audit_bundle_complete, flags,
			created_at, last_state_change_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING %s`, returningColumns)

	insertArgs := []any{
		uuid.New(),
		cmd.CustomerID,
		cmd.CustomerPhone,
		cmd.Service,
		cmd.SubService,
		cmd.Area,
		cmd.Urgency,
		cmd.Description,
		cmd.Source,
		StatusNew,
		cmd.PhoneVerified,
		cmd.VerificationMethod,
		cmd.VerifiedAt,
		cmd.SessionID,
		cmd.TermsVersionID,
		false,
		bundleComplete,
		flags,
		now,
		now,
	}

	req, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Request, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanRequest)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"request created",
		"id", req.ID,
		"service", req.Service,
		"area", req.Area,
		"urgency", req.Urgency,
	)
	return &req, nil
}

func (r *repo) Transition(
	ctx context.Context,
	id uuid.UUID,
	newStatus string,
	patch Patch,
) (*Request, error) {
	if !ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	req, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Request, error) {
		return transition(ctx, tx, id, newStatus, patch)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"request transitioned",
		"id", req.ID,
		"status", req.Status,
	)
	return &req, nil
}

// TransitionTx applies a transition inside a caller-owned transaction so a
// dependent write commits or rolls back together with the status change.
// The parent row lock it takes also serializes the caller's writes against
// the arbiter.
func (r *repo) TransitionTx(
	ctx context.Context,
	tx *sql.Tx,
	id uuid.UUID,
	newStatus string,
	patch Patch,
) (*Request, error) {
	if !ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	req, err := transition(ctx, tx, id, newStatus, patch)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &req, nil
}

func transition(
	ctx context.Context,
	tx *sql.Tx,
	id uuid.UUID,
	newStatus string,
	patch Patch,
) (Request, error) {
	current, err := lockRequest(ctx, tx, id)
	if err != nil {
		return Request{}, err
	}

	if !CanTransition(current.Status, newStatus) {
		if IsLocked(current.Status) {
			return Request{}, fmt.Errorf(
				"%w: %s -> %s", ErrRequestLocked, current.Status, newStatus,
			)
		}
		return Request{}, fmt.Errorf(
			"%w: %s -> %s", ErrInvalidTransition, current.Status, newStatus,
		)
	}

	applyPatch(&current, patch)

	now := time.Now().UTC()
	current.Status = newStatus
	current.LastStateChangeAt = now

	if newStatus == StatusBroadcasted && current.BroadcastedAt == nil {
		current.BroadcastedAt = &now
	}

	current.AuditBundleComplete = audit.Complete(bundleOf(current))

	return updateRequest(ctx, tx, current)
}

func validateCreate(cmd CreateCommand) error {
	if !cmd.PhoneVerified {
		return fmt.Errorf("%w: phone is not verified", ErrValidation)
	}
	if cmd.CustomerPhone == "" {
		return fmt.Errorf("%w: customer phone is required", ErrValidation)
	}
	if cmd.Service == "" {
		return fmt.Errorf("%w: service is required", ErrValidation)
	}
	if cmd.Area == "" {
		return fmt.Errorf("%w: area is required", ErrValidation)
	}
	if cmd.Urgency != "" && !ValidUrgency(cmd.Urgency) {
		return fmt.Errorf("%w: unknown urgency %q", ErrValidation, cmd.Urgency)
	}
	return nil
}

func applyPatch(req *Request, patch Patch) {
	if patch.Urgency != nil {
		req.Urgency = *patch.Urgency
	}
	if patch.Description != nil {
		req.Description = *patch.Description
	}
	if patch.BroadcastPrepared != nil {
		req.BroadcastPrepared = *patch.BroadcastPrepared
	}
	for _, flag := range patch.Flags {
		req.Flags = append(req.Flags, flag)
	}
}

func bundleOf(req Request) audit.Bundle {
	return audit.Bundle{
		PhoneVerified:      req.PhoneVerified,
		VerificationMethod: req.VerificationMethod,
		VerifiedAt:         req.VerifiedAt,
		SessionID:          req.SessionID,
		TermsVersionID:     req.TermsVersionID,
		CreatedAt:          req.CreatedAt,
		LastStateChangeAt:  req.LastStateChangeAt,
	}
}

// lockRequest reads the request row under FOR UPDATE. Transitions and the
// response arbiter both serialize on this row lock, which is what makes the
// check-then-write on lifecycle state and winner selection race-free across
// replicas.
func lockRequest(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Request, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE r.id = $1 FOR UPDATE OF r",
		projection.Columns(),
		projection.From(),
	)
	return repository.QueryOne(ctx, tx, q, []any{id}, scanRequest)
}

func updateRequest(ctx context.Context, tx *sql.Tx, req Request) (Request, error) {
	flags, err := marshalFlags(req.Flags)
	if err != nil {
		return Request{}, fmt.Errorf("marshal flags: %w", err)
	}

	if err := repository.ExecExpectOne(
		ctx, tx, `
		UPDATE requests SET
			urgency = $2,
			description = $3,
			status = $4,
			broadcast_prepared = $5,
			broadcasted_at = $6,
			assigned_provider_id = $7,
			audit_bundle_complete = $8,
			flags = $9,
			last_state_change_at = $10
		WHERE id = $1`,
		req.ID,
		req.Urgency,
		req.Description,
		req.Status,
		req.BroadcastPrepared,
		req.BroadcastedAt,
		req.AssignedProviderID,
		req.AuditBundleComplete,
		flags,
		req.LastStateChangeAt,
	); err != nil {
		return Request{}, err
	}

	return req, nil
}
