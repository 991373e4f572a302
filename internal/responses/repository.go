package responses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/internal/audit"
	"github.com/khidma-co/khidma/internal/notify"
	"github.com/khidma-co/khidma/internal/requests"
	"github.com/khidma-co/khidma/pkg/metrics"
	"github.com/khidma-co/khidma/pkg/pagination"
	"github.com/khidma-co/khidma/pkg/query"
	"github.com/khidma-co/khidma/pkg/repository"
)

type repo struct {
	db         *sql.DB
	notifier   notify.Notifier
	logger     *slog.Logger
	pagination pagination.Config
}

// parentRow is the slice of the request record the arbiter needs while
// holding the parent row lock.
type parentRow struct {
	Status        string
	CustomerPhone string
	Bundle        audit.Bundle
}

// New creates a response repository implementing the System interface.
func New(
	db *sql.DB,
	notifier notify.Notifier,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		notifier:   notifier,
		logger:     logger.With("system", "responses"),
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
) (*pagination.PageResult[Response], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "ProviderName", "ProviderPhone", "Message")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.CountWhere(ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("count responses: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	resps, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanResponse)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}

	result := pagination.NewPageResult(resps, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Response, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	resp, err := repository.QueryOne(ctx, r.db, q, args, scanResponse)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &resp, nil
}

func (r *repo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]Response, error) {
	rid := requestID.String()
	q, args := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("RequestID", &rid).
		Build()

	resps, err := repository.QueryMany(ctx, r.db, q, args, scanResponse)
	if err != nil {
		return nil, fmt.Errorf("query responses for request: %w", err)
	}
	return resps, nil
}

func (r *repo) Classify(ctx context.Context, cmd ClassifyCommand) (*Response, error) {
	if cmd.ProviderPhone == "" {
		return nil, fmt.Errorf("%w: provider phone is required", ErrValidation)
	}

	resp, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Response, error) {
		if _, err := lockParent(ctx, tx, cmd.RequestID); err != nil {
			return Response{}, err
		}

		// Same provider, same request: return the original classification
		// so gateway redelivery cannot spawn competing records.
		if existing, err := findByProviderPhone(ctx, tx, cmd.RequestID, cmd.ProviderPhone); err == nil {
			metrics.ArbitrationsTotal.WithLabelValues("duplicate").Inc()
			return existing, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return Response{}, err
		}

		hasWinner, err := winnerExists(ctx, tx, cmd.RequestID)
		if err != nil {
			return Response{}, err
		}

		status, isFirst := Arbitrate(cmd.Message, hasWinner)
		return insertResponse(ctx, tx, cmd, status, isFirst)
	})
	if err != nil {
		return nil, repository.MapError(err, requests.ErrNotFound, ErrDuplicate)
	}

	metrics.ArbitrationsTotal.WithLabelValues(outcomeLabel(resp.Status)).Inc()
	r.logger.Info(
		"reply classified",
		"request_id", resp.RequestID,
		"provider_phone", resp.ProviderPhone,
		"status", resp.Status,
		"is_first", resp.IsFirst,
	)
	return &resp, nil
}

func (r *repo) Confirm(ctx context.Context, responseID uuid.UUID) (*Response, error) {
	type confirmed struct {
		resp  Response
		phone string
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (confirmed, error) {
		resp, err := repository.QueryOne(
			ctx, tx,
			fmt.Sprintf("SELECT %s FROM public.responses p WHERE p.id = $1", projection.Columns()),
			[]any{responseID},
			scanResponse,
		)
		if err != nil {
			return confirmed{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		parent, err := lockParent(ctx, tx, resp.RequestID)
		if err != nil {
			return confirmed{}, err
		}

		if requests.IsLocked(parent.Status) {
			return confirmed{}, fmt.Errorf(
				"%w: request already %s", requests.ErrRequestLocked, parent.Status,
			)
		}
		if !requests.CanTransition(parent.Status, requests.StatusInProgress) {
			return confirmed{}, fmt.Errorf(
				"%w: %s -> %s", requests.ErrInvalidTransition,
				parent.Status, requests.StatusInProgress,
			)
		}

		// Re-read under the parent lock; every arbitration path locks the
		// parent first, so this view is stable.
		resp, err = repository.QueryOne(
			ctx, tx,
			fmt.Sprintf("SELECT %s FROM public.responses p WHERE p.id = $1", projection.Columns()),
			[]any{responseID},
			scanResponse,
		)
		if err != nil {
			return confirmed{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		if resp.Status != StatusEligible {
			return confirmed{}, fmt.Errorf("%w: status %s", ErrNotEligible, resp.Status)
		}
		if resp.ProviderID == nil {
			return confirmed{}, fmt.Errorf(
				"%w: response has no registered provider", ErrValidation,
			)
		}

		if err := demoteSiblings(ctx, tx, resp.RequestID, resp.ID); err != nil {
			return confirmed{}, err
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE responses SET status = $2, is_locked = TRUE WHERE id = $1",
			resp.ID, StatusConfirmed,
		); err != nil {
			return confirmed{}, err
		}

		if err := assignParent(ctx, tx, resp.RequestID, *resp.ProviderID, parent); err != nil {
			return confirmed{}, err
		}

		resp.Status = StatusConfirmed
		resp.IsLocked = true
		return confirmed{resp: resp, phone: parent.CustomerPhone}, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AssignmentsTotal.WithLabelValues(MethodAuto).Inc()
	r.logger.Info(
		"assignment confirmed",
		"request_id", result.resp.RequestID,
		"provider_id", result.resp.ProviderID,
	)

	r.notifyAssignment(ctx, result.phone, result.resp.ProviderName)
	return &result.resp, nil
}

func (r *repo) Override(ctx context.Context, cmd OverrideCommand) (*Response, error) {
	if cmd.Reason == "" {
		return nil, fmt.Errorf("%w: override reason is required", ErrValidation)
	}

	type overridden struct {
		resp  Response
		phone string
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (overridden, error) {
		parent, err := lockParent(ctx, tx, cmd.RequestID)
		if err != nil {
			return overridden{}, err
		}

		if requests.IsLocked(parent.Status) {
			return overridden{}, fmt.Errorf(
				"%w: request already %s", requests.ErrRequestLocked, parent.Status,
			)
		}
		if !requests.CanTransition(parent.Status, requests.StatusInProgress) {
			return overridden{}, fmt.Errorf(
				"%w: %s -> %s", requests.ErrInvalidTransition,
				parent.Status, requests.StatusInProgress,
			)
		}

		var name, phone string
		if err := tx.QueryRowContext(
			ctx,
			"SELECT company_name, contact_phone FROM providers WHERE id = $1",
			cmd.ProviderID,
		).Scan(&name, &phone); err != nil {
			return overridden{}, repository.MapError(err, ErrProviderGone, ErrDuplicate)
		}

		if err := demoteSiblings(ctx, tx, cmd.RequestID, uuid.Nil); err != nil {
			return overridden{}, err
		}

		resp, err := insertOverride(ctx, tx, cmd, name, phone, parent.CustomerPhone)
		if err != nil {
			return overridden{}, err
		}

		if err := assignParent(ctx, tx, cmd.RequestID, cmd.ProviderID, parent); err != nil {
			return overridden{}, err
		}

		return overridden{resp: resp, phone: parent.CustomerPhone}, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AssignmentsTotal.WithLabelValues(MethodManual).Inc()
	r.logger.Info(
		"assignment overridden",
		"request_id", result.resp.RequestID,
		"provider_id", result.resp.ProviderID,
		"reason", cmd.Reason,
	)

	r.notifyAssignment(ctx, result.phone, result.resp.ProviderName)
	return &result.resp, nil
}

// notifyAssignment tells the customer their provider is on the way.
// Fire-and-forget: delivery failure never unwinds the assignment.
func (r *repo) notifyAssignment(ctx context.Context, phone, providerName string) {
	send := context.WithoutCancel(ctx)
	go func() {
		text := fmt.Sprintf("Your request has been assigned to %s. They will contact you shortly.", providerName)
		if err := r.notifier.Send(send, phone, text); err != nil {
			r.logger.Warn("assignment notification failed", "phone", phone, "error", err)
		}
	}()
}

func lockParent(ctx context.Context, tx *sql.Tx, requestID uuid.UUID) (parentRow, error) {
	var (
		row        parentRow
		verifiedAt sql.NullTime
	)

	err := tx.QueryRowContext(
		ctx, `
		SELECT status, customer_phone, phone_verified, verification_method,
			verified_at, session_id, terms_version_id, created_at, last_state_change_at
		FROM requests WHERE id = $1 FOR UPDATE`,
		requestID,
	).Scan(
		&row.Status,
		&row.CustomerPhone,
		&row.Bundle.PhoneVerified,
		&row.Bundle.VerificationMethod,
		&verifiedAt,
		&row.Bundle.SessionID,
		&row.Bundle.TermsVersionID,
		&row.Bundle.CreatedAt,
		&row.Bundle.LastStateChangeAt,
	)
	if err != nil {
		return parentRow{}, repository.MapError(err, requests.ErrNotFound, ErrDuplicate)
	}

	if verifiedAt.Valid {
		row.Bundle.VerifiedAt = &verifiedAt.Time
	}

	return row, nil
}

func assignParent(
	ctx context.Context,
	tx *sql.Tx,
	requestID, providerID uuid.UUID,
	parent parentRow,
) error {
	now := time.Now().UTC()
	parent.Bundle.LastStateChangeAt = now

	return repository.ExecExpectOne(
		ctx, tx, `
		UPDATE requests SET
			status = $2,
			assigned_provider_id = $3,
			audit_bundle_complete = $4,
			last_state_change_at = $5
		WHERE id = $1`,
		requestID,
		requests.StatusInProgress,
		providerID,
		audit.Complete(parent.Bundle),
		now,
	)
}

func winnerExists(ctx context.Context, tx *sql.Tx, requestID uuid.UUID) (bool, error) {
	count, err := repository.CountWhere(
		ctx, tx,
		"SELECT COUNT(*) FROM responses WHERE request_id = $1 AND status IN ($2, $3)",
		requestID, StatusEligible, StatusConfirmed,
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func findByProviderPhone(
	ctx context.Context,
	tx *sql.Tx,
	requestID uuid.UUID,
	phone string,
) (Response, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM public.responses p WHERE p.request_id = $1 AND p.provider_phone = $2 LIMIT 1",
		projection.Columns(),
	)
	return repository.QueryOne(ctx, tx, q, []any{requestID, phone}, scanResponse)
}

func demoteSiblings(ctx context.Context, tx *sql.Tx, requestID, keep uuid.UUID) error {
	_, err := tx.ExecContext(
		ctx,
		"UPDATE responses SET status = $3 WHERE request_id = $1 AND status = $4 AND id <> $2",
		requestID, keep, StatusWaitlisted, StatusEligible,
	)
	return err
}

func insertResponse(
	ctx context.Context,
	tx *sql.Tx,
	cmd ClassifyCommand,
	status string,
	isFirst bool,
) (Response, error) {
	q := fmt.Sprintf(`
		INSERT INTO responses(
			id, request_id, provider_id, provider_name, provider_phone,
			customer_phone, message, status, is_first, channel,
			assignment_method, is_locked, ts)
		SELECT $1, $2, $3, $4, $5, r.customer_phone, $6, $7, $8, $9, $10, FALSE, $11
		FROM requests r WHERE r.id = $2
		RETURNING %s`, returningColumns)

	return repository.QueryOne(ctx, tx, q, []any{
		uuid.New(),
		cmd.RequestID,
		cmd.ProviderID,
		cmd.ProviderName,
		cmd.ProviderPhone,
		cmd.Message,
		status,
		isFirst,
		cmd.Channel,
		MethodAuto,
		time.Now().UTC(),
	}, scanResponse)
}

func insertOverride(
	ctx context.Context,
	tx *sql.Tx,
	cmd OverrideCommand,
	providerName, providerPhone, customerPhone string,
) (Response, error) {
	q := fmt.Sprintf(`
		INSERT INTO responses(
			id, request_id, provider_id, provider_name, provider_phone,
			customer_phone, message, status, is_first, channel,
			assignment_method, is_locked, override_reason, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $10, TRUE, $11, $12)
		RETURNING %s`, returningColumns)

	return repository.QueryOne(ctx, tx, q, []any{
		uuid.New(),
		cmd.RequestID,
		cmd.ProviderID,
		providerName,
		providerPhone,
		customerPhone,
		"",
		StatusConfirmed,
		"admin",
		MethodManual,
		cmd.Reason,
		time.Now().UTC(),
	}, scanResponse)
}

func outcomeLabel(status string) string {
	switch status {
	case StatusEligible:
		return "eligible"
	case StatusWaitlisted:
		return "waitlisted"
	case StatusInvalid:
		return "invalid"
	default:
		return "other"
	}
}
