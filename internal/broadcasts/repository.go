package broadcasts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/internal/notify"
	"github.com/khidma-co/khidma/internal/requests"
	"github.com/khidma-co/khidma/pkg/pagination"
	"github.com/khidma-co/khidma/pkg/query"
	"github.com/khidma-co/khidma/pkg/repository"
)

type repo struct {
	db         *sql.DB
	requests   requests.System
	notifier   notify.Notifier
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a broadcast repository implementing the System interface.
func New(
	db *sql.DB,
	reqs requests.System,
	notifier notify.Notifier,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		requests:   reqs,
		notifier:   notifier,
		logger:     logger.With("system", "broadcasts"),
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
) (*pagination.PageResult[Broadcast], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "MessageText", "TargetGroup")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.CountWhere(ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("count broadcasts: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	casts, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanBroadcast)
	if err != nil {
		return nil, fmt.Errorf("query broadcasts: %w", err)
	}

	result := pagination.NewPageResult(casts, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Broadcast, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	cast, err := repository.QueryOne(ctx, r.db, q, args, scanBroadcast)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &cast, nil
}

func (r *repo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]Broadcast, error) {
	rid := requestID.String()
	q, args := query.
		NewBuilder(projection, query.SortField{Field: "Version", Descending: false}).
		WhereEquals("RequestID", &rid).
		Build()

	casts, err := repository.QueryMany(ctx, r.db, q, args, scanBroadcast)
	if err != nil {
		return nil, fmt.Errorf("query broadcasts for request: %w", err)
	}
	return casts, nil
}

// Prepare renders the broadcast text for a request without persisting
// anything. The version counter reflects what the next commit would record.
func (r *repo) Prepare(ctx context.Context, cmd PrepareCommand) (*Preview, error) {
	req, err := r.requests.Find(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}

	template, err := r.findTemplate(ctx, cmd.TemplateID)
	if err != nil {
		return nil, err
	}

	version, err := r.nextVersion(ctx, r.db, cmd.RequestID)
	if err != nil {
		return nil, err
	}

	text := Render(template, Fields{
		Service: req.Service,
		Area:    req.Area,
		Urgency: req.Urgency,
		Version: version,
	})

	return &Preview{
		RequestID:   cmd.RequestID,
		MessageText: text,
		TargetGroup: cmd.TargetGroup,
		Version:     version,
	}, nil
}

// Commit persists an immutable broadcast row, moves the request to
// Broadcasted, and dispatches the message to matching providers. The row
// insert and the transition share one transaction: neither survives without
// the other. Dispatch failures are logged, never rolled back: providers
// tolerate repeat delivery and the arbiter is idempotent per provider.
func (r *repo) Commit(ctx context.Context, cmd CommitCommand) (*Broadcast, error) {
	if cmd.MessageText == "" {
		return nil, fmt.Errorf("%w: message text is required", ErrValidation)
	}

	type committed struct {
		cast Broadcast
		req  *requests.Request
	}

	prepared := true
	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (committed, error) {
		// The transition locks the parent row, which also serializes the
		// version read against racing commits.
		req, err := r.requests.TransitionTx(
			ctx, tx, cmd.RequestID, requests.StatusBroadcasted,
			requests.Patch{BroadcastPrepared: &prepared},
		)
		if err != nil {
			return committed{}, err
		}

		version, err := r.nextVersion(ctx, tx, cmd.RequestID)
		if err != nil {
			return committed{}, err
		}

		q := fmt.Sprintf(`
			INSERT INTO broadcasts(
				id, request_id, message_text, target_group, version, generated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING %s`, returningColumns)

		cast, err := repository.QueryOne(ctx, tx, q, []any{
			uuid.New(),
			cmd.RequestID,
			cmd.MessageText,
			cmd.TargetGroup,
			version,
			time.Now().UTC(),
		}, scanBroadcast)
		if err != nil {
			return committed{}, repository.MapError(err, requests.ErrNotFound, ErrDuplicate)
		}

		return committed{cast: cast, req: req}, nil
	})
	if err != nil {
		return nil, err
	}

	cast := result.cast
	r.logger.Info(
		"broadcast committed",
		"request_id", cast.RequestID,
		"version", cast.Version,
		"target_group", cast.TargetGroup,
	)

	r.dispatch(ctx, cast, result.req.Service, result.req.Area)
	return &cast, nil
}

// dispatch fans the rendered message out to every provider covering the
// request's service and area, one goroutine per provider.
func (r *repo) dispatch(ctx context.Context, cast Broadcast, service, area string) {
	send := context.WithoutCancel(ctx)
	go func() {
		phones, err := r.matchProviders(send, service, area)
		if err != nil {
			r.logger.Error(
				"broadcast dispatch aborted",
				"broadcast_id", cast.ID,
				"error", err,
			)
			return
		}

		if len(phones) == 0 {
			r.logger.Warn(
				"no providers matched broadcast",
				"broadcast_id", cast.ID,
				"service", service,
				"area", area,
			)
			return
		}

		for _, phone := range phones {
			go func(phone string) {
				if err := r.notifier.Send(send, phone, cast.MessageText); err != nil {
					r.logger.Warn(
						"provider dispatch failed",
						"broadcast_id", cast.ID,
						"phone", phone,
						"error", err,
					)
				}
			}(phone)
		}
	}()
}

// matchProviders returns contact phones for providers in good standing that
// cover both the service and the area. Paused and Removed providers never
// receive broadcasts; Observed providers still do.
func (r *repo) matchProviders(ctx context.Context, service, area string) ([]string, error) {
	rows, err := r.db.QueryContext(
		ctx, `
		SELECT contact_phone FROM providers
		WHERE status IN ($1, $2)
			AND jsonb_exists(services, $3)
			AND jsonb_exists(coverage_areas, $4)`,
		"Active", "Observed", service, area,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	phones := make([]string, 0)
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, err
		}
		phones = append(phones, phone)
	}

	return phones, rows.Err()
}

func (r *repo) findTemplate(ctx context.Context, id uuid.UUID) (string, error) {
	var body string
	err := r.db.QueryRowContext(
		ctx,
		"SELECT body FROM message_templates WHERE id = $1",
		id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrTemplateMissing
	}
	return body, err
}

func (r *repo) nextVersion(ctx context.Context, q repository.Querier, requestID uuid.UUID) (int, error) {
	count, err := repository.CountWhere(
		ctx, q,
		"SELECT COUNT(*) FROM broadcasts WHERE request_id = $1",
		requestID,
	)
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}
