package providers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/pkg/pagination"
	"github.com/khidma-co/khidma/pkg/query"
	"github.com/khidma-co/khidma/pkg/repository"
)

type repo struct {
	db            *sql.DB
	logger        *slog.Logger
	pagination    pagination.Config
	flagThreshold int
}

// New creates a provider repository implementing the System interface.
// flagThreshold is the conduct flag count that forces Observed standing.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	flagThreshold int,
) System {
	return &repo{
		db:            db,
		logger:        logger.With("system", "providers"),
		pagination:    pagination,
		flagThreshold: flagThreshold,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Provider], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "CompanyName", "ContactPhone", "CRNumber")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.CountWhere(ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("count providers: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	provs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanProvider)
	if err != nil {
		return nil, fmt.Errorf("query providers: %w", err)
	}

	result := pagination.NewPageResult(provs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Provider, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	prov, err := repository.QueryOne(ctx, r.db, q, args, scanProvider)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &prov, nil
}

func (r *repo) Apply(ctx context.Context, cmd ApplyCommand) (*Provider, error) {
	if err := validateApply(cmd); err != nil {
		return nil, err
	}

	services, err := marshalList(cmd.Services)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	areas, err := marshalList(cmd.CoverageAreas)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	prov, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Provider, error) {
		q := fmt.Sprintf(`
			INSERT INTO providers(
				id, company_name, cr_number, contact_phone, services,
				coverage_areas, status, response_rate, conduct_score,
				conduct_flags, disputes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, 0, $8)
			RETURNING %s`, returningColumns)

		return repository.QueryOne(ctx, tx, q, []any{
			uuid.New(),
			cmd.CompanyName,
			cmd.CRNumber,
			cmd.ContactPhone,
			services,
			areas,
			StatusActive,
			time.Now().UTC(),
		}, scanProvider)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"provider registered",
		"provider_id", prov.ID,
		"company", prov.CompanyName,
	)
	return &prov, nil
}

// RaiseFlag appends a conduct flag and increments the running count inside
// one transaction. At the threshold the provider is demoted to Observed;
// the demotion never auto-reverts and further flags leave standing alone.
func (r *repo) RaiseFlag(ctx context.Context, cmd FlagCommand) (*Provider, error) {
	if cmd.Reason == "" {
		return nil, fmt.Errorf("%w: flag reason is required", ErrValidation)
	}

	prov, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Provider, error) {
		status, flags, err := lockStanding(ctx, tx, cmd.ProviderID)
		if err != nil {
			return Provider{}, err
		}

		if err := insertFlag(ctx, tx, cmd.ProviderID, cmd.RequestID, KindConduct, cmd.Reason, cmd.Severity); err != nil {
			return Provider{}, err
		}

		flags++
		next := Standing(status, flags, r.flagThreshold)

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE providers SET conduct_flags = $2, status = $3 WHERE id = $1",
			cmd.ProviderID, flags, next,
		); err != nil {
			return Provider{}, err
		}

		return r.findInTx(ctx, tx, cmd.ProviderID)
	})
	if err != nil {
		return nil, err
	}

	if prov.Status == StatusObserved {
		r.logger.Warn(
			"provider under observation",
			"provider_id", prov.ID,
			"conduct_flags", prov.ConductFlags,
		)
	} else {
		r.logger.Info(
			"conduct flag raised",
			"provider_id", prov.ID,
			"conduct_flags", prov.ConductFlags,
		)
	}
	return &prov, nil
}

// RecordDispute appends a dispute record and increments the dispute count.
// Disputes feed the risk dashboard only; they never change standing.
func (r *repo) RecordDispute(ctx context.Context, cmd DisputeCommand) (*Provider, error) {
	if cmd.Reason == "" {
		return nil, fmt.Errorf("%w: dispute reason is required", ErrValidation)
	}

	prov, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Provider, error) {
		if _, _, err := lockStanding(ctx, tx, cmd.ProviderID); err != nil {
			return Provider{}, err
		}

		if err := insertFlag(ctx, tx, cmd.ProviderID, cmd.RequestID, KindDispute, cmd.Reason, ""); err != nil {
			return Provider{}, err
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE providers SET disputes = disputes + 1 WHERE id = $1",
			cmd.ProviderID,
		); err != nil {
			return Provider{}, err
		}

		return r.findInTx(ctx, tx, cmd.ProviderID)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("dispute recorded", "provider_id", prov.ID, "disputes", prov.Disputes)
	return &prov, nil
}

// RecordFeedback appends a customer rating and refreshes the provider's
// derived conduct score and response rate.
func (r *repo) RecordFeedback(ctx context.Context, cmd FeedbackCommand) (*Provider, error) {
	if !ValidRating(cmd.Rating) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	prov, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Provider, error) {
		if _, _, err := lockStanding(ctx, tx, cmd.ProviderID); err != nil {
			return Provider{}, err
		}

		if err := repository.ExecExpectOne(
			ctx, tx, `
			INSERT INTO feedback(id, provider_id, request_id, rating, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), cmd.ProviderID, cmd.RequestID, cmd.Rating, cmd.Comment, time.Now().UTC(),
		); err != nil {
			return Provider{}, err
		}

		if err := refreshStanding(ctx, tx, cmd.ProviderID); err != nil {
			return Provider{}, err
		}

		return r.findInTx(ctx, tx, cmd.ProviderID)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info(
		"feedback recorded",
		"provider_id", prov.ID,
		"rating", cmd.Rating,
		"conduct_score", prov.ConductScore,
	)
	return &prov, nil
}

// Reinstate returns an Observed provider to Active standing. This is the
// explicit administrative counterpart to automatic demotion; flag counts
// are never reset.
func (r *repo) Reinstate(ctx context.Context, id uuid.UUID) (*Provider, error) {
	prov, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Provider, error) {
		status, _, err := lockStanding(ctx, tx, id)
		if err != nil {
			return Provider{}, err
		}

		if status != StatusObserved {
			return Provider{}, fmt.Errorf(
				"%w: only Observed providers can be reinstated, current status %s",
				ErrValidation, status,
			)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE providers SET status = $2 WHERE id = $1",
			id, StatusActive,
		); err != nil {
			return Provider{}, err
		}

		return r.findInTx(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("provider reinstated", "provider_id", prov.ID)
	return &prov, nil
}

func (r *repo) ListFlags(ctx context.Context, providerID uuid.UUID) ([]Flag, error) {
	flags, err := repository.QueryMany(
		ctx, r.db, `
		SELECT id, provider_id, request_id, kind, reason, severity, created_at
		FROM provider_flags WHERE provider_id = $1
		ORDER BY created_at DESC`,
		[]any{providerID}, scanFlag,
	)
	if err != nil {
		return nil, fmt.Errorf("query provider flags: %w", err)
	}
	return flags, nil
}

func (r *repo) ListFeedback(ctx context.Context, providerID uuid.UUID) ([]Feedback, error) {
	fb, err := repository.QueryMany(
		ctx, r.db, `
		SELECT id, provider_id, request_id, rating, comment, created_at
		FROM feedback WHERE provider_id = $1
		ORDER BY created_at DESC`,
		[]any{providerID}, scanFeedback,
	)
	if err != nil {
		return nil, fmt.Errorf("query provider feedback: %w", err)
	}
	return fb, nil
}

func (r *repo) findInTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Provider, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	return repository.QueryOne(ctx, tx, q, args, scanProvider)
}

func lockStanding(ctx context.Context, tx *sql.Tx, id uuid.UUID) (status string, flags int, err error) {
	err = tx.QueryRowContext(
		ctx,
		"SELECT status, conduct_flags FROM providers WHERE id = $1 FOR UPDATE",
		id,
	).Scan(&status, &flags)
	if err != nil {
		return "", 0, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return status, flags, nil
}

func insertFlag(
	ctx context.Context,
	tx *sql.Tx,
	providerID uuid.UUID,
	requestID *uuid.UUID,
	kind, reason, severity string,
) error {
	return repository.ExecExpectOne(
		ctx, tx, `
		INSERT INTO provider_flags(id, provider_id, request_id, kind, reason, severity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), providerID, requestID, kind, reason, severity, time.Now().UTC(),
	)
}

// refreshStanding recomputes the derived conduct score (mean feedback
// rating) and response rate (requests replied to over requests broadcast
// within the provider's coverage). Both keep their prior value when the
// denominator is empty.
func refreshStanding(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	return repository.ExecExpectOne(
		ctx, tx, `
		UPDATE providers p SET
			conduct_score = COALESCE(
				(SELECT AVG(f.rating) FROM feedback f WHERE f.provider_id = p.id),
				p.conduct_score),
			response_rate = COALESCE(
				(SELECT COUNT(DISTINCT s.request_id) FROM responses s WHERE s.provider_id = p.id)::float
				/ NULLIF(
					(SELECT COUNT(DISTINCT b.request_id)
						FROM broadcasts b
						JOIN requests q ON q.id = b.request_id
						WHERE jsonb_exists(p.services, q.service)
							AND jsonb_exists(p.coverage_areas, q.area)),
					0),
				p.response_rate)
		WHERE p.id = $1`,
		id,
	)
}

func validateApply(cmd ApplyCommand) error {
	switch {
	case cmd.CompanyName == "":
		return fmt.Errorf("%w: company name is required", ErrValidation)
	case cmd.CRNumber == "":
		return fmt.Errorf("%w: CR number is required", ErrValidation)
	case cmd.ContactPhone == "":
		return fmt.Errorf("%w: contact phone is required", ErrValidation)
	case len(cmd.Services) == 0:
		return fmt.Errorf("%w: at least one service is required", ErrValidation)
	case len(cmd.CoverageAreas) == 0:
		return fmt.Errorf("%w: at least one coverage area is required", ErrValidation)
	}
	return nil
}
