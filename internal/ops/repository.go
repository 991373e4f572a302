package ops

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/khidma-co/khidma/internal/config"
	"github.com/khidma-co/khidma/pkg/metrics"
	"github.com/khidma-co/khidma/pkg/repository"
)

// System defines the public contract for the operational metrics engine.
type System interface {
	Handler() *Handler

	// Snapshot takes one read-only view of the ledgers.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Dashboard computes all five views from a fresh snapshot and refreshes
	// the exported gauges.
	Dashboard(ctx context.Context) (*Dashboard, error)
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
	th     Thresholds
}

// New creates the metrics engine with thresholds taken from config.
func New(db *sql.DB, logger *slog.Logger, cfg config.EngineConfig) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "ops"),
		th: Thresholds{
			StuckNew:            cfg.StuckNewAfterDuration(),
			SilentBroadcast:     cfg.SilentBroadcastAfterDuration(),
			StalledConfirmation: cfg.StalledConfirmationAfterDuration(),
			FlagThreshold:       cfg.FlagThreshold,
			RateFloor:           cfg.ResponseRateFloor,
			RateTarget:          cfg.ResponseRateTarget,
		},
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := Snapshot{TakenAt: time.Now().UTC()}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := repository.QueryMany(
			gctx, r.db, `
			SELECT r.id, r.status, r.phone_verified, r.audit_bundle_complete,
				(SELECT COUNT(*) FROM responses p WHERE p.request_id = r.id),
				r.created_at, r.last_state_change_at
			FROM requests r`,
			nil, scanRequestRow,
		)
		if err != nil {
			return fmt.Errorf("snapshot requests: %w", err)
		}
		snap.Requests = rows
		return nil
	})

	g.Go(func() error {
		rows, err := repository.QueryMany(
			gctx, r.db, `
			SELECT id, company_name, status, conduct_flags, disputes, response_rate
			FROM providers`,
			nil, scanProviderRow,
		)
		if err != nil {
			return fmt.Errorf("snapshot providers: %w", err)
		}
		snap.Providers = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &snap, nil
}

func (r *repo) Dashboard(ctx context.Context) (*Dashboard, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	dash := Dashboard{GeneratedAt: snap.TakenAt}

	// Each computation reads the shared snapshot and writes only its own
	// field, so they run without coordination.
	var g errgroup.Group
	g.Go(func() error {
		dash.Attention = ComputeAttention(*snap, r.th, snap.TakenAt)
		return nil
	})
	g.Go(func() error {
		dash.Flow = ComputeFlow(*snap, snap.TakenAt)
		return nil
	})
	g.Go(func() error {
		dash.Risk = ComputeRisk(*snap, r.th)
		return nil
	})
	g.Go(func() error {
		dash.Integrity = ComputeIntegrity(*snap)
		return nil
	})
	g.Go(func() error {
		dash.Audit = ComputeAudit(*snap)
		return nil
	})
	g.Wait()

	r.export(dash)

	r.logger.Info(
		"dashboard computed",
		"requests", len(snap.Requests),
		"providers", len(snap.Providers),
		"attention", dash.Attention.Total,
		"integrity", dash.Integrity.Score,
		"audit_ready", dash.Audit.Ready,
	)
	return &dash, nil
}

func (r *repo) export(dash Dashboard) {
	for status, count := range dash.Flow.ByStatus {
		metrics.RequestsByStatus.WithLabelValues(status).Set(float64(count))
	}

	signals := map[string]int{
		SignalStuckNew:            0,
		SignalSilentBroadcast:     0,
		SignalStalledConfirmation: 0,
	}
	for _, item := range dash.Attention.Items {
		signals[item.Signal]++
	}
	for signal, count := range signals {
		metrics.AttentionItems.WithLabelValues(signal).Set(float64(count))
	}

	metrics.IntegrityScore.Set(float64(dash.Integrity.Score))
}

func scanRequestRow(s repository.Scanner) (RequestRow, error) {
	var r RequestRow
	err := s.Scan(
		&r.ID,
		&r.Status,
		&r.PhoneVerified,
		&r.AuditBundleComplete,
		&r.ResponseCount,
		&r.CreatedAt,
		&r.LastStateChangeAt,
	)
	return r, err
}

func scanProviderRow(s repository.Scanner) (ProviderRow, error) {
	var p ProviderRow
	err := s.Scan(
		&p.ID,
		&p.CompanyName,
		&p.Status,
		&p.ConductFlags,
		&p.Disputes,
		&p.ResponseRate,
	)
	return p, err
}
