package reference

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/pkg/repository"
)

// System defines the public contract for reference data operations.
type System interface {
	Handler() *Handler

	ListServices(ctx context.Context) ([]Service, error)
	ListAreas(ctx context.Context) ([]Area, error)
	ListTemplates(ctx context.Context) ([]Template, error)

	// Seed installs the built-in defaults, leaving existing rows untouched.
	Seed(ctx context.Context) error

	// Reset removes all reference rows and reinstalls the defaults.
	Reset(ctx context.Context) error
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a reference data repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "reference"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) ListServices(ctx context.Context) ([]Service, error) {
	services, err := repository.QueryMany(
		ctx, r.db,
		"SELECT id, name, sub_services FROM service_catalog ORDER BY name",
		nil, scanService,
	)
	if err != nil {
		return nil, fmt.Errorf("query service catalog: %w", err)
	}
	return services, nil
}

func (r *repo) ListAreas(ctx context.Context) ([]Area, error) {
	areas, err := repository.QueryMany(
		ctx, r.db,
		"SELECT id, name FROM areas ORDER BY name",
		nil, scanArea,
	)
	if err != nil {
		return nil, fmt.Errorf("query areas: %w", err)
	}
	return areas, nil
}

func (r *repo) ListTemplates(ctx context.Context) ([]Template, error) {
	templates, err := repository.QueryMany(
		ctx, r.db,
		"SELECT id, name, body FROM message_templates ORDER BY name",
		nil, scanTemplate,
	)
	if err != nil {
		return nil, fmt.Errorf("query message templates: %w", err)
	}
	return templates, nil
}

func (r *repo) Seed(ctx context.Context) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, seed(ctx, tx)
	})
	if err != nil {
		return err
	}

	r.logger.Info("reference data seeded")
	return nil
}

func (r *repo) Reset(ctx context.Context) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		for _, table := range []string{"service_catalog", "areas", "message_templates"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return struct{}{}, fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return struct{}{}, seed(ctx, tx)
	})
	if err != nil {
		return err
	}

	r.logger.Info("reference data reset to defaults")
	return nil
}

func seed(ctx context.Context, tx *sql.Tx) error {
	for _, s := range defaultServices {
		subServices, err := json.Marshal(orEmpty(s.SubServices))
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(
			ctx, `
			INSERT INTO service_catalog(id, name, sub_services)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO NOTHING`,
			uuid.New(), s.Name, subServices,
		); err != nil {
			return fmt.Errorf("seed service %q: %w", s.Name, err)
		}
	}

	for _, a := range defaultAreas {
		if _, err := tx.ExecContext(
			ctx, `
			INSERT INTO areas(id, name)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING`,
			uuid.New(), a.Name,
		); err != nil {
			return fmt.Errorf("seed area %q: %w", a.Name, err)
		}
	}

	for _, t := range defaultTemplates {
		if _, err := tx.ExecContext(
			ctx, `
			INSERT INTO message_templates(id, name, body)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO NOTHING`,
			uuid.New(), t.Name, t.Body,
		); err != nil {
			return fmt.Errorf("seed template %q: %w", t.Name, err)
		}
	}

	return nil
}

func scanService(s repository.Scanner) (Service, error) {
	var (
		svc Service
		raw []byte
	)

	if err := s.Scan(&svc.ID, &svc.Name, &raw); err != nil {
		return svc, err
	}

	if raw == nil {
		svc.SubServices = []string{}
		return svc, nil
	}
	return svc, json.Unmarshal(raw, &svc.SubServices)
}

func scanArea(s repository.Scanner) (Area, error) {
	var a Area
	err := s.Scan(&a.ID, &a.Name)
	return a, err
}

func scanTemplate(s repository.Scanner) (Template, error) {
	var t Template
	err := s.Scan(&t.ID, &t.Name, &t.Body)
	return t, err
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
