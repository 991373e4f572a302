package api

import (
	"github.com/khidma-co/khidma/internal/config"
	"github.com/khidma-co/khidma/internal/infrastructure"
	"github.com/khidma-co/khidma/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Notifier:  infra.Notifier,
		},
		Pagination: cfg.API.Pagination,
	}
}
