// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/khidma-co/khidma/internal/config"
	"github.com/khidma-co/khidma/internal/infrastructure"
	"github.com/khidma-co/khidma/pkg/middleware"
	"github.com/khidma-co/khidma/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Instrument())

	return m, nil
}
