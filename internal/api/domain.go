package api

import (
	"github.com/khidma-co/khidma/internal/broadcasts"
	"github.com/khidma-co/khidma/internal/config"
	"github.com/khidma-co/khidma/internal/ops"
	"github.com/khidma-co/khidma/internal/providers"
	"github.com/khidma-co/khidma/internal/reference"
	"github.com/khidma-co/khidma/internal/requests"
	"github.com/khidma-co/khidma/internal/responses"
	"github.com/khidma-co/khidma/internal/verification"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Requests     requests.System
	Responses    responses.System
	Broadcasts   broadcasts.System
	Providers    providers.System
	Verification verification.System
	Ops          ops.System
	Reference    reference.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	requestsSystem := requests.New(
		db,
		runtime.Logger,
		runtime.Pagination,
	)

	responsesSystem := responses.New(
		db,
		runtime.Notifier,
		runtime.Logger,
		runtime.Pagination,
	)

	broadcastsSystem := broadcasts.New(
		db,
		requestsSystem,
		runtime.Notifier,
		runtime.Logger,
		runtime.Pagination,
	)

	providersSystem := providers.New(
		db,
		runtime.Logger,
		runtime.Pagination,
		cfg.Engine.FlagThreshold,
	)

	verificationSystem := verification.New(
		cfg.Verification,
		runtime.Notifier,
		runtime.Logger,
	)

	opsSystem := ops.New(
		db,
		runtime.Logger,
		cfg.Engine,
	)

	referenceSystem := reference.New(
		db,
		runtime.Logger,
	)

	return &Domain{
		Requests:     requestsSystem,
		Responses:    responsesSystem,
		Broadcasts:   broadcastsSystem,
		Providers:    providersSystem,
		Verification: verificationSystem,
		Ops:          opsSystem,
		Reference:    referenceSystem,
	}
}
