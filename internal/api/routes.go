package api

import (
	"net/http"

	"github.com/khidma-co/khidma/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(
		mux,
		domain.Requests.Handler().Routes(),
		domain.Responses.Handler().Routes(),
		domain.Broadcasts.Handler().Routes(),
		domain.Providers.Handler().Routes(),
		domain.Verification.Handler().Routes(),
		domain.Ops.Handler().Routes(),
		domain.Reference.Handler().Routes(),
	)
}
