package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dkarlss/storefront/internal/config"
	"github.com/dkarlss/storefront/pkg/health"
	"github.com/dkarlss/storefront/pkg/middleware"
)

// routeHandler registers a module's endpoints on a router group.
type routeHandler interface {
	RegisterRoutes(r chi.Router)
}

// handlers collects every HTTP handler mounted by the server.
type handlers struct {
	catalog        routeHandler
	identityPublic func(r chi.Router)
	identityMe     func(r chi.Router)
	cart           routeHandler
	checkout       routeHandler
	orders         routeHandler
	payment        routeHandler
}

// newRouter builds the chi router: public catalog and auth endpoints, then
// everything else behind bearer authentication.
func newRouter(
	cfg *config.Config,
	h handlers,
	verify middleware.TokenVerifier,
	healthHandler *health.Handler,
	log *slog.Logger,
) http.Handler {
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins
	corsCfg.Environment = cfg.Environment

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogging(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics())
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.CORS(corsCfg))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		h.catalog.RegisterRoutes(r)
		h.identityPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(verify, log))

			h.identityMe(r)
			h.cart.RegisterRoutes(r)
			h.checkout.RegisterRoutes(r)
			h.orders.RegisterRoutes(r)
			h.payment.RegisterRoutes(r)
		})
	})

	return r
}
