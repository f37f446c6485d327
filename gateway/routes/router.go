package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/gateway/middleware"
)

// Scopes required by the protected route groups.
const (
	ScopeFarmWrite      = "farm.write"
	ScopeFarmAdmin      = "farm.admin"
	ScopeTreasuryCredit = "treasury.credit"
)

type Config struct {
	Farm          *FarmRoutes
	Treasury      *TreasuryRoutes
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
}

// New assembles the gateway router. Reads are open; writes require the farm
// scope, registry and parameter changes the admin scope, and reward credits
// the treasury scope.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	auth := func(scopes ...string) func(http.Handler) http.Handler {
		if cfg.Authenticator == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return cfg.Authenticator.Middleware(scopes...)
	}
	limit := func(key string) func(http.Handler) http.Handler {
		if cfg.RateLimiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return cfg.RateLimiter.Middleware(key)
	}

	if cfg.Farm != nil {
		r.Route("/v1/farm", func(sr chi.Router) {
			sr.Use(limit("farm"))
			cfg.Farm.MountReads(sr)
			sr.Group(func(gr chi.Router) {
				gr.Use(auth(ScopeFarmWrite))
				cfg.Farm.MountWrites(gr)
			})
			sr.Group(func(gr chi.Router) {
				gr.Use(auth(ScopeFarmAdmin))
				cfg.Farm.MountAdmin(gr)
			})
		})
	}

	if cfg.Treasury != nil {
		r.Route("/v1/treasury", func(sr chi.Router) {
			sr.Use(limit("treasury"))
			cfg.Treasury.MountReads(sr)
			sr.Group(func(gr chi.Router) {
				gr.Use(auth(ScopeFarmWrite))
				cfg.Treasury.MountWrites(gr)
			})
			sr.Group(func(gr chi.Router) {
				gr.Use(auth(ScopeFarmAdmin))
				cfg.Treasury.MountAdmin(gr)
			})
			sr.Group(func(gr chi.Router) {
				gr.Use(auth(ScopeTreasuryCredit))
				cfg.Treasury.MountCredit(gr)
			})
		})
	}

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	return r
}
