// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/handshake/internal/adapter"
	authctrl "github.com/dropDatabas3/handshake/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/handshake/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/handshake/internal/http/errors"
	mw "github.com/dropDatabas3/handshake/internal/http/middlewares"
	"github.com/dropDatabas3/handshake/internal/storage"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Registry *adapter.Registry
	Store    storage.Store
	Session  mw.SessionConfig
	Version  string
}

// New construye el handler raíz con middlewares y rutas registradas.
func New(deps Deps) http.Handler {
	auth := authctrl.NewControllers(deps.Registry, deps.Store)
	health := healthctrl.NewHealthController(deps.Store, deps.Version)

	r := chi.NewRouter()

	// Cadena base: recover primero, luego request id y logging.
	r.Use(mw.WithRecover())
	r.Use(mw.WithRequestID())
	r.Use(mw.WithLogging())
	r.Use(mw.WithSecurityHeaders())

	// Rutas del flujo: todas cuelgan de la sesión del navegador y nunca
	// se cachean.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore())
		r.Use(mw.WithSession(deps.Session))

		r.Get("/auth/{provider}", auth.Auth.Authenticate)
		r.Get("/auth/{provider}/callback", auth.Auth.Authenticate)
		r.Get("/auth/{provider}/profile", auth.Auth.Profile)
		r.Post("/auth/{provider}/disconnect", auth.Auth.Disconnect)
	})

	r.Get("/providers", auth.Providers.List)
	r.Get("/healthz", health.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	return r
}
