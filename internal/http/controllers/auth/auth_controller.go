package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/handshake/internal/adapter"
	httperrors "github.com/dropDatabas3/handshake/internal/http/errors"
	"github.com/dropDatabas3/handshake/internal/http/middlewares"
	"github.com/dropDatabas3/handshake/internal/metrics"
	"github.com/dropDatabas3/handshake/internal/observability/logger"
	"github.com/dropDatabas3/handshake/internal/storage"
)

// AuthController maneja el handshake de dos fases contra los proveedores.
type AuthController struct {
	registry *adapter.Registry
	store    storage.Store
}

// NewAuthController crea el controller del flujo.
func NewAuthController(registry *adapter.Registry, store storage.Store) *AuthController {
	return &AuthController{registry: registry, store: store}
}

// adapterFor instancia el adapter del proveedor sobre la vista de store
// de la sesión actual. Dos navegadores nunca comparten slots.
func (c *AuthController) adapterFor(r *http.Request) (adapter.Adapter, string, error) {
	provider := chi.URLParam(r, "provider")
	if provider == "" || !c.registry.Known(provider) {
		return nil, provider, httperrors.ErrProviderNotFound
	}

	sessionStore := storage.Namespaced(c.store, middlewares.GetSessionID(r.Context()))
	a, err := c.registry.Adapter(provider, sessionStore)
	if err != nil {
		return nil, provider, httperrors.FromAdapter(err)
	}
	return a, provider, nil
}

// Authenticate maneja GET /auth/{provider} y GET /auth/{provider}/callback.
// Ambas piernas pasan por el mismo adapter: los parámetros del query
// deciden si es el arranque del flujo o el retorno del proveedor.
func (c *AuthController) Authenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthController.Authenticate"))

	a, provider, err := c.adapterFor(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	start := time.Now()
	res, err := a.Authenticate(ctx, &adapter.Request{Query: r.URL.Query()})
	if err != nil {
		metrics.FlowFailed.WithLabelValues(provider, failureReason(err)).Inc()
		log.Warn("authentication failed", logger.Provider(provider), logger.Err(err))
		httperrors.WriteError(w, httperrors.FromAdapter(err))
		return
	}

	if res.RedirectURL != "" {
		metrics.FlowStarted.WithLabelValues(provider).Inc()
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)
		return
	}

	// El short-circuit idempotente devuelve el perfil guardado sin
	// correr finish; sólo un finish real cuenta como flujo completado.
	if res.Completed {
		metrics.FlowCompleted.WithLabelValues(provider).Inc()
		metrics.ObserveCallback(provider, time.Since(start))
	}
	writeJSON(w, http.StatusOK, res.Profile)
}

// Profile maneja GET /auth/{provider}/profile.
func (c *AuthController) Profile(w http.ResponseWriter, r *http.Request) {
	a, _, err := c.adapterFor(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	p, err := a.UserProfile(r.Context())
	if err != nil {
		httperrors.WriteError(w, httperrors.FromAdapter(err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Disconnect maneja POST /auth/{provider}/disconnect.
// Es idempotente: desconectar una sesión limpia también responde 204.
func (c *AuthController) Disconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthController.Disconnect"))

	a, provider, err := c.adapterFor(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	if !a.Disconnect(ctx) {
		log.Error("disconnect failed", logger.Provider(provider))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, adapter.ErrUserCancelled):
		return "cancelled"
	case errors.Is(err, adapter.ErrInvalidAssertion):
		return "invalid"
	case errors.Is(err, adapter.ErrTransport):
		return "transport"
	case errors.Is(err, adapter.ErrConfiguration):
		return "config"
	default:
		return "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
