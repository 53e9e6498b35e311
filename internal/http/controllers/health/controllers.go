// Package health contiene el controller para health checks.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dropDatabas3/handshake/internal/observability/logger"
	"github.com/dropDatabas3/handshake/internal/storage"
)

// HealthController maneja las rutas de health check.
type HealthController struct {
	store   storage.Store
	version string
}

// NewHealthController crea un nuevo controller de health check.
func NewHealthController(store storage.Store, version string) *HealthController {
	return &HealthController{store: store, version: version}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Storage string `json:"storage"`
}

// Healthz maneja GET /healthz. Responde 503 si el backend de sesiones
// no contesta el ping.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ready", Version: c.version, Storage: "up"}
	status := http.StatusOK

	if err := c.store.Ping(ctx); err != nil {
		logger.From(ctx).Warn("storage ping failed", logger.Err(err))
		resp.Status = "unavailable"
		resp.Storage = "down"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
