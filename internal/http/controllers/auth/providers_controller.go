package auth

import (
	"net/http"

	"github.com/dropDatabas3/handshake/internal/adapter"
)

// ProvidersController expone la lista de conexiones configuradas.
type ProvidersController struct {
	registry *adapter.Registry
}

// NewProvidersController crea el controller de providers.
func NewProvidersController(registry *adapter.Registry) *ProvidersController {
	return &ProvidersController{registry: registry}
}

// List maneja GET /providers.
func (c *ProvidersController) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"providers": c.registry.Providers()})
}
