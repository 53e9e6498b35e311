// Package auth contiene los controllers del flujo de autenticación delegada.
package auth

import (
	"github.com/dropDatabas3/handshake/internal/adapter"
	"github.com/dropDatabas3/handshake/internal/storage"
)

// Controllers agrupa los controllers del flujo para el router.
type Controllers struct {
	Auth      *AuthController
	Providers *ProvidersController
}

// NewControllers construye los controllers con sus dependencias.
func NewControllers(registry *adapter.Registry, store storage.Store) *Controllers {
	return &Controllers{
		Auth:      NewAuthController(registry, store),
		Providers: NewProvidersController(registry),
	}
}
