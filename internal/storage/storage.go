// Package storage provee el session store que sobrevive entre los dos
// requests HTTP de un flujo de login delegado.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//   - Postgres (cuando ya hay una base relacional en el stack)
//
// Las keys siguen el contrato `{providerId}.{suffix}`; el slot
// `{providerId}.user` ES el estado de autenticación — no existe un flag
// aparte.
package storage

import (
	"context"
	"time"
)

// Sufijos de slot por proveedor.
const (
	SuffixUser         = "user"
	SuffixToken        = "token"
	SuffixRequestToken = "request_token"
	// SuffixEndpoint fija el endpoint descubierto en begin; la
	// verificación del callback sólo acepta ese endpoint.
	SuffixEndpoint = "endpoint"
)

// Store define las operaciones del session store. Los valores son
// records serializados opacos (UserProfile o pares de token).
type Store interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL opcional. Si ttl es 0, no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete elimina una key. Borrar una key inexistente no es error.
	Delete(ctx context.Context, key string) error

	// Ping verifica la conexión al backend.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config configuración para crear un store.
type Config struct {
	Driver   string // "memory" | "redis" | "postgres"
	Addr     string // redis addr
	Password string
	DB       int
	DSN      string // postgres dsn
	Prefix   string // prefijo para todas las keys
}

// Errores del store.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "storage: key not found" }

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// Key arma la key canónica `{providerId}.{suffix}`.
func Key(providerID, suffix string) string {
	return providerID + "." + suffix
}

// New crea un store según la configuración.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "postgres":
		return NewPostgres(ctx, cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return NewMemory(cfg.Prefix), nil
	}
}

// namespaced envuelve un Store con un prefijo adicional. El layer HTTP
// lo usa para aislar cada sesión de navegador: dos usuarios con el
// mismo provider no comparten slots.
type namespaced struct {
	inner  Store
	prefix string
}

// Namespaced retorna una vista del store con prefijo `ns:`.
func Namespaced(s Store, ns string) Store {
	if ns == "" {
		return s
	}
	return &namespaced{inner: s, prefix: ns + ":"}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return n.inner.Set(ctx, n.prefix+key, value, ttl)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

func (n *namespaced) Ping(ctx context.Context) error { return n.inner.Ping(ctx) }

func (n *namespaced) Close() error { return nil } // el dueño del store cierra
