// Package app arma el contenedor de dependencias del servicio a partir
// de la configuración.
package app

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/handshake/internal/adapter"
	"github.com/dropDatabas3/handshake/internal/config"
	"github.com/dropDatabas3/handshake/internal/storage"
)

// Container agrupa las dependencias compartidas del servicio.
type Container struct {
	Config   *config.Config
	Store    storage.Store
	Registry *adapter.Registry
}

// Build conecta el storage y registra las conexiones de proveedores.
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	store, err := storage.New(ctx, storage.Config{
		Driver:   cfg.Storage.Driver,
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
		DSN:      cfg.Storage.Postgres.DSN,
		Prefix:   cfg.Storage.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	registry := adapter.NewRegistry()
	for _, p := range cfg.Providers {
		p := p
		switch p.Protocol {
		case "oauth1":
			registry.Register(p.Name, func(store storage.Store) (adapter.Adapter, error) {
				return adapter.NewOAuth1(adapter.OAuth1Config{
					ProviderID:       p.Name,
					ConsumerKey:      p.ConsumerKey,
					ConsumerSecret:   p.ConsumerSecret,
					RequestTokenURL:  p.RequestTokenURL,
					AuthorizeURL:     p.AuthorizeURL,
					AccessTokenURL:   p.AccessTokenURL,
					ResourceURL:      p.ResourceURL,
					CallbackURL:      p.CallbackURL,
					IdentifierField:  p.IdentifierField,
					AttributeMap:     p.AttributeMap,
					SignatureMethod:  p.SignatureMethod,
					RSAPrivateKeyPEM: p.RSAPrivateKeyPEM,
					SealTokens:       p.SealTokens,
				}, store)
			})
		case "openid":
			registry.Register(p.Name, func(store storage.Store) (adapter.Adapter, error) {
				return adapter.NewOpenID(adapter.OpenIDConfig{
					ProviderID:  p.Name,
					ClaimedID:   p.ClaimedID,
					CallbackURL: p.CallbackURL,
					Realm:       p.Realm,
				}, store)
			})
		}
	}

	return &Container{Config: cfg, Store: store, Registry: registry}, nil
}

// Close libera los recursos del contenedor.
func (c *Container) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
