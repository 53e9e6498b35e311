package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/handshake/internal/observability/logger"
	"github.com/dropDatabas3/handshake/internal/openid"
	"github.com/dropDatabas3/handshake/internal/profile"
	"github.com/dropDatabas3/handshake/internal/storage"
)

// OpenIDConfig configures an OpenID 2.0 provider connection.
type OpenIDConfig struct {
	// ProviderID is the connection name, unique per configuration.
	ProviderID string

	// ClaimedID is the OpenID identifier to authenticate against.
	ClaimedID string

	// CallbackURL is this service's endpoint the provider returns to.
	CallbackURL string

	// Realm is the trust root; defaults to the CallbackURL origin.
	Realm string

	// HTTPClient is the outbound transport. nil gets a sane default.
	HTTPClient *http.Client
}

// openIDAdapter implements Adapter for OpenID 2.0 providers.
//
// OpenID providers release the full profile exactly once, in the
// callback assertion, so the finish phase is the only chance to
// capture it; afterwards the stored copy is the profile.
type openIDAdapter struct {
	base
	client *openid.Client
}

// NewOpenID builds an OpenID adapter. Missing identifiers are a
// ConfigurationError.
func NewOpenID(cfg OpenIDConfig, store storage.Store) (Adapter, error) {
	if cfg.ProviderID == "" {
		return nil, fmt.Errorf("%w: provider id is required", ErrConfiguration)
	}
	if cfg.ClaimedID == "" {
		return nil, fmt.Errorf("%w: openid adapter %q requires a claimed identifier", ErrConfiguration, cfg.ProviderID)
	}
	if cfg.CallbackURL == "" {
		return nil, fmt.Errorf("%w: openid adapter %q requires a callback url", ErrConfiguration, cfg.ProviderID)
	}

	return &openIDAdapter{
		base: base{id: cfg.ProviderID, store: store},
		client: openid.NewClient(cfg.ClaimedID, cfg.CallbackURL, cfg.Realm,
			profile.RequestedAttributes(), cfg.HTTPClient),
	}, nil
}

func (a *openIDAdapter) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	if p, err := a.loadProfile(ctx); err == nil {
		return &Result{Profile: p}, nil
	}

	if openid.Mode(url.Values(req.Query)) == "" {
		return a.begin(ctx)
	}
	return a.finish(ctx, req)
}

// begin discovers the provider endpoint and suspends the flow at the
// authorization redirect.
func (a *openIDAdapter) begin(ctx context.Context) (*Result, error) {
	log := logger.From(ctx).With(logger.Layer("adapter"), logger.Component("openid"), logger.Provider(a.id))

	endpoint, err := a.client.Discover(ctx)
	if err != nil {
		log.Error("discovery failed", logger.Err(err))
		return nil, fmt.Errorf("%w: discovery: %v", ErrTransport, err)
	}

	authURL, err := a.client.AuthURL(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	// The discovered endpoint is the only one the callback assertion
	// may be verified against; park it until the finish leg.
	if err := a.store.Set(ctx, storage.Key(a.id, storage.SuffixEndpoint), endpoint, 0); err != nil {
		return nil, fmt.Errorf("persist endpoint: %w", err)
	}

	log.Info("authorization redirect issued", logger.String("endpoint", endpoint))
	return &Result{RedirectURL: authURL}, nil
}

// finish validates the returned assertion and persists the profile.
// This is the one-time fetch: the attributes in this assertion are the
// only ones the provider will ever release.
func (a *openIDAdapter) finish(ctx context.Context, req *Request) (*Result, error) {
	log := logger.From(ctx).With(logger.Layer("adapter"), logger.Component("openid"), logger.Provider(a.id))

	// Verification only ever targets the endpoint begin discovered. A
	// missing slot leaves it empty and the assertion is rejected.
	endpoint, err := a.store.Get(ctx, storage.Key(a.id, storage.SuffixEndpoint))
	if err != nil {
		endpoint = ""
	}

	bag, err := a.client.Validate(ctx, url.Values(req.Query), endpoint)
	if err != nil {
		switch {
		case errors.Is(err, openid.ErrCancelled):
			log.Info("user cancelled at provider")
			return nil, fmt.Errorf("%w: %v", ErrUserCancelled, err)
		case errors.Is(err, openid.ErrInvalid):
			log.Warn("assertion rejected", logger.Bool("security_event", true), logger.Err(err))
			return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
		default:
			log.Error("verification request failed", logger.Err(err))
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}
	}

	identifier := req.Get("openid.claimed_id")
	if identifier == "" {
		identifier = a.client.ClaimedID
	}

	p := profile.Normalize(bag, identifier)
	if err := a.saveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}
	_ = a.store.Delete(ctx, storage.Key(a.id, storage.SuffixEndpoint))

	log.Info("authentication finished", logger.String("identifier", identifier))
	return &Result{Profile: p, Completed: true}, nil
}
