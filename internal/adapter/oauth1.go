package adapter

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/handshake/internal/oauth1"
	"github.com/dropDatabas3/handshake/internal/observability/logger"
	"github.com/dropDatabas3/handshake/internal/profile"
	"github.com/dropDatabas3/handshake/internal/security/secretbox"
	"github.com/dropDatabas3/handshake/internal/storage"
)

// OAuth1Config configures an OAuth 1.0a provider connection.
type OAuth1Config struct {
	ProviderID     string
	ConsumerKey    string
	ConsumerSecret string

	// Provider endpoints.
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string

	// ResourceURL is the profile endpoint queried after the token
	// exchange. It must answer a flat JSON object.
	ResourceURL string

	// CallbackURL is this service's endpoint the provider returns to.
	CallbackURL string

	// IdentifierField is the JSON field holding the provider's user id.
	IdentifierField string

	// AttributeMap maps resource JSON fields to attribute paths, so the
	// OAuth1 flow feeds the same normalizer the OpenID flow does
	// (e.g. "screen_name" -> "namePerson/friendly").
	AttributeMap map[string]string

	// SignatureMethod selects the signer: "HMAC-SHA1" (default),
	// "RSA-SHA1" or "PLAINTEXT".
	SignatureMethod string

	// RSAPrivateKeyPEM is the PKCS#1 or PKCS#8 private key for RSA-SHA1.
	RSAPrivateKeyPEM string

	// SealTokens encrypts the stored access token at rest.
	SealTokens bool

	HTTPClient *http.Client
}

// oauth1Adapter implements Adapter for OAuth 1.0a providers.
type oauth1Adapter struct {
	base
	cfg    OAuth1Config
	client *oauth1.Client
}

// NewOAuth1 builds an OAuth1 adapter. Missing credentials or endpoints
// are a ConfigurationError.
func NewOAuth1(cfg OAuth1Config, store storage.Store) (Adapter, error) {
	if cfg.ProviderID == "" {
		return nil, fmt.Errorf("%w: provider id is required", ErrConfiguration)
	}
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, fmt.Errorf("%w: oauth1 adapter %q requires consumer credentials", ErrConfiguration, cfg.ProviderID)
	}
	if cfg.RequestTokenURL == "" || cfg.AuthorizeURL == "" || cfg.AccessTokenURL == "" {
		return nil, fmt.Errorf("%w: oauth1 adapter %q requires request/authorize/access endpoints", ErrConfiguration, cfg.ProviderID)
	}
	if cfg.CallbackURL == "" {
		return nil, fmt.Errorf("%w: oauth1 adapter %q requires a callback url", ErrConfiguration, cfg.ProviderID)
	}

	var signer oauth1.Signer
	switch cfg.SignatureMethod {
	case "", "HMAC-SHA1":
		signer = oauth1.HMACSHA1()
	case "RSA-SHA1":
		key, err := parseRSAKey(cfg.RSAPrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("%w: oauth1 adapter %q: rsa key: %v", ErrConfiguration, cfg.ProviderID, err)
		}
		signer = oauth1.RSASHA1(key)
	case "PLAINTEXT":
		signer = oauth1.Plaintext()
	default:
		return nil, fmt.Errorf("%w: oauth1 adapter %q: unsupported signature method %q", ErrConfiguration, cfg.ProviderID, cfg.SignatureMethod)
	}

	builder := oauth1.NewRequestBuilder(cfg.ConsumerKey, cfg.ConsumerSecret, signer)
	client := oauth1.NewClient(builder, oauth1.Endpoints{
		RequestTokenURL: cfg.RequestTokenURL,
		AuthorizeURL:    cfg.AuthorizeURL,
		AccessTokenURL:  cfg.AccessTokenURL,
	}, cfg.HTTPClient)

	return &oauth1Adapter{
		base:   base{id: cfg.ProviderID, store: store},
		cfg:    cfg,
		client: client,
	}, nil
}

func (a *oauth1Adapter) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	if p, err := a.loadProfile(ctx); err == nil {
		return &Result{Profile: p}, nil
	}

	// oauth_token + oauth_verifier is the callback marker.
	if req.Get("oauth_token") == "" || req.Get("oauth_verifier") == "" {
		return a.begin(ctx)
	}
	return a.finish(ctx, req)
}

// begin obtains a request token, parks it for the callback leg, and
// suspends at the authorize redirect.
func (a *oauth1Adapter) begin(ctx context.Context) (*Result, error) {
	log := logger.From(ctx).With(logger.Layer("adapter"), logger.Component("oauth1"), logger.Provider(a.id))

	reqToken, err := a.client.RequestToken(ctx, a.cfg.CallbackURL)
	if err != nil {
		log.Error("request token leg failed", logger.Err(err))
		return nil, fmt.Errorf("%w: request token: %v", ErrTransport, err)
	}

	raw, err := json.Marshal(reqToken)
	if err != nil {
		return nil, err
	}
	if err := a.store.Set(ctx, storage.Key(a.id, storage.SuffixRequestToken), string(raw), 0); err != nil {
		return nil, fmt.Errorf("persist request token: %w", err)
	}

	log.Info("authorization redirect issued")
	return &Result{RedirectURL: a.client.AuthorizeURL(reqToken)}, nil
}

// finish exchanges the authorized request token, stores the access
// token, fetches the profile resource and persists the normalized
// profile.
func (a *oauth1Adapter) finish(ctx context.Context, req *Request) (*Result, error) {
	log := logger.From(ctx).With(logger.Layer("adapter"), logger.Component("oauth1"), logger.Provider(a.id))

	reqToken, err := a.loadRequestToken(ctx)
	if err != nil {
		log.Warn("callback without a pending request token", logger.Bool("security_event", true))
		return nil, fmt.Errorf("%w: no pending request token", ErrInvalidAssertion)
	}
	if req.Get("oauth_token") != reqToken.Key {
		log.Warn("callback token mismatch", logger.Bool("security_event", true))
		return nil, fmt.Errorf("%w: token mismatch", ErrInvalidAssertion)
	}

	accessToken, err := a.client.AccessToken(ctx, reqToken, req.Get("oauth_verifier"))
	if err != nil {
		log.Error("access token exchange failed", logger.Err(err))
		return nil, fmt.Errorf("%w: access token exchange: %v", ErrTransport, err)
	}

	if err := a.storeAccessToken(ctx, accessToken); err != nil {
		return nil, fmt.Errorf("persist access token: %w", err)
	}

	body, err := a.client.Get(ctx, accessToken, a.cfg.ResourceURL)
	if err != nil {
		log.Error("resource fetch failed", logger.Err(err))
		return nil, fmt.Errorf("%w: resource fetch: %v", ErrTransport, err)
	}

	bag, identifier, err := a.mapResource(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	p := profile.Normalize(bag, identifier)
	if err := a.saveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}
	_ = a.store.Delete(ctx, storage.Key(a.id, storage.SuffixRequestToken))

	log.Info("authentication finished", logger.String("identifier", identifier))
	return &Result{Profile: p, Completed: true}, nil
}

func (a *oauth1Adapter) loadRequestToken(ctx context.Context) (*oauth1.Token, error) {
	raw, err := a.store.Get(ctx, storage.Key(a.id, storage.SuffixRequestToken))
	if err != nil {
		return nil, err
	}
	var tok oauth1.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (a *oauth1Adapter) storeAccessToken(ctx context.Context, tok *oauth1.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	value := string(raw)
	if a.cfg.SealTokens {
		if value, err = secretbox.Seal(value); err != nil {
			return err
		}
	}
	return a.store.Set(ctx, storage.Key(a.id, storage.SuffixToken), value, 0)
}

// mapResource flattens the resource JSON and rewrites fields into
// attribute paths per the configured mapping.
func (a *oauth1Adapter) mapResource(body []byte) (profile.AttributeBag, string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, "", fmt.Errorf("resource response is not a JSON object: %v", err)
	}

	flat := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			flat[k] = t
		case float64:
			flat[k] = trimFloat(t)
		case bool:
			if t {
				flat[k] = "true"
			} else {
				flat[k] = "false"
			}
		}
	}

	bag := make(profile.AttributeBag, len(a.cfg.AttributeMap))
	for field, path := range a.cfg.AttributeMap {
		bag.Set(path, flat[field])
	}

	identifier := flat[a.cfg.IdentifierField]
	if identifier == "" {
		return nil, "", fmt.Errorf("resource response lacks identifier field %q", a.cfg.IdentifierField)
	}
	return bag, identifier, nil
}

// parseRSAKey accepts PKCS#1 ("RSA PRIVATE KEY") and PKCS#8
// ("PRIVATE KEY") PEM blocks.
func parseRSAKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA key")
	}
	return key, nil
}

// trimFloat renders JSON numbers without a trailing ".000000" so
// numeric user ids survive as the provider sent them.
func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
