// Package adapter drives the two-phase delegated login flow shared by
// every protocol family: begin (redirect the user out) and finish
// (validate the proof the provider sent back, normalize the released
// attributes, persist the profile once).
//
// Adapters are stateless between calls; everything that must survive
// the external redirect lives in the session store under
// `{providerId}.{suffix}` slots.
package adapter

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dropDatabas3/handshake/internal/profile"
	"github.com/dropDatabas3/handshake/internal/storage"
)

// Error kinds surfaced to callers. Everything an adapter returns wraps
// one of these.
var (
	// ErrConfiguration means a required identifier or credential is
	// missing. Fatal at construction.
	ErrConfiguration = errors.New("adapter: invalid configuration")

	// ErrUserCancelled means the user declined at the provider. Never
	// retried automatically.
	ErrUserCancelled = errors.New("adapter: user cancelled authentication")

	// ErrInvalidAssertion means the returned proof failed signature,
	// token or endpoint checks. Security relevant.
	ErrInvalidAssertion = errors.New("adapter: invalid assertion")

	// ErrTransport means a network failure talking to the provider.
	// The caller may restart the whole flow.
	ErrTransport = errors.New("adapter: provider unreachable")

	// ErrProfileUnavailable means a profile was requested without a
	// completed flow.
	ErrProfileUnavailable = errors.New("adapter: user is not connected")
)

// Request is the inbound HTTP request context an adapter needs: just
// the query parameters of the current callback-endpoint hit. Passing it
// explicitly keeps the state machine free of ambient globals.
type Request struct {
	Query map[string][]string
}

// Get returns the first value for a query parameter.
func (r *Request) Get(key string) string {
	if r == nil || r.Query == nil {
		return ""
	}
	vs := r.Query[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Result is the outcome of one Authenticate call. Exactly one of
// RedirectURL and Profile is set: RedirectURL when the flow suspends at
// the begin redirect, Profile when the flow is complete.
type Result struct {
	RedirectURL string
	Profile     *profile.UserProfile

	// Completed marks that this call ran the finish leg, as opposed to
	// replaying an already stored profile. The HTTP layer counts flow
	// completions off it.
	Completed bool
}

// Adapter is the caller-facing capability set every protocol family
// implements.
type Adapter interface {
	// ProviderID returns the configured provider identifier.
	ProviderID() string

	// Authenticate runs one step of the flow: short-circuits if a
	// profile is already stored, begins otherwise, or finishes when
	// the request carries the protocol's callback marker.
	Authenticate(ctx context.Context, req *Request) (*Result, error)

	// IsAuthorized reports whether the `{providerId}.user` slot holds
	// a profile. That slot is the authentication state.
	IsAuthorized(ctx context.Context) bool

	// Disconnect clears the user and token slots. Always succeeds.
	Disconnect(ctx context.Context) bool

	// UserProfile returns the stored profile, or ErrProfileUnavailable.
	UserProfile(ctx context.Context) (*profile.UserProfile, error)
}

// base carries the storage plumbing shared by the concrete adapters.
type base struct {
	id    string
	store storage.Store
}

func (b *base) ProviderID() string { return b.id }

func (b *base) IsAuthorized(ctx context.Context) bool {
	_, err := b.store.Get(ctx, storage.Key(b.id, storage.SuffixUser))
	return err == nil
}

func (b *base) Disconnect(ctx context.Context) bool {
	_ = b.store.Delete(ctx, storage.Key(b.id, storage.SuffixUser))
	_ = b.store.Delete(ctx, storage.Key(b.id, storage.SuffixToken))
	_ = b.store.Delete(ctx, storage.Key(b.id, storage.SuffixRequestToken))
	_ = b.store.Delete(ctx, storage.Key(b.id, storage.SuffixEndpoint))
	return true
}

func (b *base) UserProfile(ctx context.Context) (*profile.UserProfile, error) {
	return b.loadProfile(ctx)
}

func (b *base) loadProfile(ctx context.Context) (*profile.UserProfile, error) {
	raw, err := b.store.Get(ctx, storage.Key(b.id, storage.SuffixUser))
	if err != nil {
		return nil, ErrProfileUnavailable
	}
	var p profile.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, ErrProfileUnavailable
	}
	return &p, nil
}

// saveProfile persists the normalized profile. It is only called after
// validation and normalization both succeeded, so persistence is
// all-or-nothing.
func (b *base) saveProfile(ctx context.Context, p *profile.UserProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return b.store.Set(ctx, storage.Key(b.id, storage.SuffixUser), string(raw), 0)
}
