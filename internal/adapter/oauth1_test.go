package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/handshake/internal/storage"
)

// oauth1Provider fakes the three provider legs.
type oauth1Provider struct {
	srv            *httptest.Server
	exchangeCalls  int
	resourceCalls  int
	requestToken   string
	requestSecret  string
	accessToken    string
	accessSecret   string
	resourceStatus int
}

func newOAuth1Provider(t *testing.T) *oauth1Provider {
	t.Helper()
	p := &oauth1Provider{
		requestToken:   "req-tok",
		requestSecret:  "req-sec",
		accessToken:    "acc-tok",
		accessSecret:   "acc-sec",
		resourceStatus: http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/request_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("oauth_consumer_key") == "" || r.PostForm.Get("oauth_signature") == "" {
			http.Error(w, "unsigned", http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, "oauth_token=%s&oauth_token_secret=%s&oauth_callback_confirmed=true",
			p.requestToken, p.requestSecret)
	})
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		p.exchangeCalls++
		_ = r.ParseForm()
		if r.PostForm.Get("oauth_verifier") == "" || r.PostForm.Get("oauth_token") != p.requestToken {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, "oauth_token=%s&oauth_token_secret=%s", p.accessToken, p.accessSecret)
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		p.resourceCalls++
		if p.resourceStatus != http.StatusOK {
			w.WriteHeader(p.resourceStatus)
			return
		}
		fmt.Fprint(w, `{"id": 12345, "name": "Alice Liddell", "screen_name": "alice", "email": "alice@example.com", "lang": "en"}`)
	})
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *oauth1Provider) config() OAuth1Config {
	return OAuth1Config{
		ProviderID:      "birdsite",
		ConsumerKey:     "ckey",
		ConsumerSecret:  "csecret",
		RequestTokenURL: p.srv.URL + "/request_token",
		AuthorizeURL:    p.srv.URL + "/authorize",
		AccessTokenURL:  p.srv.URL + "/access_token",
		ResourceURL:     p.srv.URL + "/me",
		CallbackURL:     "https://rp.example.com/auth/birdsite/callback",
		IdentifierField: "id",
		AttributeMap: map[string]string{
			"name":        "namePerson",
			"screen_name": "namePerson/friendly",
			"email":       "contact/email",
			"lang":        "pref/language",
		},
	}
}

func TestNewOAuth1_ConfigValidation(t *testing.T) {
	store := storage.NewMemory("")

	_, err := NewOAuth1(OAuth1Config{ProviderID: "x"}, store)
	require.ErrorIs(t, err, ErrConfiguration)

	cfg := OAuth1Config{
		ProviderID: "x", ConsumerKey: "k", ConsumerSecret: "s",
		RequestTokenURL: "u", AuthorizeURL: "u", AccessTokenURL: "u",
		CallbackURL: "cb", SignatureMethod: "MD5-NOPE",
	}
	_, err = NewOAuth1(cfg, store)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestOAuth1_BeginParksRequestToken(t *testing.T) {
	ctx := context.Background()
	p := newOAuth1Provider(t)
	store := storage.NewMemory("")
	a, err := NewOAuth1(p.config(), store)
	require.NoError(t, err)

	res, err := a.Authenticate(ctx, &Request{})
	require.NoError(t, err)
	require.Nil(t, res.Profile)

	u, err := url.Parse(res.RedirectURL)
	require.NoError(t, err)
	require.Equal(t, "/authorize", u.Path)
	require.Equal(t, "req-tok", u.Query().Get("oauth_token"))

	// the token pair must survive until the callback leg
	raw, err := store.Get(ctx, "birdsite.request_token")
	require.NoError(t, err)
	require.Contains(t, raw, "req-tok")
	require.Contains(t, raw, "req-sec")
}

func TestOAuth1_FullFlow(t *testing.T) {
	ctx := context.Background()
	p := newOAuth1Provider(t)
	store := storage.NewMemory("")
	a, err := NewOAuth1(p.config(), store)
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, &Request{})
	require.NoError(t, err)

	res, err := a.Authenticate(ctx, &Request{Query: url.Values{
		"oauth_token":    {"req-tok"},
		"oauth_verifier": {"verif-1"},
	}})
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	require.True(t, res.Completed)
	require.Equal(t, "12345", res.Profile.Identifier)
	require.Equal(t, "Alice Liddell", res.Profile.DisplayName)
	require.Equal(t, "alice@example.com", res.Profile.Email)
	require.Equal(t, "en", res.Profile.Language)

	// access token landed in its slot, request token slot is gone
	_, err = store.Get(ctx, "birdsite.token")
	require.NoError(t, err)
	_, err = store.Get(ctx, "birdsite.request_token")
	require.True(t, storage.IsNotFound(err))

	// idempotent short-circuit: no more provider traffic
	exchanges, resources := p.exchangeCalls, p.resourceCalls
	res2, err := a.Authenticate(ctx, &Request{})
	require.NoError(t, err)
	require.Equal(t, res.Profile, res2.Profile)
	require.False(t, res2.Completed, "replaying the stored profile is not a fresh completion")
	require.Equal(t, exchanges, p.exchangeCalls)
	require.Equal(t, resources, p.resourceCalls)
}

func TestOAuth1_CallbackTokenMismatch(t *testing.T) {
	ctx := context.Background()
	p := newOAuth1Provider(t)
	store := storage.NewMemory("")
	a, err := NewOAuth1(p.config(), store)
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, &Request{})
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, &Request{Query: url.Values{
		"oauth_token":    {"forged"},
		"oauth_verifier": {"v"},
	}})
	require.ErrorIs(t, err, ErrInvalidAssertion)
	require.False(t, a.IsAuthorized(ctx))
}

func TestOAuth1_CallbackWithoutPendingToken(t *testing.T) {
	ctx := context.Background()
	p := newOAuth1Provider(t)
	a, err := NewOAuth1(p.config(), storage.NewMemory(""))
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, &Request{Query: url.Values{
		"oauth_token":    {"req-tok"},
		"oauth_verifier": {"v"},
	}})
	require.ErrorIs(t, err, ErrInvalidAssertion)
}

func TestOAuth1_ResourceFailureIsTransport(t *testing.T) {
	ctx := context.Background()
	p := newOAuth1Provider(t)
	p.resourceStatus = http.StatusInternalServerError
	store := storage.NewMemory("")
	a, err := NewOAuth1(p.config(), store)
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, &Request{})
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, &Request{Query: url.Values{
		"oauth_token":    {"req-tok"},
		"oauth_verifier": {"v"},
	}})
	require.ErrorIs(t, err, ErrTransport)

	// no partial profile persists
	require.False(t, a.IsAuthorized(ctx))
}
