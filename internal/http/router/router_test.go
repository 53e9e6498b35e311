package router

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/handshake/internal/adapter"
	mw "github.com/dropDatabas3/handshake/internal/http/middlewares"
	"github.com/dropDatabas3/handshake/internal/metrics"
	"github.com/dropDatabas3/handshake/internal/profile"
	"github.com/dropDatabas3/handshake/internal/storage"
)

// fakeOP sirve el documento XRDS del identificador y el endpoint de
// verificación del proveedor.
type fakeOP struct {
	srv   *httptest.Server
	valid bool
}

func newFakeOP(t *testing.T) *fakeOP {
	t.Helper()
	op := &fakeOP{valid: true}
	mux := http.NewServeMux()
	mux.HandleFunc("/alice", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><xrds:XRDS xmlns:xrds="xri://$xrds"><XRD><Service><Type>http://specs.openid.net/auth/2.0/signon</Type><URI>%s/endpoint</URI></Service></XRD></xrds:XRDS>`, op.srv.URL)
	})
	mux.HandleFunc("/endpoint", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("openid.mode") == "check_authentication" {
			fmt.Fprintf(w, "is_valid:%t\n", op.valid)
			return
		}
		http.Error(w, "unexpected", http.StatusBadRequest)
	})
	op.srv = httptest.NewServer(mux)
	t.Cleanup(op.srv.Close)
	return op
}

func (op *fakeOP) assertion(returnTo string) url.Values {
	return url.Values{
		"openid.ns":           {"http://specs.openid.net/auth/2.0"},
		"openid.mode":         {"id_res"},
		"openid.op_endpoint":  {op.srv.URL + "/endpoint"},
		"openid.return_to":    {returnTo},
		"openid.claimed_id":   {op.srv.URL + "/alice"},
		"openid.sig":          {"c2ln"},
		"openid.signed":       {"op_endpoint,return_to,claimed_id"},
		"openid.ns.ext1":      {"http://openid.net/srv/ax/1.0"},
		"openid.ext1.mode":    {"fetch_response"},
		"openid.ext1.type.a0": {"http://axschema.org/contact/email"},
		"openid.ext1.value.a0": {
			"alice@example.com",
		},
	}
}

// newTestService levanta el servicio completo con un proveedor OpenID
// registrado contra el fake.
func newTestService(t *testing.T, op *fakeOP) (*httptest.Server, *http.Client) {
	t.Helper()

	// el handler se arma después de conocer la URL del servidor, porque
	// el callback del proveedor apunta a ella
	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	registry := adapter.NewRegistry()
	registry.Register("exampleop", func(store storage.Store) (adapter.Adapter, error) {
		return adapter.NewOpenID(adapter.OpenIDConfig{
			ProviderID:  "exampleop",
			ClaimedID:   op.srv.URL + "/alice",
			CallbackURL: srv.URL + "/auth/exampleop/callback",
		}, store)
	})

	handler = New(Deps{
		Registry: registry,
		Store:    storage.NewMemory(""),
		Session:  mw.SessionConfig{Secret: []byte("0123456789abcdef0123456789abcdef")},
		Version:  "test",
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// el redirect al proveedor no debe seguirse
			return http.ErrUseLastResponse
		},
	}
	return srv, client
}

func TestService_FullOpenIDFlow(t *testing.T) {
	op := newFakeOP(t)
	srv, client := newTestService(t, op)

	// begin: 302 al proveedor, con cookie de sesión emitida
	resp, err := client.Get(srv.URL + "/auth/exampleop")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := resp.Location()
	require.NoError(t, err)
	require.Equal(t, "/endpoint", loc.Path)
	require.Equal(t, "checkid_setup", loc.Query().Get("openid.mode"))
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	// finish: el proveedor redirige de vuelta con la aserción firmada
	cb := srv.URL + "/auth/exampleop/callback?" + op.assertion(srv.URL+"/auth/exampleop/callback").Encode()
	resp, err = client.Get(cb)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p profile.UserProfile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	require.Equal(t, "alice@example.com", p.Email)
	require.Equal(t, op.srv.URL+"/alice", p.Identifier)

	// profile: disponible mientras la sesión viva
	resp, err = client.Get(srv.URL + "/auth/exampleop/profile")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// repetir authenticate devuelve el perfil guardado sin contar otro
	// flujo completado
	completed := testutil.ToFloat64(metrics.FlowCompleted.WithLabelValues("exampleop"))
	resp, err = client.Get(srv.URL + "/auth/exampleop")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, completed, testutil.ToFloat64(metrics.FlowCompleted.WithLabelValues("exampleop")))

	// disconnect: idempotente, borra todo rastro
	resp, err = client.Post(srv.URL+"/auth/exampleop/disconnect", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/auth/exampleop/profile")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestService_SessionsAreIsolated(t *testing.T) {
	op := newFakeOP(t)
	srv, client := newTestService(t, op)

	// autenticar en el primer navegador
	resp, err := client.Get(srv.URL + "/auth/exampleop")
	require.NoError(t, err)
	resp.Body.Close()
	cb := srv.URL + "/auth/exampleop/callback?" + op.assertion(srv.URL+"/auth/exampleop/callback").Encode()
	resp, err = client.Get(cb)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// un segundo navegador (sin cookies) no ve el perfil
	other := &http.Client{}
	resp, err = other.Get(srv.URL + "/auth/exampleop/profile")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestService_RejectedAssertionIs401(t *testing.T) {
	op := newFakeOP(t)
	srv, client := newTestService(t, op)

	resp, err := client.Get(srv.URL + "/auth/exampleop")
	require.NoError(t, err)
	resp.Body.Close()

	op.valid = false
	cb := srv.URL + "/auth/exampleop/callback?" + op.assertion(srv.URL+"/auth/exampleop/callback").Encode()
	resp, err = client.Get(cb)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), "INVALID_ASSERTION")
}

func TestService_ForgedEndpointIs401(t *testing.T) {
	op := newFakeOP(t)
	op.valid = false // el proveedor real rechaza la aserción
	srv, client := newTestService(t, op)

	rogueCalls := 0
	rogue := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rogueCalls++
		fmt.Fprint(w, "is_valid:true\n")
	}))
	t.Cleanup(rogue.Close)

	resp, err := client.Get(srv.URL + "/auth/exampleop")
	require.NoError(t, err)
	resp.Body.Close()

	// aserción forjada: apunta la verificación a un endpoint propio y
	// reclama una identidad ajena
	q := op.assertion(srv.URL + "/auth/exampleop/callback")
	q.Set("openid.op_endpoint", rogue.URL)
	q.Set("openid.claimed_id", "https://victim.example.org/alice")
	resp, err = client.Get(srv.URL + "/auth/exampleop/callback?" + q.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, rogueCalls, "la verificación nunca debe llegar al endpoint que eligió la aserción")

	resp, err = client.Get(srv.URL + "/auth/exampleop/profile")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestService_UserCancelIs401(t *testing.T) {
	op := newFakeOP(t)
	srv, client := newTestService(t, op)

	resp, err := client.Get(srv.URL + "/auth/exampleop/callback?openid.mode=cancel")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), "USER_CANCELLED")
}

func TestService_UnknownProviderIs404(t *testing.T) {
	op := newFakeOP(t)
	srv, client := newTestService(t, op)

	resp, err := client.Get(srv.URL + "/auth/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), "PROVIDER_NOT_FOUND")
}

func TestService_ProvidersAndHealth(t *testing.T) {
	op := newFakeOP(t)
	srv, client := newTestService(t, op)

	resp, err := client.Get(srv.URL + "/providers")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, []string{"exampleop"}, out["providers"])

	resp, err = client.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
