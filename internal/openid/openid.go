// Package openid implements the consumer side of the OpenID 2.0
// checkid_setup handshake: endpoint discovery for a claimed identifier,
// authorization URL construction with an Attribute Exchange
// fetch_request, and stateless assertion verification via
// check_authentication.
//
// Association-based (shared secret) verification is deliberately not
// implemented; every assertion is verified directly with the provider,
// which is what the storage-less two-request flow needs.
package openid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dropDatabas3/handshake/internal/profile"
)

const (
	nsOpenID2 = "http://specs.openid.net/auth/2.0"
	nsAX      = "http://openid.net/srv/ax/1.0"
	axSchema  = "http://axschema.org/"

	// identifier_select asks the OP to choose the concrete identity.
	identifierSelect = "http://specs.openid.net/auth/2.0/identifier_select"
)

// Protocol outcomes surfaced to the adapter layer.
var (
	// ErrCancelled means the user declined at the provider.
	ErrCancelled = errors.New("openid: user cancelled authentication")

	// ErrInvalid means the returned assertion failed verification.
	ErrInvalid = errors.New("openid: invalid assertion")
)

// Client performs the begin and finish legs against one provider.
type Client struct {
	// ClaimedID is the user-asserted identifier to authenticate.
	ClaimedID string

	// ReturnTo is the callback URL the provider redirects back to.
	ReturnTo string

	// Realm is the trust root shown to the user. Empty defaults to the
	// ReturnTo origin.
	Realm string

	// Required is the AX attribute path list requested at begin time.
	Required []string

	http *http.Client
}

// NewClient creates a client. httpClient may be nil for a 10s-timeout
// default.
func NewClient(claimedID, returnTo, realm string, required []string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		ClaimedID: claimedID,
		ReturnTo:  returnTo,
		Realm:     realm,
		Required:  required,
		http:      httpClient,
	}
}

// Mode extracts the openid.mode callback marker from request
// parameters. PHP-era providers flatten dots to underscores, so both
// spellings are accepted. Empty means no callback is in flight.
func Mode(params url.Values) string {
	if m := params.Get("openid.mode"); m != "" {
		return m
	}
	return params.Get("openid_mode")
}

// Discover resolves the claimed identifier to the provider's OP
// endpoint: Yadis first (X-XRDS-Location header, then an XRDS body),
// HTML link discovery as fallback.
func (c *Client) Discover(ctx context.Context) (string, error) {
	body, header, err := c.fetch(ctx, c.ClaimedID, "application/xrds+xml, text/html")
	if err != nil {
		return "", err
	}

	if loc := header.Get("X-XRDS-Location"); loc != "" && loc != c.ClaimedID {
		body, _, err = c.fetch(ctx, loc, "application/xrds+xml")
		if err != nil {
			return "", err
		}
	}

	if ep := endpointFromXRDS(body); ep != "" {
		return ep, nil
	}
	if ep := endpointFromHTML(body); ep != "" {
		return ep, nil
	}
	return "", fmt.Errorf("openid: no provider endpoint found for %s", c.ClaimedID)
}

// AuthURL builds the checkid_setup redirect for the given endpoint,
// embedding return_to, realm and the AX fetch_request.
func (c *Client) AuthURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("openid: endpoint: %w", err)
	}

	q := u.Query()
	q.Set("openid.ns", nsOpenID2)
	q.Set("openid.mode", "checkid_setup")
	q.Set("openid.return_to", c.ReturnTo)
	q.Set("openid.realm", c.realm())
	q.Set("openid.claimed_id", c.claimedOrSelect())
	q.Set("openid.identity", c.claimedOrSelect())

	if len(c.Required) > 0 {
		q.Set("openid.ns.ax", nsAX)
		q.Set("openid.ax.mode", "fetch_request")
		aliases := make([]string, 0, len(c.Required))
		for _, path := range c.Required {
			alias := axAlias(path)
			q.Set("openid.ax.type."+alias, axSchema+path)
			aliases = append(aliases, alias)
		}
		q.Set("openid.ax.required", strings.Join(aliases, ","))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Validate verifies a returned assertion against the endpoint the
// caller discovered at begin time. Cancellation and verification
// failure are distinct errors; success yields the released attribute
// bag, total over Required with empty defaults.
//
// The assertion names its own openid.op_endpoint, but that value
// arrives in the callback query and is attacker-writable, so it is
// never used as the verification target: check_authentication always
// goes to endpoint, and the two must agree.
func (c *Client) Validate(ctx context.Context, params url.Values, endpoint string) (profile.AttributeBag, error) {
	switch Mode(params) {
	case "cancel":
		return nil, ErrCancelled
	case "error":
		return nil, fmt.Errorf("%w: provider error: %s", ErrInvalid, params.Get("openid.error"))
	case "id_res":
		// the only acceptable success mode
	default:
		return nil, fmt.Errorf("%w: unexpected mode %q", ErrInvalid, Mode(params))
	}

	if rt := params.Get("openid.return_to"); rt != "" && !sameEndpoint(rt, c.ReturnTo) {
		return nil, fmt.Errorf("%w: return_to mismatch", ErrInvalid)
	}

	if endpoint == "" {
		return nil, fmt.Errorf("%w: no discovered endpoint for this flow", ErrInvalid)
	}
	op := params.Get("openid.op_endpoint")
	if op == "" {
		return nil, fmt.Errorf("%w: missing op_endpoint", ErrInvalid)
	}
	if !sameEndpoint(op, endpoint) {
		return nil, fmt.Errorf("%w: op_endpoint mismatch", ErrInvalid)
	}
	if c.ClaimedID != "" && !sameIdentifier(params.Get("openid.claimed_id"), c.ClaimedID) {
		return nil, fmt.Errorf("%w: claimed_id mismatch", ErrInvalid)
	}

	ok, err := c.checkAuthentication(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalid
	}

	return c.extractAttributes(params), nil
}

// checkAuthentication re-posts the signed assertion to the provider
// with mode check_authentication and expects is_valid:true.
func (c *Client) checkAuthentication(ctx context.Context, endpoint string, params url.Values) (bool, error) {
	form := url.Values{}
	for k, vs := range params {
		if strings.HasPrefix(k, "openid.") {
			for _, v := range vs {
				form.Add(k, v)
			}
		}
	}
	form.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("openid: check_authentication: status %d", resp.StatusCode)
	}

	// Key-value form response: one "key:value" per line.
	for _, line := range strings.Split(string(body), "\n") {
		k, v, found := strings.Cut(strings.TrimSpace(line), ":")
		if found && k == "is_valid" {
			return strings.TrimSpace(v) == "true", nil
		}
	}
	return false, nil
}

// extractAttributes pulls the AX fetch_response values. The provider
// chooses its own namespace alias, so locate it first, then map each
// released type URI back to its attribute path. Requested paths the
// provider withheld are present with empty values.
func (c *Client) extractAttributes(params url.Values) profile.AttributeBag {
	bag := make(profile.AttributeBag, len(c.Required))
	for _, path := range c.Required {
		bag.Set(path, "")
	}

	axNS := ""
	for k, vs := range params {
		if strings.HasPrefix(k, "openid.ns.") && len(vs) > 0 && vs[0] == nsAX {
			axNS = strings.TrimPrefix(k, "openid.ns.")
			break
		}
	}
	if axNS == "" {
		return bag
	}

	typePrefix := "openid." + axNS + ".type."
	for k, vs := range params {
		if !strings.HasPrefix(k, typePrefix) || len(vs) == 0 {
			continue
		}
		path := strings.TrimPrefix(vs[0], axSchema)
		if path == vs[0] {
			continue // not an axschema type
		}
		alias := strings.TrimPrefix(k, typePrefix)
		value := params.Get("openid." + axNS + ".value." + alias)
		if value == "" {
			// multi-valued form: value.<alias>.1
			value = params.Get("openid." + axNS + ".value." + alias + ".1")
		}
		bag.Set(path, value)
	}
	return bag
}

func (c *Client) realm() string {
	if c.Realm != "" {
		return c.Realm
	}
	if u, err := url.Parse(c.ReturnTo); err == nil && u.Host != "" {
		return u.Scheme + "://" + u.Host + "/"
	}
	return c.ReturnTo
}

func (c *Client) claimedOrSelect() string {
	if c.ClaimedID == "" {
		return identifierSelect
	}
	return c.ClaimedID
}

func (c *Client) fetch(ctx context.Context, rawURL, accept string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("openid: discovery fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return body, resp.Header, nil
}

// axAlias turns an attribute path into a safe AX alias
// ("namePerson/first" -> "namePerson_first").
func axAlias(path string) string {
	return strings.NewReplacer("/", "_", ".", "_").Replace(path)
}

var (
	xrdsURIRe  = regexp.MustCompile(`(?is)<URI[^>]*>\s*([^<\s]+)\s*</URI>`)
	htmlLinkRe = regexp.MustCompile(`(?is)<link[^>]+>`)
	relRe      = regexp.MustCompile(`(?i)rel\s*=\s*["']([^"']*openid2\.provider[^"']*)["']`)
	hrefRe     = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)
)

// endpointFromXRDS pulls the first <URI> out of an XRDS document. The
// documents in the wild are tiny and flat; a full XML walk buys
// nothing here (same approach as the line scanning in storage/redis).
func endpointFromXRDS(body []byte) string {
	if !strings.Contains(strings.ToLower(string(body)), "xrds") {
		return ""
	}
	if m := xrdsURIRe.FindSubmatch(body); m != nil {
		return string(m[1])
	}
	return ""
}

// endpointFromHTML scans for <link rel="openid2.provider" href="...">.
func endpointFromHTML(body []byte) string {
	for _, link := range htmlLinkRe.FindAll(body, -1) {
		if relRe.Match(link) {
			if m := hrefRe.FindSubmatch(link); m != nil {
				return string(m[1])
			}
		}
	}
	return ""
}

// sameEndpoint compares URLs ignoring query order.
func sameEndpoint(a, b string) bool {
	ua, err1 := url.Parse(a)
	ub, err2 := url.Parse(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return ua.Scheme == ub.Scheme && ua.Host == ub.Host && ua.Path == ub.Path
}

// sameIdentifier compares claimed identifiers ignoring the fragment
// some providers append to the returned claimed_id.
func sameIdentifier(a, b string) bool {
	ua, err1 := url.Parse(a)
	ub, err2 := url.Parse(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	ua.Fragment, ub.Fragment = "", ""
	return ua.String() == ub.String()
}
