package oauth1

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Endpoints are the provider's OAuth1 URLs.
type Endpoints struct {
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string
}

// Client drives the three OAuth1 legs against a provider: request
// token, access token exchange, and signed resource access.
type Client struct {
	Builder   *RequestBuilder
	Endpoints Endpoints

	http *http.Client
}

// NewClient creates a client. httpClient may be nil; a 10s-timeout
// default is used then, and no redirects are followed either way.
func NewClient(builder *RequestBuilder, endpoints Endpoints, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &Client{
		Builder:   builder,
		Endpoints: endpoints,
		http:      httpClient,
	}
}

// RequestToken performs the first leg and returns the temporary
// request token. callbackURL is where the provider sends the user back.
func (c *Client) RequestToken(ctx context.Context, callbackURL string) (*Token, error) {
	extra := url.Values{"oauth_callback": {callbackURL}}
	params, err := c.Builder.Sign("POST", c.Endpoints.RequestTokenURL, nil, extra)
	if err != nil {
		return nil, err
	}
	return c.postForToken(ctx, c.Endpoints.RequestTokenURL, params)
}

// AuthorizeURL builds the user-facing authorization redirect for a
// request token.
func (c *Client) AuthorizeURL(requestToken *Token) string {
	u, err := url.Parse(c.Endpoints.AuthorizeURL)
	if err != nil {
		return c.Endpoints.AuthorizeURL
	}
	q := u.Query()
	q.Set("oauth_token", requestToken.Key)
	u.RawQuery = q.Encode()
	return u.String()
}

// AccessToken exchanges an authorized request token plus verifier for
// the long-lived access token.
func (c *Client) AccessToken(ctx context.Context, requestToken *Token, verifier string) (*Token, error) {
	extra := url.Values{"oauth_verifier": {verifier}}
	params, err := c.Builder.Sign("POST", c.Endpoints.AccessTokenURL, requestToken, extra)
	if err != nil {
		return nil, err
	}
	return c.postForToken(ctx, c.Endpoints.AccessTokenURL, params)
}

// Get performs a signed GET against a protected resource and returns
// the raw body. Protocol parameters travel in the Authorization header.
func (c *Client) Get(ctx context.Context, accessToken *Token, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("oauth1: resource url: %w", err)
	}
	params, err := c.Builder.Sign("GET", rawURL, accessToken, u.Query())
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", AuthorizationHeader("", params))
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth1: resource request failed: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// postForToken posts a signed form and parses the
// oauth_token/oauth_token_secret response body.
func (c *Client) postForToken(ctx context.Context, endpoint string, params url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth1: token endpoint %s: status %d", endpoint, resp.StatusCode)
	}

	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("oauth1: token response: %w", err)
	}
	tok := &Token{
		Key:    vals.Get("oauth_token"),
		Secret: vals.Get("oauth_token_secret"),
	}
	if tok.Key == "" || tok.Secret == "" {
		return nil, fmt.Errorf("oauth1: token endpoint %s: incomplete token response", endpoint)
	}
	return tok, nil
}
