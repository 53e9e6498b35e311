package oauth1

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Token is an OAuth1 token/secret pair. It covers both the short-lived
// request token and the long-lived access token.
type Token struct {
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

// RequestBuilder assembles fully-signed OAuth1 parameter sets. It owns
// the consumer credentials and the signature method; transport is the
// caller's problem.
type RequestBuilder struct {
	ConsumerKey    string
	ConsumerSecret string
	Signer         Signer

	// nonce and now are swappable for tests. Zero values mean
	// crypto/rand nonces and the wall clock.
	nonce func() (string, error)
	now   func() time.Time
}

// NewRequestBuilder creates a builder with HMAC-SHA1 unless another
// signer is given.
func NewRequestBuilder(consumerKey, consumerSecret string, signer Signer) *RequestBuilder {
	if signer == nil {
		signer = HMACSHA1()
	}
	return &RequestBuilder{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Signer:         signer,
	}
}

// Sign returns the complete parameter set for a request: the caller's
// extra parameters plus every required oauth_* field, signed last so
// the signature covers the injected fields too.
func (b *RequestBuilder) Sign(method, rawURL string, token *Token, extra url.Values) (url.Values, error) {
	nonce, err := b.newNonce()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	params.Set("oauth_consumer_key", b.ConsumerKey)
	params.Set("oauth_nonce", nonce)
	params.Set("oauth_signature_method", b.Signer.Name())
	params.Set("oauth_timestamp", strconv.FormatInt(b.timestamp(), 10))
	params.Set("oauth_version", "1.0")

	tokenSecret := ""
	if token != nil {
		params.Set("oauth_token", token.Key)
		tokenSecret = token.Secret
	}

	base, err := BaseString(method, rawURL, params)
	if err != nil {
		return nil, err
	}
	sig, err := b.Signer.Sign(base, b.ConsumerSecret, tokenSecret)
	if err != nil {
		return nil, err
	}
	params.Set("oauth_signature", sig)

	return params, nil
}

// AuthorizationHeader renders the oauth_* subset of a signed parameter
// set as an OAuth Authorization header value. Non-protocol parameters
// stay in the query string or body, per RFC 5849 §3.5.1.
func AuthorizationHeader(realm string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if strings.HasPrefix(k, "oauth_") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	if realm != "" {
		parts = append(parts, `realm="`+PercentEncode(realm)+`"`)
	}
	for _, k := range keys {
		parts = append(parts, PercentEncode(k)+`="`+PercentEncode(params.Get(k))+`"`)
	}
	return "OAuth " + strings.Join(parts, ", ")
}

func (b *RequestBuilder) newNonce() (string, error) {
	if b.nonce != nil {
		return b.nonce()
	}
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("oauth1: nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (b *RequestBuilder) timestamp() int64 {
	if b.now != nil {
		return b.now().Unix()
	}
	return time.Now().Unix()
}
