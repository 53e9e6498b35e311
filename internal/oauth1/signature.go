// Package oauth1 implements the OAuth 1.0 signing core: RFC 3986
// percent-encoding, signature base string construction, and the
// HMAC-SHA1 / RSA-SHA1 / PLAINTEXT signature methods.
//
// Everything here is pure: same inputs, same bytes out. Transport and
// flow logic live in Client and the adapters.
package oauth1

import (
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Signer computes an oauth_signature over a signature base string.
type Signer interface {
	// Name is the oauth_signature_method value.
	Name() string

	// Sign computes the signature. tokenSecret is empty on the first
	// leg (token request); that is not an error.
	Sign(baseString, consumerSecret, tokenSecret string) (string, error)
}

// PercentEncode encodes per RFC 3986 §2.1 with the unreserved set
// ALPHA / DIGIT / "-" / "." / "_" / "~". Go's url.QueryEscape is close
// but spaces and a few marks differ, so this is spelled out.
func PercentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') ||
		('0' <= c && c <= '9') || c == '-' || c == '.' || c == '_' || c == '~'
}

// BaseString builds the signature base string for the given request:
// METHOD & enc(normalized URL) & enc(sorted parameter pairs).
//
// URL normalization lower-cases scheme and host, drops default ports,
// and strips query and fragment. Parameters are each percent-encoded
// before sorting, and oauth_signature itself is never part of the set.
func BaseString(method, rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("oauth1: parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("oauth1: url %q is not absolute", rawURL)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if (scheme == "http" && strings.HasSuffix(host, ":80")) ||
		(scheme == "https" && strings.HasSuffix(host, ":443")) {
		host = host[:strings.LastIndex(host, ":")]
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	baseURL := scheme + "://" + host + path

	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(params))
	for k, vs := range params {
		if k == "oauth_signature" {
			continue
		}
		for _, v := range vs {
			pairs = append(pairs, pair{PercentEncode(k), PercentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	joined := make([]string, len(pairs))
	for i, p := range pairs {
		joined[i] = p.k + "=" + p.v
	}

	return strings.ToUpper(method) + "&" + PercentEncode(baseURL) + "&" +
		PercentEncode(strings.Join(joined, "&")), nil
}

// hmacSigner implements HMAC-SHA1 (RFC 5849 §3.4.2).
type hmacSigner struct{}

// HMACSHA1 returns the HMAC-SHA1 signer. This is what virtually every
// OAuth1 provider expects.
func HMACSHA1() Signer { return hmacSigner{} }

func (hmacSigner) Name() string { return "HMAC-SHA1" }

func (hmacSigner) Sign(baseString, consumerSecret, tokenSecret string) (string, error) {
	key := PercentEncode(consumerSecret) + "&" + PercentEncode(tokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(baseString))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// rsaSigner implements RSA-SHA1 (RFC 5849 §3.4.3). The consumer and
// token secrets play no part; the consumer's private key signs.
type rsaSigner struct {
	key *rsa.PrivateKey
}

// RSASHA1 returns an RSA-SHA1 signer using the given private key.
func RSASHA1(key *rsa.PrivateKey) Signer { return rsaSigner{key: key} }

func (rsaSigner) Name() string { return "RSA-SHA1" }

func (s rsaSigner) Sign(baseString, _, _ string) (string, error) {
	if s.key == nil {
		return "", fmt.Errorf("oauth1: RSA-SHA1 requires a private key")
	}
	digest := sha1.Sum([]byte(baseString))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, digest[:])
	if err != nil {
		return "", fmt.Errorf("oauth1: rsa sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// plaintextSigner implements PLAINTEXT (RFC 5849 §3.4.4). Only sane
// over TLS; kept for providers that still insist on it.
type plaintextSigner struct{}

// Plaintext returns the PLAINTEXT signer.
func Plaintext() Signer { return plaintextSigner{} }

func (plaintextSigner) Name() string { return "PLAINTEXT" }

func (plaintextSigner) Sign(_, consumerSecret, tokenSecret string) (string, error) {
	return PercentEncode(consumerSecret) + "&" + PercentEncode(tokenSecret), nil
}
