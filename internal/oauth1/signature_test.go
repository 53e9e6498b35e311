package oauth1

import (
	"net/url"
	"testing"
)

func TestPercentEncode(t *testing.T) {
	cases := map[string]string{
		"abcABC123":                  "abcABC123",
		"-._~":                       "-._~",
		"ladies + gentlemen":         "ladies%20%2B%20gentlemen",
		"http://example.com/?q=1&b":  "http%3A%2F%2Fexample.com%2F%3Fq%3D1%26b",
		"☃":                          "%E2%98%83",
		"":                           "",
	}
	for in, want := range cases {
		if got := PercentEncode(in); got != want {
			t.Errorf("PercentEncode(%q) = %q, want %q", in, got, want)
		}
	}
}

// Vector from OAuth Core 1.0 Appendix A.5.1 (the photos.example.net
// access example).
func TestBaseString_SpecExample(t *testing.T) {
	params := url.Values{
		"file":                   {"vacation.jpg"},
		"size":                   {"original"},
		"oauth_consumer_key":     {"dpf43f3p2l4k3l03"},
		"oauth_token":            {"nnch734d00sl2jdk"},
		"oauth_signature_method": {"HMAC-SHA1"},
		"oauth_timestamp":        {"1191242096"},
		"oauth_nonce":            {"kllo9940pd9333jh"},
		"oauth_version":          {"1.0"},
	}

	got, err := BaseString("get", "http://photos.example.net/photos?ignored=1", params)
	if err != nil {
		t.Fatal(err)
	}
	want := "GET&http%3A%2F%2Fphotos.example.net%2Fphotos&file%3Dvacation.jpg" +
		"%26oauth_consumer_key%3Ddpf43f3p2l4k3l03%26oauth_nonce%3Dkllo9940pd9333jh" +
		"%26oauth_signature_method%3DHMAC-SHA1%26oauth_timestamp%3D1191242096" +
		"%26oauth_token%3Dnnch734d00sl2jdk%26oauth_version%3D1.0%26size%3Doriginal"
	if got != want {
		t.Errorf("base string mismatch:\n got  %s\n want %s", got, want)
	}
}

func TestBaseString_NormalizesURL(t *testing.T) {
	params := url.Values{"a": {"1"}}

	got, err := BaseString("POST", "HTTPS://Photos.Example.NET:443", params)
	if err != nil {
		t.Fatal(err)
	}
	want := "POST&https%3A%2F%2Fphotos.example.net%2F&a%3D1"
	if got != want {
		t.Errorf("got %s want %s", got, want)
	}
}

func TestBaseString_ExcludesSignature(t *testing.T) {
	with := url.Values{"a": {"1"}, "oauth_signature": {"zzz"}}
	without := url.Values{"a": {"1"}}

	s1, err := BaseString("GET", "https://example.com/x", with)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := BaseString("GET", "https://example.com/x", without)
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Errorf("oauth_signature leaked into the base string")
	}
}

func TestHMACSHA1_SpecVector(t *testing.T) {
	base := "GET&http%3A%2F%2Fphotos.example.net%2Fphotos&file%3Dvacation.jpg" +
		"%26oauth_consumer_key%3Ddpf43f3p2l4k3l03%26oauth_nonce%3Dkllo9940pd9333jh" +
		"%26oauth_signature_method%3DHMAC-SHA1%26oauth_timestamp%3D1191242096" +
		"%26oauth_token%3Dnnch734d00sl2jdk%26oauth_version%3D1.0%26size%3Doriginal"

	sig, err := HMACSHA1().Sign(base, "kd94hf93k423kf44", "pfkkdhi9sl3r4s00")
	if err != nil {
		t.Fatal(err)
	}
	if want := "tR3+Ty81lMeYAr/Fid0kMTYa/WM="; sig != want {
		t.Errorf("signature = %q, want %q", sig, want)
	}
}

func TestHMACSHA1_EmptyTokenSecret(t *testing.T) {
	// First-leg signing has no token yet; the key must end in "&".
	sig, err := HMACSHA1().Sign("POST&x&y", "secret", "")
	if err != nil {
		t.Fatalf("empty token secret must not be an error: %v", err)
	}
	if sig == "" {
		t.Fatal("empty signature")
	}
}

func TestHMACSHA1_Deterministic(t *testing.T) {
	a, _ := HMACSHA1().Sign("GET&u&p", "cs", "ts")
	b, _ := HMACSHA1().Sign("GET&u&p", "cs", "ts")
	if a != b {
		t.Fatalf("identical inputs produced different signatures: %q vs %q", a, b)
	}
}

func TestHMACSHA1_InputSensitivity(t *testing.T) {
	ref, _ := HMACSHA1().Sign("GET&u&p", "cs", "ts")
	for name, got := range map[string]string{
		"base string": mustSign(t, "GET&u&q", "cs", "ts"),
		"consumer":    mustSign(t, "GET&u&p", "ct", "ts"),
		"token":       mustSign(t, "GET&u&p", "cs", "tt"),
	} {
		if got == ref {
			t.Errorf("changing the %s did not change the signature", name)
		}
	}
}

func mustSign(t *testing.T, base, cs, ts string) string {
	t.Helper()
	sig, err := HMACSHA1().Sign(base, cs, ts)
	if err != nil {
		t.Fatal(err)
	}
	return sig
}

func TestPlaintext(t *testing.T) {
	sig, err := Plaintext().Sign("ignored", "cs%", "ts&")
	if err != nil {
		t.Fatal(err)
	}
	if want := "cs%25&ts%26"; sig != want {
		t.Errorf("got %q want %q", sig, want)
	}
}
