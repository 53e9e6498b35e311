package storage

import (
	"context"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := Key("twitter", SuffixUser); got != "twitter.user" {
		t.Errorf("got %q", got)
	}
	if got := Key("openid", SuffixRequestToken); got != "openid.request_token" {
		t.Errorf("got %q", got)
	}
}

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")

	if _, err := s.Get(ctx, "missing"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "twitter.user", `{"identifier":"42"}`, 0); err != nil {
		t.Fatal(err)
	}
	v, err := s.Get(ctx, "twitter.user")
	if err != nil {
		t.Fatal(err)
	}
	if v != `{"identifier":"42"}` {
		t.Errorf("got %q", v)
	}

	if err := s.Delete(ctx, "twitter.user"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "twitter.user"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// deleting again is fine
	if err := s.Delete(ctx, "twitter.user"); err != nil {
		t.Fatalf("double delete must not fail: %v", err)
	}
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")

	if err := s.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("fresh key must be readable: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := s.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("expired key: expected ErrNotFound, got %v", err)
	}
}

func TestMemory_Prefix(t *testing.T) {
	ctx := context.Background()
	a := NewMemory("a")
	if err := a.Set(ctx, "k", "v", 0); err != nil {
		t.Fatal(err)
	}
	b := NewMemory("b")
	if _, err := b.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatal("prefixes must not collide (separate caches)")
	}
}

func TestNamespaced_Isolation(t *testing.T) {
	ctx := context.Background()
	base := NewMemory("")

	alice := Namespaced(base, "sess-alice")
	bob := Namespaced(base, "sess-bob")

	if err := alice.Set(ctx, "op.user", "alice-profile", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := bob.Get(ctx, "op.user"); !IsNotFound(err) {
		t.Fatal("bob must not see alice's session slots")
	}
	v, err := alice.Get(ctx, "op.user")
	if err != nil || v != "alice-profile" {
		t.Fatalf("alice lost her slot: %q %v", v, err)
	}

	// raw key layout stays predictable for ops tooling
	raw, err := base.Get(ctx, "sess-alice:op.user")
	if err != nil || raw != "alice-profile" {
		t.Fatalf("unexpected raw layout: %q %v", raw, err)
	}
}

func TestNamespaced_EmptyNamespaceIsPassthrough(t *testing.T) {
	base := NewMemory("")
	if Namespaced(base, "") != base {
		t.Fatal("empty namespace should return the store unchanged")
	}
}

func TestNew_DefaultsToMemory(t *testing.T) {
	s, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}
