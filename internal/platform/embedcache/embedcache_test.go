package embedcache

import (
	"context"
	"strings"
	"testing"
)

func TestKeyStableAndDistinct(t *testing.T) {
	a := Key("text-embedding-3-small", "what is the policy?")
	b := Key("text-embedding-3-small", "what is the policy?")
	if a != b {
		t.Fatalf("same inputs produced different keys: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, keyPrefix) {
		t.Fatalf("key missing prefix: %q", a)
	}

	c := Key("text-embedding-3-large", "what is the policy?")
	if a == c {
		t.Fatalf("different models produced the same key")
	}
	d := Key("text-embedding-3-small", "what is the policy")
	if a == d {
		t.Fatalf("different texts produced the same key")
	}
}

func TestKeySeparatorPreventsCollisions(t *testing.T) {
	// "ab" + "c" must not collide with "a" + "bc".
	if Key("ab", "c") == Key("a", "bc") {
		t.Fatalf("model/text boundary collision")
	}
}

func TestNilCacheIsNoOp(t *testing.T) {
	var c *Cache
	if _, ok := c.Get(context.Background(), "m", "t"); ok {
		t.Fatalf("nil cache returned a hit")
	}
	c.Set(context.Background(), "m", "t", []float32{1})
	if err := c.Close(); err != nil {
		t.Fatalf("nil cache close: %v", err)
	}
}
