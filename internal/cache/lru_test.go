package cache

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	// Touch k0 so k1 becomes the oldest.
	if _, ok := c.Get("k0"); !ok {
		t.Fatal("k0 should be cached")
	}
	c.Set("k3", 3)

	if _, ok := c.Get("k1"); ok {
		t.Fatal("k1 should have been evicted")
	}
	for _, k := range []string{"k0", "k2", "k3"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
	if c.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", c.Size())
	}
}

func TestLRUCacheTTLExpiration(t *testing.T) {
	c := NewLRUCache[string](10, 20*time.Millisecond)
	c.Set("chart", "png")

	if v, ok := c.Get("chart"); !ok || v != "png" {
		t.Fatalf("Get() = %q, %v", v, ok)
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("chart"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not removed, Size() = %d", c.Size())
	}
}

func TestGetOrBuild(t *testing.T) {
	c := NewLRUCache[[]byte](4, time.Minute)
	builds := 0
	build := func() ([]byte, error) {
		builds++
		return []byte("data"), nil
	}

	for i := 0; i < 3; i++ {
		if _, err := c.GetOrBuild("export:abc", build); err != nil {
			t.Fatalf("GetOrBuild: %v", err)
		}
	}
	if builds != 1 {
		t.Fatalf("build ran %d times, want 1", builds)
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Fatalf("Stats() = %d hits, %d misses", hits, misses)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrBuild("chart:abc", func() ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}
	if _, ok := c.Get("chart:abc"); ok {
		t.Fatal("failed builds must not be cached")
	}
}

func TestDelete(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be gone")
	}
}
