package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRU[string], *clock) {
	clk := &clock{t: time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)}
	c := New[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestGetSet(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", "1")
	c.Set("a", "2")
	if v, ok := c.Get("a"); !ok || v != "2" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("unexpected hit")
	}
	c.Delete("a")
	if c.Len() != 0 {
		t.Fatalf("Len = %d after delete", c.Len())
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s evicted", k)
		}
	}
}

func TestExpiry(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", "2")
	clk.t = clk.t.Add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("CleanExpired = %d, want 0", n)
	}
	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 || c.Len() != 0 {
		t.Fatalf("CleanExpired = %d, Len = %d", n, c.Len())
	}
}
