package cache

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"bilancio/internal/log"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestLRU(size int, ttl time.Duration) (*LRU[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s missing", k)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clk := newTestLRU(4, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clk.t = clk.t.Add(2 * time.Minute)
	c.Set("c", "3")

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if v, ok := c.Get("c"); !ok || v != "3" {
		t.Fatalf("Get(c) = %q, %v", v, ok)
	}
}

func TestGetOrCompute(t *testing.T) {
	c, _ := newTestLRU(4, time.Hour)
	calls := 0
	fn := func() (string, error) {
		calls++
		return "v", nil
	}
	for i := 0; i < 3; i++ {
		if v, err := c.GetOrCompute("k", fn); err != nil || v != "v" {
			t.Fatalf("GetOrCompute = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("computed %d times", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrCompute("x", func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := c.Get("x"); ok {
		t.Fatal("error result was cached")
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 3 {
		t.Fatalf("stats = %d/%d", hits, misses)
	}
}

func TestSweeper(t *testing.T) {
	c, clk := newTestLRU(4, time.Minute)
	c.Set("a", "1")
	clk.t = clk.t.Add(time.Hour)

	s := NewSweeper(log.New(log.Config{Output: &bytes.Buffer{}}))
	s.Register(c)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d", n)
	}
	s.Start(time.Hour)
	s.Stop()
	s.Stop()
}

func TestSweeperStopWithoutStart(t *testing.T) {
	NewSweeper(nil).Stop()
}
