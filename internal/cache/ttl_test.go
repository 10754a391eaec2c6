package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := New[string, int](time.Minute, clock.Now)

	if _, ok := c.Get("a"); ok {
		t.Error("Expected miss on empty cache")
	}
	if !c.IsExpired("a") {
		t.Error("Absent key should report expired")
	}

	c.Put("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get = %d, %v; want 1, true", v, ok)
	}
	if c.IsExpired("a") {
		t.Error("Fresh key should not be expired")
	}

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Error("Expected hit just before TTL")
	}

	clock.Advance(time.Second)
	if !c.IsExpired("a") {
		t.Error("Expected expiry at TTL")
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Expected miss after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Expired entry should be evicted on Get, len = %d", c.Len())
	}

	c.Put("b", 2)
	clock.Advance(30 * time.Second)
	c.Put("b", 3)
	clock.Advance(45 * time.Second)
	if v, ok := c.Get("b"); !ok || v != 3 {
		t.Errorf("Put should reset age: got %d, %v", v, ok)
	}

	c.Delete("b")
	if _, ok := c.Get("b"); ok {
		t.Error("Expected miss after Delete")
	}
}

func TestTTL_ZeroNeverExpires(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := New[int, string](0, clock.Now)
	c.Put(1, "x")
	clock.Advance(24 * time.Hour)
	if _, ok := c.Get(1); !ok {
		t.Error("Zero TTL should never expire")
	}
}

func TestTTL_Concurrent(t *testing.T) {
	c := New[int, int](time.Hour, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Put(j, n)
				c.Get(j)
				c.IsExpired(j)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != 100 {
		t.Errorf("len = %d, want 100", c.Len())
	}
}
