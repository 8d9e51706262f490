package cache

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*TTLCache[string, int], *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string, int](ttl, time.Hour)
	c.now = clock.Now
	return c, clock
}

func TestGetSetExpire(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	defer c.Close()

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "expired entries stay until eviction")

	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestDeleteAndDeleteFunc(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	defer c.Close()

	c.Set("press:1", 1)
	c.Set("press:2", 2)
	c.Set("other", 3)

	c.Delete("other")
	_, ok := c.Get("other")
	assert.False(t, ok)

	c.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, "press:") })
	assert.Equal(t, 0, c.Len())

	c.Set("x", 1)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCloseStopsCleanupGoroutine(t *testing.T) {
	c := New[int, int](time.Second, time.Millisecond)
	c.Set(1, 1)
	c.Close()
	c.Close()
}
