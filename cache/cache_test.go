package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore returns err from every operation.
type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return f.err
}
func (f failingStore) Delete(context.Context, string) error { return f.err }
func (f failingStore) Clear(context.Context) error          { return f.err }

// recordingStore captures the TTL passed to Set.
type recordingStore struct {
	*Memory
	lastTTL time.Duration
}

func (r *recordingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.lastTTL = ttl
	return r.Memory.Set(ctx, key, value, ttl)
}

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCache_SetThenGetReturnsValue(t *testing.T) {
	c := New(NewMemory(0))
	ctx := context.Background()

	require.True(t, c.Set(ctx, "k", sample{Name: "a", Count: 2}))

	var got sample
	require.True(t, c.Get(ctx, "k", &got))
	assert.Equal(t, sample{Name: "a", Count: 2}, got)
}

func TestCache_ReadAfterTTLIsMiss(t *testing.T) {
	c := New(NewMemory(0))
	ctx := context.Background()

	c.Set(ctx, "k", "v", 50*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	got := "default"
	assert.False(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "default", got, "miss must leave the destination untouched")
	assert.False(t, c.Exists(ctx, "k"))
}

func TestCache_DefaultTTL(t *testing.T) {
	store := &recordingStore{Memory: NewMemory(0)}
	c := New(store)

	c.Set(context.Background(), "k", 1)
	assert.Equal(t, DefaultTTL, store.lastTTL)
	assert.Equal(t, 3600*time.Second, DefaultTTL)

	c.Set(context.Background(), "k", 1, 10*time.Second)
	assert.Equal(t, 10*time.Second, store.lastTTL)
}

func TestCache_StoreFailuresNeverSurface(t *testing.T) {
	c := New(failingStore{err: errors.New("connection refused")})
	ctx := context.Background()

	var dest map[string]any
	assert.False(t, c.Set(ctx, "k", "v"))
	assert.False(t, c.Get(ctx, "k", &dest))
	assert.False(t, c.Delete(ctx, "k"))
	assert.False(t, c.Exists(ctx, "k"))
	assert.False(t, c.Clear(ctx))
	assert.Nil(t, dest)

	stats := c.Stats()
	assert.Equal(t, int64(5), stats.Errors)
}

func TestCache_UnencodableValue(t *testing.T) {
	c := New(NewMemory(0))
	assert.False(t, c.Set(context.Background(), "k", make(chan int)))
}

func TestCache_DecodeMismatchIsMiss(t *testing.T) {
	c := New(NewMemory(0))
	ctx := context.Background()

	c.Set(ctx, "k", "a string")

	var n int
	assert.False(t, c.Get(ctx, "k", &n))
}

func TestCache_Stats(t *testing.T) {
	c := New(NewMemory(0))
	ctx := context.Background()

	var v string
	c.Get(ctx, "missing", &v)
	c.Set(ctx, "k", "v")
	c.Get(ctx, "k", &v)
	c.Get(ctx, "k", &v)

	assert.Equal(t, Stats{Hits: 2, Misses: 1}, c.Stats())
}

func TestCache_Clear(t *testing.T) {
	c := New(NewMemory(0))
	ctx := context.Background()

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	require.True(t, c.Clear(ctx))

	assert.False(t, c.Exists(ctx, "a"))
	assert.False(t, c.Exists(ctx, "b"))
}
