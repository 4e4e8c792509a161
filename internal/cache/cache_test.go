package cache

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New(time.Minute)
	t.Cleanup(c.Close)
	return c
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t)

	c.Set("a", 1, time.Minute)
	got, found := c.Get("a")
	assert.True(t, found)
	assert.Equal(t, 1, got)

	_, found = c.Get("missing")
	assert.False(t, found)
}

func TestExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("a", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, found := c.Get("a")
	assert.False(t, found)
}

func TestNoExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("a", 1, 0)
	time.Sleep(10 * time.Millisecond)

	_, found := c.Get("a")
	assert.True(t, found)
}

func TestGetOrLoad(t *testing.T) {
	c := newTestCache(t)

	calls := 0
	loader := func() (interface{}, error) {
		calls++
		return "loaded", nil
	}

	got, err := c.GetOrLoad("a", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "loaded", got)

	got, err = c.GetOrLoad("a", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "loaded", got)
	assert.Equal(t, 1, calls)
}

func TestGetOrLoadErrorNotCached(t *testing.T) {
	c := newTestCache(t)

	calls := 0
	loader := func() (interface{}, error) {
		calls++
		return nil, errors.New("source down")
	}

	_, err := c.GetOrLoad("a", time.Minute, loader)
	assert.Error(t, err)
	_, err = c.GetOrLoad("a", time.Minute, loader)
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Zero(t, c.Size())
}

func TestDeletePrefix(t *testing.T) {
	c := newTestCache(t)

	c.Set("mapping:src-1:aaa", 1, 0)
	c.Set("mapping:src-1:bbb", 2, 0)
	c.Set("mapping:src-2:ccc", 3, 0)
	c.Set("ontology:metatype:x", 4, 0)

	c.DeletePrefix("mapping:src-1:")
	assert.Equal(t, 2, c.Size())

	_, found := c.Get("mapping:src-2:ccc")
	assert.True(t, found)
	_, found = c.Get("ontology:metatype:x")
	assert.True(t, found)
}

func TestClear(t *testing.T) {
	c := newTestCache(t)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Clear()
	assert.Zero(t, c.Size())
}
