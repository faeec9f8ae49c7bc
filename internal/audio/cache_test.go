package audio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type releases struct {
	mu   sync.Mutex
	keys []Key
}

func (r *releases) record(k Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, k)
}

func (r *releases) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, KeyFor("alloy", "hello"), KeyFor("alloy", "hello"))
	assert.NotEqual(t, KeyFor("alloy", "hello"), KeyFor("nova", "hello"))
	assert.NotEqual(t, KeyFor("alloy", "hello"), KeyFor("alloy", "hello!"))
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	var rel releases
	c, err := NewCache(2, rel.record)
	require.NoError(t, err)

	a, b, d := KeyFor("alloy", "a"), KeyFor("alloy", "b"), KeyFor("alloy", "d")
	c.Put(a, []byte("A"))
	c.Put(b, []byte("B"))
	_, ok := c.Get(a) // a is now most recent
	require.True(t, ok)

	c.Put(d, []byte("D"))
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(b)
	assert.False(t, ok)
	assert.Equal(t, []Key{b}, rel.keys)
}

func TestCache_PutReplacesAndReleases(t *testing.T) {
	var rel releases
	c, err := NewCache(4, rel.record)
	require.NoError(t, err)

	k := KeyFor("echo", "same text")
	c.Put(k, []byte("old"))
	c.Put(k, []byte("new"))

	got, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
	assert.Equal(t, 1, rel.count())
	assert.Equal(t, 1, c.Len())
}

func TestCache_ClearReleasesEverything(t *testing.T) {
	var rel releases
	c, err := NewCache(4, rel.record)
	require.NoError(t, err)

	c.Put(KeyFor("alloy", "1"), []byte("1"))
	c.Put(KeyFor("alloy", "2"), []byte("2"))
	c.Put(KeyFor("alloy", "3"), []byte("3"))
	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 3, rel.count())
}

func TestNewCache_RejectsZeroSize(t *testing.T) {
	_, err := NewCache(0, nil)
	assert.Error(t, err)
}
