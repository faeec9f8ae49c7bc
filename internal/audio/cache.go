// Package audio caches synthesized speech and owns the single playback
// slot.
package audio

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jwebster45206/choice-engine/pkg/lang"
)

// Key identifies one synthesized clip.
type Key struct {
	Voice lang.Voice
	Hash  string
}

// KeyFor hashes the cleaned text so long passages do not become map keys.
func KeyFor(voice lang.Voice, text string) Key {
	sum := sha256.Sum256([]byte(text))
	return Key{Voice: voice, Hash: hex.EncodeToString(sum[:])}
}

// Cache is a bounded LRU of encoded audio. Every buffer leaves the cache
// through release: on eviction, on replacement, or on Clear.
type Cache struct {
	mu        sync.Mutex
	lru       *lru.Cache[Key, []byte]
	onRelease func(Key)
}

// NewCache creates a cache holding at most size clips. onRelease, if set,
// is called once for every buffer the cache drops.
func NewCache(size int, onRelease func(Key)) (*Cache, error) {
	c := &Cache{onRelease: onRelease}
	l, err := lru.NewWithEvict[Key, []byte](size, func(k Key, _ []byte) {
		c.release(k)
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// Get returns the cached clip for k.
func (c *Cache) Get(k Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(k)
}

// Put stores data under k, releasing any clip it replaces.
func (c *Cache) Put(k Key, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lru.Peek(k); ok {
		c.lru.Remove(k)
	}
	c.lru.Add(k, data)
}

// Clear releases every clip.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the number of cached clips.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) release(k Key) {
	if c.onRelease != nil {
		c.onRelease(k)
	}
}
