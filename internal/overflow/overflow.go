// Package overflow holds the subconscious: concepts evicted from the main
// concept store are not discarded outright but kept in a bounded LRU cache,
// so a concept that falls out of attention can still be recalled cheaply if
// something references its term again soon.
package overflow

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/normanking/alann/internal/term"
)

// Concept is the minimal shape the overflow cache needs from whatever
// internal/concept.Concept actually is, avoiding an import cycle between
// the two packages.
type Concept interface {
	Term() term.Term
}

// Cache wraps a hashicorp/golang-lru/v2 cache keyed by term name (terms are
// not necessarily comparable as interface values holding non-comparable
// underlying types, so the cache keys on the term's string Name).
type Cache[C Concept] struct {
	lru *lru.Cache[string, C]
}

// NewCache creates an overflow cache with the given capacity. Capacity is
// expected to be at least as large as the main concept store's so that a
// full eviction sweep of the store never overflows the cache in turn.
func NewCache[C Concept](capacity int) (*Cache[C], error) {
	if capacity < 1 {
		capacity = 1
	}
	inner, err := lru.New[string, C](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache[C]{lru: inner}, nil
}

// Remember stores concept under its term, evicting the least recently used
// entry if the cache is full. Returns true if that least recently used
// entry was evicted to make room, matching lru.Cache.Add's contract;
// replacing an entry for the same term returns false.
func (c *Cache[C]) Remember(concept C) bool {
	return c.lru.Add(concept.Term().Name(), concept)
}

// Recall looks up and removes a concept by term, promoting nothing since
// the entry leaves the cache entirely — recall is meant to feed directly
// back into reconceptualization, not to linger in the subconscious.
func (c *Cache[C]) Recall(t term.Term) (C, bool) {
	value, ok := c.lru.Get(t.Name())
	if ok {
		c.lru.Remove(t.Name())
	}
	return value, ok
}

// Contains reports whether term is currently held, without affecting
// recency order.
func (c *Cache[C]) Contains(t term.Term) bool {
	return c.lru.Contains(t.Name())
}

// Len returns the number of concepts currently cached.
func (c *Cache[C]) Len() int {
	return c.lru.Len()
}

// Purge discards every cached concept. Reasoner.Reset does not call it.
func (c *Cache[C]) Purge() {
	c.lru.Purge()
}

// Snapshot returns every concept currently cached, in no particular order,
// without affecting recency. Used by internal/snapshot to persist the
// subconscious alongside the main store.
func (c *Cache[C]) Snapshot() []C {
	keys := c.lru.Keys()
	values := make([]C, 0, len(keys))
	for _, k := range keys {
		if v, ok := c.lru.Peek(k); ok {
			values = append(values, v)
		}
	}
	return values
}
