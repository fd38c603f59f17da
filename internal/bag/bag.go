// Package bag implements the probabilistic sibling of priority.Map: a
// classic NARS bucketed bag, where every present item has a nonzero chance
// of being selected by TakeNext regardless of its priority. internal/cycle
// depends only on priority.Container[K,V], so a Bag can stand in for a Map
// anywhere a caller wants probabilistic rather than strict selection.
package bag

import (
	"math/rand"

	"github.com/normanking/alann/internal/budget"
	"github.com/normanking/alann/internal/priority"
)

type bagEntry[V any] struct {
	item  V
	level int
}

// Bag is a priority.Container backed by BagLevels discrete FIFO buckets,
// one per priority decile-like band, rather than a heap. Capacity eviction
// and TakeNext both approximate "lowest"/"highest" priority by bucket
// level rather than by exact value — the tradeoff that buys TakeNext its
// O(1)-ish probabilistic scan instead of a full ordering.
type Bag[K comparable, V budget.Item[K]] struct {
	maxSize int
	levels  int
	buckets [][]V
	byKey   map[K]*bagEntry[V]
	size    int
	rng     *rand.Rand
}

// NewBag creates a Bag with levels discrete priority buckets and the given
// capacity. rng must be a per-Reasoner source, never rand.New backed by
// the package-global generator, so two Reasoners with the same seed
// produce identical selection sequences.
func NewBag[K comparable, V budget.Item[K]](maxSize, levels int, rng *rand.Rand) *Bag[K, V] {
	if levels < 1 {
		levels = 1
	}
	return &Bag[K, V]{
		maxSize: maxSize,
		levels:  levels,
		buckets: make([][]V, levels),
		byKey:   make(map[K]*bagEntry[V]),
		rng:     rng,
	}
}

func (b *Bag[K, V]) levelOf(item V) int {
	l := int(item.Budget().Priority * float64(b.levels))
	if l >= b.levels {
		l = b.levels - 1
	}
	if l < 0 {
		l = 0
	}
	return l
}

func (b *Bag[K, V]) removeFromBucket(key K, e *bagEntry[V]) {
	bucket := b.buckets[e.level]
	for i, v := range bucket {
		if v.Name() == key {
			b.buckets[e.level] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	delete(b.byKey, key)
	b.size--
}

func (b *Bag[K, V]) insert(item V) {
	level := b.levelOf(item)
	b.buckets[level] = append(b.buckets[level], item)
	b.byKey[item.Name()] = &bagEntry[V]{item: item, level: level}
	b.size++
}

// lowestNonEmptyLevel returns the lowest bucket index holding at least one
// item, used both for capacity eviction and as the "about to reject"
// comparison point.
func (b *Bag[K, V]) lowestNonEmptyLevel() (int, bool) {
	for l := 0; l < b.levels; l++ {
		if len(b.buckets[l]) > 0 {
			return l, true
		}
	}
	return 0, false
}

// PutIn inserts item. A same-key insert displaces the prior entry for that
// key specifically. At capacity, the front of the lowest non-empty bucket
// is evicted to make room, unless the incoming item's own level is at or
// below that bucket — in which case the incoming item is rejected instead,
// mirroring priority.Map's "reject self when lowest" rule at bucket
// granularity rather than exact priority.
func (b *Bag[K, V]) PutIn(item V) priority.InsertOutcome[V] {
	key := item.Name()
	if existing, ok := b.byKey[key]; ok {
		old := existing.item
		b.removeFromBucket(key, existing)
		b.insert(item)
		return priority.Displaced(old)
	}

	if b.maxSize <= 0 {
		return priority.Rejected(item)
	}

	if b.size >= b.maxSize {
		lowLevel, ok := b.lowestNonEmptyLevel()
		if !ok {
			b.insert(item)
			return priority.Inserted[V]()
		}
		if b.levelOf(item) <= lowLevel {
			return priority.Rejected(item)
		}
		bucket := b.buckets[lowLevel]
		evicted := bucket[0]
		b.buckets[lowLevel] = bucket[1:]
		delete(b.byKey, evicted.Name())
		b.size--
		b.insert(item)
		return priority.Displaced(evicted)
	}

	b.insert(item)
	return priority.Inserted[V]()
}

// Get returns the item for key without mutating the bag.
func (b *Bag[K, V]) Get(key K) (V, bool) {
	e, ok := b.byKey[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.item, true
}

// Take removes and returns the item for key, if present.
func (b *Bag[K, V]) Take(key K) (V, bool) {
	e, ok := b.byKey[key]
	if !ok {
		var zero V
		return zero, false
	}
	item := e.item
	b.removeFromBucket(key, e)
	return item, true
}

// TakeHighestPriorityItem removes and returns an item from the highest
// non-empty bucket, breaking ties by FIFO order within that bucket. Unlike
// priority.Map this is the exact highest bucket, not the exact highest
// priority value, by construction of the bucketing scheme.
func (b *Bag[K, V]) TakeHighestPriorityItem() (V, bool) {
	for l := b.levels - 1; l >= 0; l-- {
		if len(b.buckets[l]) == 0 {
			continue
		}
		item := b.buckets[l][0]
		b.buckets[l] = b.buckets[l][1:]
		delete(b.byKey, item.Name())
		b.size--
		return item, true
	}
	var zero V
	return zero, false
}

// TakeNext implements the probabilistic bag-scan: repeatedly pick a random
// level and, with probability proportional to that level's rank, accept
// it if non-empty. Every present item therefore has a nonzero chance of
// selection on any given call, including items in the lowest bucket.
func (b *Bag[K, V]) TakeNext() (V, bool) {
	if b.size == 0 {
		var zero V
		return zero, false
	}
	for {
		level := b.rng.Intn(b.levels)
		if len(b.buckets[level]) == 0 {
			continue
		}
		if b.rng.Float64() < float64(level+1)/float64(b.levels) {
			item := b.buckets[level][0]
			b.buckets[level] = b.buckets[level][1:]
			delete(b.byKey, item.Name())
			b.size--
			return item, true
		}
	}
}

// PutBack applies forgetting to item's budget, then PutIn's it.
func (b *Bag[K, V]) PutBack(item V, forgetCycles float64, now int64, relativeThreshold float64) priority.InsertOutcome[V] {
	budget.ApplyForgetting(item.Budget(), forgetCycles, relativeThreshold, now)
	return b.PutIn(item)
}

// IsEmpty reports whether the bag holds no items.
func (b *Bag[K, V]) IsEmpty() bool { return b.size == 0 }

// Size returns the number of items currently held.
func (b *Bag[K, V]) Size() int { return b.size }

// Values returns a snapshot slice of every item currently held, in
// unspecified order.
func (b *Bag[K, V]) Values() []V {
	out := make([]V, 0, b.size)
	for _, bucket := range b.buckets {
		out = append(out, bucket...)
	}
	return out
}
