// Package priority implements the bounded priority index every bag-like
// structure in the reasoning core is built from: the concept store, the
// cycling-task queue, and the premise queue are all a priority.Map over a
// different Item type.
package priority

import (
	"container/heap"
	"sync"

	"github.com/normanking/alann/internal/budget"
)

// InsertOutcome is the discriminated result of inserting an item into a
// bounded container. Exactly one of its three constructors applies; the
// others are no-ops on the returned value.
type InsertOutcome[V any] struct {
	kind      outcomeKind
	displaced V
}

type outcomeKind int

const (
	outcomeInserted outcomeKind = iota
	outcomeDisplaced
	outcomeRejected
)

// Inserted reports the item was added without evicting anything.
func (o InsertOutcome[V]) Inserted() bool { return o.kind == outcomeInserted }

// Displaced reports some other item was evicted to make room for the
// insert. Other returns that evicted item.
func (o InsertOutcome[V]) Displaced() bool { return o.kind == outcomeDisplaced }

// Rejected reports the just-inserted item was itself immediately evicted
// (capacity 0, or it was the lowest-priority element in a full
// container). Item returns the rejected value, which is always the item
// that was just offered for insertion.
func (o InsertOutcome[V]) Rejected() bool { return o.kind == outcomeRejected }

// Other returns the evicted item when Displaced is true.
func (o InsertOutcome[V]) Other() V { return o.displaced }

// Item returns the rejected item when Rejected is true.
func (o InsertOutcome[V]) Item() V { return o.displaced }

func inserted[V any]() InsertOutcome[V] {
	return InsertOutcome[V]{kind: outcomeInserted}
}

func displaced[V any](other V) InsertOutcome[V] {
	return InsertOutcome[V]{kind: outcomeDisplaced, displaced: other}
}

func rejected[V any](item V) InsertOutcome[V] {
	return InsertOutcome[V]{kind: outcomeRejected, displaced: item}
}

// Inserted, Displaced, and Rejected are the exported forms of this
// package's InsertOutcome constructors, for other Container
// implementations (such as internal/bag.Bag) to build outcomes with.
func Inserted[V any]() InsertOutcome[V]         { return inserted[V]() }
func Displaced[V any](other V) InsertOutcome[V] { return displaced(other) }
func Rejected[V any](item V) InsertOutcome[V]   { return rejected(item) }

// Container is the interface the inference cycle depends on, satisfied by
// both the deterministic Map and the probabilistic Bag, so cycle code
// never hard-codes which bag variant backs a given container.
type Container[K comparable, V budget.Item[K]] interface {
	PutIn(item V) InsertOutcome[V]
	Get(key K) (V, bool)
	Take(key K) (V, bool)
	TakeHighestPriorityItem() (V, bool)
	PutBack(item V, forgetCycles float64, now int64, relativeThreshold float64) InsertOutcome[V]
	IsEmpty() bool
	Size() int
	Values() []V
}

// entry wraps an item with the monotonic insertion sequence used to break
// priority ties deterministically, and its position in the heap slice for
// O(log n) removal by key.
type entry[K comparable, V budget.Item[K]] struct {
	item  V
	seq   uint64
	index int
}

func (e *entry[K, V]) priority() float64 {
	return e.item.Budget().Priority
}

// Map is a bounded priority index backed by container/heap: a min-heap on
// priority (ties broken by insertion order) so PutIn's eviction is
// O(log n); TakeHighestPriorityItem's selection is a linear scan.
type Map[K comparable, V budget.Item[K]] struct {
	mu      sync.Mutex
	maxSize int
	heap    entryHeap[K, V]
	byKey   map[K]*entry[K, V]
	seq     uint64
}

// NewMap creates a Map with the given capacity. Capacity 0 is valid and
// causes every PutIn to reject its argument immediately.
func NewMap[K comparable, V budget.Item[K]](maxSize int) *Map[K, V] {
	return &Map[K, V]{
		maxSize: maxSize,
		byKey:   make(map[K]*entry[K, V]),
	}
}

// PutIn inserts item, evicting the lowest-priority element if the map is
// at capacity. A same-key insert replaces the existing entry for that key
// specifically (displacing it), not the lowest-priority element.
func (m *Map[K, V]) PutIn(item V) InsertOutcome[V] {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := item.Name()
	if existing, ok := m.byKey[key]; ok {
		old := existing.item
		m.removeEntry(existing)
		m.insertLocked(item)
		return displaced[V](old)
	}

	if m.maxSize <= 0 {
		return rejected(item)
	}

	if len(m.heap) >= m.maxSize {
		lowest := m.heap[0]
		if lowest.priority() > item.Budget().Priority {
			// The incoming item is itself the lowest priority in a full
			// container: reject it without disturbing the heap.
			return rejected(item)
		}
		evicted := heap.Pop(&m.heap).(*entry[K, V])
		delete(m.byKey, evicted.item.Name())
		m.insertLocked(item)
		return displaced[V](evicted.item)
	}

	m.insertLocked(item)
	return inserted[V]()
}

func (m *Map[K, V]) insertLocked(item V) {
	e := &entry[K, V]{item: item, seq: m.seq}
	m.seq++
	heap.Push(&m.heap, e)
	m.byKey[item.Name()] = e
}

func (m *Map[K, V]) removeEntry(e *entry[K, V]) {
	heap.Remove(&m.heap, e.index)
	delete(m.byKey, e.item.Name())
}

// Get returns the item for key without mutating the container.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byKey[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.item, true
}

// Take removes and returns the item for key, if present.
func (m *Map[K, V]) Take(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byKey[key]
	if !ok {
		var zero V
		return zero, false
	}
	m.removeEntry(e)
	return e.item, true
}

// TakeHighestPriorityItem removes and returns the item with the greatest
// priority, or false if the container is empty. container/heap only gives
// O(log n) access to the minimum, so finding the maximum here is a linear
// scan over the heap slice rather than a second pop — acceptable given the
// bag sizes this core runs with (hundreds to low thousands of concepts).
func (m *Map[K, V]) TakeHighestPriorityItem() (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.heap) == 0 {
		var zero V
		return zero, false
	}

	highestIdx := 0
	for i, e := range m.heap {
		if e.item.Budget().Priority > m.heap[highestIdx].item.Budget().Priority {
			highestIdx = i
		}
	}
	e := m.heap[highestIdx]
	heap.Remove(&m.heap, highestIdx)
	delete(m.byKey, e.item.Name())
	return e.item, true
}

// PutBack applies forgetting to item's budget, then PutIn's it — the
// remove-then-reinsert primitive every budget mutation in the core must
// go through, since priority keys the heap.
func (m *Map[K, V]) PutBack(item V, forgetCycles float64, now int64, relativeThreshold float64) InsertOutcome[V] {
	budget.ApplyForgetting(item.Budget(), forgetCycles, relativeThreshold, now)
	return m.PutIn(item)
}

// IsEmpty reports whether the container holds no items.
func (m *Map[K, V]) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.heap) == 0
}

// Size returns the number of items currently held.
func (m *Map[K, V]) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.heap)
}

// Values returns a snapshot slice of every item currently held, in
// unspecified order.
func (m *Map[K, V]) Values() []V {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]V, len(m.heap))
	for i, e := range m.heap {
		out[i] = e.item
	}
	return out
}

// entryHeap implements container/heap.Interface as a min-heap on priority,
// ties broken by insertion sequence so iteration order is deterministic
// across runs given the same insert sequence.
type entryHeap[K comparable, V budget.Item[K]] []*entry[K, V]

func (h entryHeap[K, V]) Len() int { return len(h) }

func (h entryHeap[K, V]) Less(i, j int) bool {
	pi, pj := h[i].priority(), h[j].priority()
	if pi != pj {
		return pi < pj
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap[K, V]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap[K, V]) Push(x any) {
	e := x.(*entry[K, V])
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap[K, V]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
