// Package concept implements the concept store and the conceptualization
// protocol the reasoning core uses to look up or create the Concept for a
// term, activating it if it already exists and evicting into the overflow
// cache if the store is full.
package concept

import (
	"math"
	"sync"

	"github.com/normanking/alann/internal/budget"
	"github.com/normanking/alann/internal/priority"
	"github.com/normanking/alann/internal/task"
	"github.com/normanking/alann/internal/term"
)

// Concept is the reasoning core's unit of interrelated beliefs about a
// single term: the term itself, an ordered belief table bounded by a
// configured capacity, the most recent non-eternal judgment (if any), and
// the attention budget that governs how often it gets cycled.
type Concept struct {
	Term         term.Term
	Beliefs      []*task.Task
	BudgetValue  budget.Value
	LastFireTime int64
	Event        *task.Task

	mu sync.Mutex
}

// NewConcept creates a Concept for t with the given initial budget and no
// beliefs yet. LastFireTime starts at math.MinInt64 so the very first
// cycle always finds it eligible to fire.
func NewConcept(b budget.Value, t term.Term) *Concept {
	return &Concept{
		Term:         t,
		BudgetValue:  b,
		LastFireTime: math.MinInt64,
	}
}

// Name implements budget.Item[term.Term].
func (c *Concept) Name() term.Term { return c.Term }

// Budget implements budget.Item[term.Term].
func (c *Concept) Budget() *budget.Value { return &c.BudgetValue }

// rank scores a belief for table ordering: the truth-value expectation of
// the sentence, ranking sentences with no truth value (questions) at zero
// so they never crowd out an actual belief.
func rank(t *task.Task) float64 {
	if t.Sentence.Truth == nil {
		return 0
	}
	return t.Sentence.Truth.Expectation()
}

// AddBelief inserts t into the belief table in descending rank order,
// rejecting it outright if an existing entry carries the same truth value
// and evidential stamp (the judgment has already been recorded). If the
// table grows past capacity as a result of the insert, the lowest-ranked
// entry is evicted and returned; otherwise evicted is nil. A false return
// for inserted means the table is unchanged: the belief was a duplicate,
// or the table was full and the belief ranked below every entry.
//
// This mirrors the original rank-insertion-sort-then-trim algorithm
// exactly: a belief ranked below everything already in a full table is
// silently dropped rather than evicting anything.
func (c *Concept) AddBelief(t *task.Task, capacity int) (evicted *task.Task, inserted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rank1 := rank(t)
	insertAt := -1
	for i, existing := range c.Beliefs {
		rank2 := rank(existing)
		if rank1 < rank2 {
			continue
		}
		if isDuplicateBelief(t, existing) {
			return nil, false
		}
		insertAt = i
		break
	}

	if insertAt >= 0 {
		c.Beliefs = append(c.Beliefs, nil)
		copy(c.Beliefs[insertAt+1:], c.Beliefs[insertAt:len(c.Beliefs)-1])
		c.Beliefs[insertAt] = t
		if t.Sentence.IsJudgment() && !t.Sentence.Stamp.Eternal {
			c.Event = t
		}
	}

	switch {
	case len(c.Beliefs) == capacity:
		return nil, insertAt >= 0
	case len(c.Beliefs) > capacity:
		evicted = c.Beliefs[len(c.Beliefs)-1]
		c.Beliefs = c.Beliefs[:len(c.Beliefs)-1]
		return evicted, true
	case insertAt == -1:
		c.Beliefs = append(c.Beliefs, t)
		if t.Sentence.IsJudgment() && !t.Sentence.Stamp.Eternal {
			c.Event = t
		}
		return nil, true
	default:
		return nil, true
	}
}

func isDuplicateBelief(a, b *task.Task) bool {
	if a.Sentence.Truth == nil || b.Sentence.Truth == nil {
		return false
	}
	return a.Sentence.Truth.Equal(*b.Sentence.Truth) && a.Sentence.Stamp.Equal(b.Sentence.Stamp)
}

// BeliefCount reports the current size of the belief table.
func (c *Concept) BeliefCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Beliefs)
}

// Store is the main concept index: a bounded priority.Container keyed by
// term, sized to CONCEPT_BAG_SIZE.
type Store struct {
	container priority.Container[term.Term, *Concept]
}

// NewStore wraps an already-constructed Container (a priority.Map for
// deterministic runs, or a bag.Bag for probabilistic selection).
func NewStore(container priority.Container[term.Term, *Concept]) *Store {
	return &Store{container: container}
}

// Get returns the concept for t without activating or removing it.
func (s *Store) Get(t term.Term) (*Concept, bool) {
	return s.container.Get(t)
}

// Take removes and returns the concept for t, if present, without
// activating it. Callers pair it with PutBack so forgetting is applied on
// reinsertion.
func (s *Store) Take(t term.Term) (*Concept, bool) {
	return s.container.Take(t)
}

// TakeHighestPriorityItem removes and returns the highest-priority
// concept, used by the cycle's temporal-anchor step.
func (s *Store) TakeHighestPriorityItem() (*Concept, bool) {
	return s.container.TakeHighestPriorityItem()
}

// PutBack reinserts c after applying forgetting, the remove-then-reinsert
// primitive Conceptualize and Activate both build on.
func (s *Store) PutBack(c *Concept, forgetCycles float64, now int64, relativeThreshold float64) priority.InsertOutcome[*Concept] {
	return s.container.PutBack(c, forgetCycles, now, relativeThreshold)
}

// Size returns the number of concepts currently held.
func (s *Store) Size() int { return s.container.Size() }

// Values returns every concept currently held, in no particular order.
// Used by internal/snapshot to enumerate the store for persistence; never
// called from the cycle itself.
func (s *Store) Values() []*Concept { return s.container.Values() }

// Builder is the collaborator hook Conceptualize uses to construct a brand
// new Concept for a term it has never seen — injected so the control core
// never hard-codes how a term's initial term-link templates are derived
// from its compound structure.
type Builder interface {
	NewConcept(b budget.Value, t term.Term) (*Concept, error)
}

// DefaultBuilder constructs a Concept with NewConcept and no error path —
// the behavior every caller gets unless a collaborator overrides it.
type DefaultBuilder struct{}

// NewConcept implements Builder.
func (DefaultBuilder) NewConcept(b budget.Value, t term.Term) (*Concept, error) {
	return NewConcept(b, t), nil
}

// Remover receives every concept Conceptualize pushes out of the store,
// whether the concept itself could not be inserted or another concept was
// displaced to make room; Conceptualize calls Remember once per such
// concept.
type Remover interface {
	Remember(c *Concept)
}

// Conceptualize looks up or creates the Concept for t, exactly per the
// remove-activate-reinsert protocol: take the existing concept out of the
// store (if present) and apply ConceptActivate to its budget, or build a
// fresh one with b via builder if createIfMissing and none exists; then
// put the result back, consuming whatever PutBack displaces.
//
//  1. Take concept for t out of the store.
//  2. If found, Activate its budget with b (ModeConceptActivate).
//  3. If not found and createIfMissing, build one via builder with budget b.
//  4. If not found and !createIfMissing, return (nil, nil): nothing to do.
//  5. PutBack the concept, applying forgetting first.
//  6. If nothing was displaced, return the concept: plain insert.
//  7. If the displaced item is the concept itself, the container rejected
//     it (capacity 0, or it ranked lowest in a full store): hand it to
//     remover and return (nil, nil) — conceptualization failed.
//  8. Otherwise some other concept was displaced: hand that one to
//     remover and return the concept we were conceptualizing.
func Conceptualize(store *Store, builder Builder, remover Remover, b budget.Value, t term.Term, createIfMissing bool, forgetCycles float64, now int64, relativeThreshold float64) (*Concept, error) {
	if term.IsInterval(t) {
		return nil, nil
	}
	concept, found := store.Take(t)

	if found {
		budget.Activate(concept.Budget(), b, budget.ModeConceptActivate)
	} else if createIfMissing {
		built, err := builder.NewConcept(b, t)
		if err != nil {
			return nil, err
		}
		concept = built
	} else {
		return nil, nil
	}

	outcome := store.PutBack(concept, forgetCycles, now, relativeThreshold)

	if outcome.Inserted() {
		return concept, nil
	}
	if outcome.Displaced() {
		other := outcome.Other()
		if other == concept {
			remover.Remember(concept)
			return nil, nil
		}
		remover.Remember(other)
		return concept, nil
	}
	// Rejected: the concept itself could not be inserted (capacity 0, or
	// it ranked lowest in a full store).
	remover.Remember(outcome.Item())
	return nil, nil
}

// Activate applies mode to c's budget with incoming, then reinserts c via
// PutBack — the remove-then-reinsert sequence every budget mutation in
// this core must go through since priority keys the container.
func Activate(store *Store, c *Concept, incoming budget.Value, mode budget.ActivationMode, forgetCycles float64, now int64, relativeThreshold float64) priority.InsertOutcome[*Concept] {
	store.Take(c.Term)
	budget.Activate(c.Budget(), incoming, mode)
	return store.PutBack(c, forgetCycles, now, relativeThreshold)
}
