// Package cycle implements the ALANN-style inference cycle: the Reasoner
// that owns the concept store, the input/cycling task queues, and the
// premise queue, and drives them through the five-step cycle (temporal
// anchors, task selection, pre-activation, firing, premise batch).
package cycle

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/normanking/alann/internal/budget"
	"github.com/normanking/alann/internal/bus"
	"github.com/normanking/alann/internal/concept"
	"github.com/normanking/alann/internal/config"
	"github.com/normanking/alann/internal/logging"
	"github.com/normanking/alann/internal/overflow"
	"github.com/normanking/alann/internal/premise"
	"github.com/normanking/alann/internal/priority"
	"github.com/normanking/alann/internal/rules"
	"github.com/normanking/alann/internal/task"
	"github.com/normanking/alann/internal/term"
	"github.com/normanking/alann/internal/truth"
)

// defaultMaxStampBaseLength bounds the evidential base a premise's merged
// stamp can grow to. Not one of the configured parameters (the stamp
// algebra itself is out of this core's scope); chosen generously enough
// that it only ever trims pathologically long derivation chains.
const defaultMaxStampBaseLength = 20

// conceptAdapter lets *concept.Concept satisfy overflow.Concept. Concept's
// own Term field cannot also carry a Term() method (a struct cannot
// declare a field and a method under the same name), so the overflow cache
// is parameterized over this thin wrapper instead of *concept.Concept
// directly.
type conceptAdapter struct{ *concept.Concept }

// Term implements overflow.Concept.
func (a conceptAdapter) Term() term.Term { return a.Concept.Term }

// NewOverflowCache constructs the overflow cache a Reasoner expects,
// sized capacity. Exported since conceptAdapter itself is not nameable
// outside this package — callers wire the cache through this constructor
// and pass the result straight into NewReasoner.
func NewOverflowCache(capacity int) (*overflow.Cache[conceptAdapter], error) {
	return overflow.NewCache[conceptAdapter](capacity)
}

// Reasoner is the attention and inference-control core: it holds every
// piece of cross-cycle state (concept store, overflow cache, task queues,
// premise queue) and the collaborators injected from outside (rule table,
// clock, unification, interval normalization).
type Reasoner struct {
	Concepts     *concept.Store
	Overflow     *overflow.Cache[conceptAdapter]
	InputTasks   *taskFIFO
	CyclingTasks priority.Container[task.Key, *task.Task]
	PremiseQueue priority.Container[premise.Key, *premise.Record]

	Params        config.Parameters
	Bus           *bus.Bus
	Clock         rules.Timable
	Collaborators rules.Collaborators
	Builder       concept.Builder

	// Rng is the per-reasoner seeded source backing a probabilistic
	// internal/bag.Bag, if one is in use as CyclingTasks/Concepts/
	// PremiseQueue's container. Reset reseeds it; nil is fine when every
	// container in use is the deterministic priority.Map instead.
	Rng        *rand.Rand
	RandomSeed int64

	NarID       uuid.UUID
	ReasonerID  uint64
	StampSerial uint64

	mu          sync.Mutex
	cycleNumber int64
	premiseSeq  uint64
}

// NewReasoner wires together an already-constructed concept store, task
// containers, and premise queue with the given parameters and
// collaborators. overflowCache may be nil to disable the subconscious
// cache entirely.
func NewReasoner(
	params config.Parameters,
	collaborators rules.Collaborators,
	eventBus *bus.Bus,
	clock rules.Timable,
	concepts *concept.Store,
	cyclingTasks priority.Container[task.Key, *task.Task],
	premiseQueue priority.Container[premise.Key, *premise.Record],
	overflowCache *overflow.Cache[conceptAdapter],
	reasonerID uint64,
	narID uuid.UUID,
) *Reasoner {
	return &Reasoner{
		Concepts:      concepts,
		Overflow:      overflowCache,
		InputTasks:    &taskFIFO{},
		CyclingTasks:  cyclingTasks,
		PremiseQueue:  premiseQueue,
		Params:        params,
		Bus:           eventBus,
		Clock:         clock,
		Collaborators: collaborators,
		Builder:       concept.DefaultBuilder{},
		RandomSeed:    params.RandomSeed,
		NarID:         narID,
		ReasonerID:    reasonerID,
	}
}

func (r *Reasoner) now() int64 {
	if r.Clock != nil {
		return r.Clock.Time()
	}
	return 0
}

func (r *Reasoner) replaceIntervals(t term.Term) term.Term {
	if r.Collaborators.Intervals != nil {
		return r.Collaborators.Intervals.ReplaceIntervals(t)
	}
	return t
}

// CycleNumber reports the most recently completed (or in-flight) cycle
// count, for internal/snapshot to persist alongside the rest of the
// reasoner's state.
func (r *Reasoner) CycleNumber() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycleNumber
}

// PremiseSeq reports the next premise sequence number that would be
// assigned, for internal/snapshot to persist alongside the cycle counter.
func (r *Reasoner) PremiseSeq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.premiseSeq
}

// RestoreCounters sets the cycle and premise-sequence counters to values
// read back from a persisted snapshot, so freshly enqueued premises and
// emitted events continue from where the snapshot left off rather than
// restarting at zero.
func (r *Reasoner) RestoreCounters(cycleNumber int64, premiseSeq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycleNumber = cycleNumber
	r.premiseSeq = premiseSeq
}

// RestoreOverflowConcept reinserts c directly into the overflow cache
// without going through Remember, since a snapshot load is not itself a
// forgetting event and must not be reported as one.
func (r *Reasoner) RestoreOverflowConcept(c *concept.Concept) {
	if r.Overflow != nil {
		r.Overflow.Remember(conceptAdapter{c})
	}
}

// Remember implements concept.Remover: a concept Conceptualize could not
// keep in the store is offered to the overflow cache (if any) and reported
// via EventConceptForget.
func (r *Reasoner) Remember(c *concept.Concept) {
	if r.Overflow != nil {
		r.Overflow.Remember(conceptAdapter{c})
	}
	r.emitConcept(bus.EventConceptForget, c, "")
}

func (r *Reasoner) emitConcept(kind bus.EventType, c *concept.Concept, details string) {
	if r.Bus == nil {
		return
	}
	ev := bus.NewEvent(kind)
	ev.CycleNumber = r.cycleNumber
	ev.Details = details
	if c != nil {
		ev.TermKey = c.Term.Name()
		ev.Priority = c.Budget().Priority
		ev.Durability = c.Budget().Durability
		ev.Quality = c.Budget().Quality
	}
	r.Bus.Publish(ev)
}

func (r *Reasoner) emitTask(kind bus.EventType, t *task.Task, details string) {
	if r.Bus == nil {
		return
	}
	ev := bus.NewEvent(kind)
	ev.CycleNumber = r.cycleNumber
	ev.Details = details
	ev.TermKey = t.Sentence.Term.Name()
	ev.Priority = t.Budget().Priority
	ev.Durability = t.Budget().Durability
	ev.Quality = t.Budget().Quality
	ev.Punctuation = t.Sentence.Punctuation.String()
	r.Bus.Publish(ev)
}

func (r *Reasoner) emitCycle(kind bus.EventType) {
	if r.Bus == nil {
		return
	}
	ev := bus.NewEvent(kind)
	ev.CycleNumber = r.cycleNumber
	r.Bus.Publish(ev)
}

// conceptualize is the full eight-step protocol including the overflow
// cache lookup: take from the store, fall back to recalling from the
// overflow cache, fall back to building a fresh concept via Builder if
// createIfMissing, then put the result back and dispatch on what (if
// anything) was displaced. An interval term is never conceptualized: it
// carries no independent meaning outside the sequence it delimits.
func (r *Reasoner) conceptualize(b budget.Value, t term.Term, createIfMissing bool) (*concept.Concept, error) {
	if term.IsInterval(t) {
		return nil, nil
	}
	t = r.replaceIntervals(t)
	now := r.now()

	if _, found := r.Concepts.Get(t); !found && r.Overflow != nil {
		if adapter, ok := r.Overflow.Recall(t); ok {
			c := adapter.Concept
			c.Budget().LastForgetTime = now
			r.emitConcept(bus.EventConceptRemember, c, "")
			budget.Activate(c.Budget(), b, budget.ModeConceptActivate)
			outcome := r.Concepts.PutBack(c, r.Params.ConceptForgetDurations, now, r.Params.QualityRescaled)
			return r.dispatchConceptualize(c, outcome)
		}
	}

	_, existed := r.Concepts.Get(t)
	c, err := concept.Conceptualize(r.Concepts, r.Builder, r, b, t, createIfMissing, r.Params.ConceptForgetDurations, now, r.Params.QualityRescaled)
	if err != nil || c == nil {
		return c, err
	}
	if !existed {
		r.emitConcept(bus.EventConceptNew, c, "")
	}
	return c, nil
}

func (r *Reasoner) dispatchConceptualize(c *concept.Concept, outcome priority.InsertOutcome[*concept.Concept]) (*concept.Concept, error) {
	if outcome.Inserted() {
		return c, nil
	}
	if outcome.Displaced() {
		other := outcome.Other()
		if other == c {
			r.Remember(c)
			return nil, nil
		}
		r.Remember(other)
		return c, nil
	}
	r.Remember(outcome.Item())
	return nil, nil
}

// Activate runs the take-activate-putBack sequence on an existing concept,
// identified by term, without going through the full conceptualize
// protocol (no builder, no overflow lookup).
func (r *Reasoner) Activate(t term.Term, incoming budget.Value, mode budget.ActivationMode) {
	c, found := r.Concepts.Take(t)
	if !found {
		return
	}
	budget.Activate(c.Budget(), incoming, mode)
	outcome := r.Concepts.PutBack(c, r.Params.ConceptForgetDurations, r.now(), r.Params.QualityRescaled)
	r.dispatchConceptualize(c, outcome)
}

// Cycle runs exactly one step of the ALANNCircle: temporal anchors, task
// selection, pre-activation, firing, and premise draining, emitting
// EventCycleStart/EventCycleEnd around the whole sequence.
func (r *Reasoner) Cycle(ctx context.Context) error {
	r.mu.Lock()
	r.cycleNumber++
	r.mu.Unlock()

	r.emitCycle(bus.EventCycleStart)
	defer r.emitCycle(bus.EventCycleEnd)

	now := r.now()

	anchors := make([]*concept.Concept, 0, r.Params.SequenceBagAttempts)
	for i := 0; i < r.Params.SequenceBagAttempts; i++ {
		c, ok := r.Concepts.TakeHighestPriorityItem()
		if !ok {
			break
		}
		anchors = append(anchors, c)
	}
	for _, c := range anchors {
		r.Concepts.PutBack(c, r.Params.ConceptForgetDurations, now, r.Params.QualityRescaled)
	}

	selected := make([]*task.Task, 0, r.Params.TasksMaxFired)
	for i := 0; i < r.Params.TasksMaxFired; i++ {
		if t, ok := r.InputTasks.PopFront(); ok {
			selected = append(selected, t)
			continue
		}
		if t, ok := r.CyclingTasks.TakeHighestPriorityItem(); ok {
			selected = append(selected, t)
			continue
		}
		break
	}

	for _, t := range selected {
		if _, err := r.conceptualize(*t.Budget(), t.Sentence.Term, true); err != nil {
			logging.Error("cycle: pre-activation conceptualize failed: %v", err)
		}
	}

	for _, t := range selected {
		r.fireTask(ctx, t, anchors)
		r.CyclingTasks.PutBack(t, r.Params.TaskLinkForgetDurations, r.now(), r.Params.QualityRescaled)
	}

	for i := 0; i < r.Params.PremisesMaxFired; i++ {
		record, ok := r.PremiseQueue.TakeHighestPriorityItem()
		if !ok {
			break
		}
		if err := record.Execute(ctx, r.now(), r.Collaborators, r, defaultMaxStampBaseLength); err != nil {
			logging.Error("cycle: premise execution failed: %v", err)
		}
	}

	return nil
}

// fireTask implements fireTask(task) exactly: conceptualize the task's
// term, insert the task as a belief into its own concept and every
// component-term concept, apply the novelty gate, then enqueue a premise
// per (component belief, virtual) pair plus a temporal premise per
// current-event anchor.
func (r *Reasoner) fireTask(ctx context.Context, t *task.Task, anchors []*concept.Concept) {
	taskConceptTerm := r.replaceIntervals(t.Sentence.Term)

	taskConcept, err := r.conceptualize(*t.Budget(), taskConceptTerm, true)
	if err != nil {
		logging.Error("fireTask: conceptualize failed for %s: %v", taskConceptTerm.Name(), err)
		return
	}
	if taskConcept == nil {
		return
	}

	r.addToBeliefsConceptualizingComponents(t, taskConceptTerm, taskConcept)

	if taken, ok := r.Concepts.Take(taskConceptTerm); ok {
		r.Concepts.PutBack(taken, r.Params.ConceptForgetDurations, r.now(), r.Params.QualityRescaled)
		taskConcept = taken
	}

	now := r.now()
	if taskConcept.LastFireTime != math.MinInt64 && now-taskConcept.LastFireTime < r.Params.NoveltyHorizon {
		return
	}
	taskConcept.LastFireTime = now

	if ct, ok := taskConceptTerm.(term.CompoundTerm); ok {
		for _, link := range ct.Components() {
			sub := link.Component
			beliefConcept, found := r.Concepts.Get(sub)
			if !found {
				continue
			}
			if taken, ok := r.Concepts.Take(sub); ok {
				r.Concepts.PutBack(taken, r.Params.ConceptForgetDurations, now, r.Params.QualityRescaled)
				beliefConcept = taken
			}

			for _, belief := range beliefConcept.Beliefs {
				r.enqueuePremise(t, taskConceptTerm, belief.Sentence.Term, beliefConcept, belief, false)
			}
			r.enqueuePremise(t, taskConceptTerm, sub, beliefConcept, nil, false)
		}
	}

	if t.Sentence.IsJudgment() && !t.Sentence.Stamp.Eternal {
		for _, c := range anchors {
			if c.Event == nil {
				continue
			}
			r.enqueuePremise(t, taskConceptTerm, c.Term, c, c.Event, true)
		}
	}
}

// addToBeliefsConceptualizingComponents inserts t as a belief into
// taskConcept and, if t is a judgment and taskConceptTerm is compound,
// into every component-term concept (conceptualizing each on demand).
func (r *Reasoner) addToBeliefsConceptualizingComponents(t *task.Task, taskConceptTerm term.Term, taskConcept *concept.Concept) {
	if !t.Sentence.IsJudgment() {
		return
	}
	r.addBeliefAndEmit(taskConcept, t)

	ct, ok := taskConceptTerm.(term.CompoundTerm)
	if !ok {
		return
	}
	for _, link := range ct.Components() {
		if term.IsInterval(link.Component) {
			continue
		}
		compConcept, err := r.conceptualize(budget.Value{
			Priority:   t.Budget().Priority,
			Durability: t.Budget().Durability,
		}, link.Component, true)
		if err != nil || compConcept == nil {
			continue
		}
		r.addBeliefAndEmit(compConcept, t)
	}
}

func (r *Reasoner) addBeliefAndEmit(c *concept.Concept, t *task.Task) {
	evicted, inserted := c.AddBelief(t, r.Params.ConceptBeliefsMax)
	if inserted {
		r.emitTask(bus.EventConceptBeliefAdd, t, c.Term.Name())
	}
	if evicted != nil {
		r.emitTask(bus.EventConceptBeliefRemove, evicted, c.Term.Name())
	}
}

func (r *Reasoner) enqueuePremise(t *task.Task, taskConceptTerm, subterm term.Term, beliefConcept *concept.Concept, belief *task.Task, temporal bool) {
	r.mu.Lock()
	key := premise.Key(r.premiseSeq)
	r.premiseSeq++
	r.mu.Unlock()

	record := premise.NewRecord(key, t, taskConceptTerm, subterm, beliefConcept, belief, temporal, r.Params.TaskLinkForgetDurations)
	r.PremiseQueue.PutIn(record)
}

// AddTask implements rules.Reasoner: a derived task re-enters through the
// cycling-task queue and is subject to the output/volume gate; an input
// task is simply appended to the FIFO for the next cycle's task selection
// to consume.
func (r *Reasoner) AddTask(t *task.Task, derived bool) {
	if !derived {
		r.InputTasks.PushBack(t)
		return
	}

	outcome := r.CyclingTasks.PutIn(t)
	if outcome.Displaced() {
		if other := outcome.Other(); other != t {
			r.emitTask(bus.EventTaskRemove, other, "displaced")
		}
	} else if outcome.Rejected() {
		r.emitTask(bus.EventTaskRemove, outcome.Item(), "rejected")
	}

	r.Output(t)
}

// Output is the VOLUME-gated "is this derivation worth reporting" filter:
// a derived task whose budget summary clears the noise floor implied by
// VOLUME is published as a Reportable EventTaskAdd; below it, nothing is
// emitted (the task is still in CyclingTasks, just not reported).
func (r *Reasoner) Output(t *task.Task) bool {
	noiseLevel := 1 - float64(r.Params.Volume)/100
	reportable := t.Budget().Summary() >= noiseLevel
	if !reportable || r.Bus == nil {
		return reportable
	}

	ev := bus.NewEvent(bus.EventTaskAdd)
	ev.CycleNumber = r.cycleNumber
	ev.TermKey = t.Sentence.Term.Name()
	ev.Priority = t.Budget().Priority
	ev.Durability = t.Budget().Durability
	ev.Quality = t.Budget().Quality
	ev.Punctuation = t.Sentence.Punctuation.String()
	ev.Reportable = true
	r.Bus.Publish(ev)
	return reportable
}

// ExecutedTask is the feedback-loop entry point mirroring the original's
// Memory.executedTask: it wraps an externally executed operation's
// resulting truth value into a judgment Task with the configured
// feedback-budget defaults, and feeds it back in as a derived task.
func (r *Reasoner) ExecutedTask(operation term.Term, result truth.Value) *task.Task {
	now := r.now()
	entry := truth.NewStampSerial(r.ReasonerID, &r.StampSerial)

	sentence := task.Sentence{
		Term:        operation,
		Punctuation: task.Judgment,
		Truth:       &result,
		Stamp: truth.Stamp{
			CreationTime:   now,
			OccurrenceTime: now,
			Eternal:        false,
			Base:           []truth.BaseEntry{entry},
		},
	}
	b := budget.Value{
		Priority:   r.Params.DefaultFeedbackPriority,
		Durability: r.Params.DefaultFeedbackDurability,
	}
	newTask := task.NewTask(sentence, b)
	r.AddTask(newTask, true)
	return newTask
}

// Reset mirrors Memory.reset(): it reports the reset boundary via
// EventResetStart/EventResetEnd and reseeds the per-reasoner RNG (if one
// is wired in), without touching the concept store or task queues — a
// reset rewinds determinism, it does not clear memory.
func (r *Reasoner) Reset() {
	r.emitCycle(bus.EventResetStart)
	if r.Rng != nil {
		r.Rng.Seed(r.RandomSeed)
	}
	r.emitCycle(bus.EventResetEnd)
}
