// Package task defines the Task and Sentence types the reasoning core
// fires premises over: every judgment, question, and goal flowing through
// a Reasoner is a *Task, keyed uniquely for the cycling-task priority
// queue by Key, a rendering of its sentence distinct from its Term's own
// identity (many tasks can share a term).
package task

import (
	"fmt"

	"github.com/normanking/alann/internal/budget"
	"github.com/normanking/alann/internal/term"
	"github.com/normanking/alann/internal/truth"
)

// Punctuation is the closed set of sentence kinds a Task can carry.
type Punctuation int

const (
	Judgment Punctuation = iota
	Question
	Goal
)

func (p Punctuation) String() string {
	switch p {
	case Judgment:
		return "."
	case Question:
		return "?"
	case Goal:
		return "!"
	default:
		return "?unknown"
	}
}

// Sentence is the content of a Task: a term under a punctuation, with a
// truth value (nil for questions) and an evidential stamp.
type Sentence struct {
	Term        term.Term
	Punctuation Punctuation
	Truth       *truth.Value
	Stamp       truth.Stamp
}

// IsJudgment reports whether this sentence asserts a truth value.
func (s Sentence) IsJudgment() bool { return s.Punctuation == Judgment }

// IsQuestion reports whether this sentence asks for a truth value.
func (s Sentence) IsQuestion() bool { return s.Punctuation == Question }

// IsGoal reports whether this sentence requests an action.
func (s Sentence) IsGoal() bool { return s.Punctuation == Goal }

// Key uniquely identifies a Task within a single priority container. Two
// tasks on the same term but different punctuation, truth, or evidential
// base get distinct keys; this is deliberately a rendering of identity,
// not of term equality, since concepts key on term but task queues key on
// the sentence occurrence.
type Key string

// Task is a Sentence carrying its own attention budget, the unit the
// cycling-task queue, the premise queue, and concept belief tables all
// operate on.
type Task struct {
	Sentence    Sentence
	BudgetValue budget.Value

	// key is computed once at construction (NewTask) from the sentence's
	// term, punctuation, truth, evidential base and occurrence time, since Term/Truth/Stamp are otherwise mutable-looking
	// fields and recomputing a string key on every Name() call would make
	// map-key stability depend on callers never mutating a live Task.
	key Key
}

// NewTask constructs a Task with a key derived from its sentence. now
// stamps an eternal sentence's occurrence time is left as given by the
// caller; NewTask does not alter Stamp.
func NewTask(s Sentence, b budget.Value) *Task {
	return &Task{
		Sentence:    s,
		BudgetValue: b,
		key:         keyFor(s),
	}
}

func keyFor(s Sentence) Key {
	base := "∅"
	for i, e := range s.Stamp.Base {
		if i == 0 {
			base = ""
		} else {
			base += ","
		}
		base += fmt.Sprintf("%d.%d", e.ReasonerID, e.Serial)
	}
	truthPart := ""
	if s.Truth != nil {
		truthPart = fmt.Sprintf("%%%g;%g", s.Truth.Frequency, s.Truth.Confidence)
	}
	termName := "∅"
	if s.Term != nil {
		termName = s.Term.Name()
	}
	return Key(fmt.Sprintf("%s%s%s@%s/%d", termName, s.Punctuation, truthPart, base, s.Stamp.OccurrenceTime))
}

// Name implements budget.Item[Key].
func (t *Task) Name() Key { return t.key }

// Budget implements budget.Item[Key] by exposing a pointer into the
// embedded value so callers can mutate priority/durability/quality in
// place (the remove-then-reinsert discipline every priority.Container
// method requires).
func (t *Task) Budget() *budget.Value { return &t.BudgetValue }
