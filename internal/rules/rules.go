// Package rules declares the collaborator interfaces the reasoning core
// depends on but does not implement: the term-language rule table, local
// rules, variable unification, interval canonicalization, and the
// monotonic clock. Wiring concrete implementations of these is explicitly
// out of scope for the control core; Reasoner only ever calls through
// these interfaces.
package rules

import (
	"context"

	"github.com/normanking/alann/internal/task"
	"github.com/normanking/alann/internal/term"
	"github.com/normanking/alann/internal/truth"
)

// DerivationContext is the working state a rule-table invocation and
// question matching both read and write: the reasoner they run against,
// the clock reading, and the current task/term/concept/belief under
// consideration. Concept is declared as `any` here to avoid an import
// cycle with internal/concept; callers type-assert it back to
// *concept.Concept.
//
// Stamp is the per-premise merged (or eternalized) evidential base,
// scratch state distinct from Task's own stamp: Task is shared across
// every premise fired for it in a cycle (and is itself stored as a
// belief inside other concepts), so a rule table must read the derived
// evidence from Stamp rather than from Task.Sentence.Stamp.
type DerivationContext struct {
	Reasoner Reasoner
	Now      int64
	Task     *task.Task
	Term     term.Term
	Concept  any
	Belief   *task.Task
	Temporal bool
	Stamp    truth.Stamp
}

// Reasoner is the minimal surface a rule table or local-rules
// implementation needs back from the core: the ability to re-enter a
// derived task. Declared here (rather than importing internal/cycle) to
// keep internal/rules free of a dependency on the cycle package, which
// itself depends on internal/rules.
type Reasoner interface {
	AddTask(t *task.Task, derived bool)
}

// RuleTable is the injected term-rewriting engine. Reason is called once
// per executed premise; any tasks it derives must re-enter through
// dc.Reasoner.AddTask rather than being returned, so the core never
// blocks a premise's execution on how many derivations a rule produces.
type RuleTable interface {
	Reason(ctx context.Context, t *task.Task, belief *task.Task, subterm term.Term, dc *DerivationContext) error
}

// LocalRules is the injected question-answering collaborator. TrySolution
// is invoked when a non-judgment task's term unifies with a belief's term
// during premise execution; it may itself call back into AddTask to
// deliver an answer.
type LocalRules interface {
	TrySolution(belief *task.Task, t *task.Task, dc *DerivationContext, isInput bool) bool
}

// Variables is the injected unification collaborator used by question
// matching before TrySolution is attempted.
type Variables interface {
	Unify(varKind byte, t1, t2 term.Term) bool
}

// IntervalNormalizer canonicalizes a term by replacing any nested interval
// components with their canonical form, so the same underlying sequence
// always conceptualizes to the same term.
type IntervalNormalizer interface {
	ReplaceIntervals(t term.Term) term.Term
}

// Timable is the injected monotonic cycle clock.
type Timable interface {
	Time() int64
}

// Collaborators bundles every injected dependency the Reasoner needs, so
// constructing one is a single argument rather than five.
type Collaborators struct {
	RuleTable RuleTable
	Local     LocalRules
	Variables Variables
	Intervals IntervalNormalizer
	Clock     Timable
}
