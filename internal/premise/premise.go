// Package premise implements the premise queue and the execution of a
// single FireBelief record: the derivation context, stamp merge, question
// matching, and the hand-off into the injected rule table.
package premise

import (
	"context"
	"fmt"

	"github.com/normanking/alann/internal/budget"
	"github.com/normanking/alann/internal/concept"
	"github.com/normanking/alann/internal/logging"
	"github.com/normanking/alann/internal/rules"
	"github.com/normanking/alann/internal/task"
	"github.com/normanking/alann/internal/term"
	"github.com/normanking/alann/internal/truth"
)

// Key identifies a Record uniquely within the premise queue. Records are
// never de-duplicated by content (per the open question on FireBelief
// equality: every enqueue is distinct), so Key is just a fresh per-enqueue
// sequence number rather than a rendering of the record's fields.
type Key uint64

// Record is the FireBelief equivalent: one candidate inference firing,
// pairing a task with a subterm's concept and, usually, one of that
// concept's beliefs. Belief is nil for the "virtual premise" case, which
// lets rules fire on the term alone without a matching belief.
type Record struct {
	Task            *task.Task
	TaskConceptTerm term.Term
	Subterm         term.Term
	BeliefConcept   *concept.Concept
	Belief          *task.Task
	Temporal        bool

	BudgetValue budget.Value
	key         Key
}

// NewRecord builds a Record with its budget derived exactly per the
// priority/durability/quality formula: priority is the belief concept's
// own priority scaled by the belief's truth expectation (or 0.5 for a
// virtual premise with no belief), durability is a fixed
// tasklinkForgetDurations-derived constant, and quality starts at zero.
func NewRecord(key Key, t *task.Task, taskConceptTerm, subterm term.Term, beliefConcept *concept.Concept, belief *task.Task, temporal bool, tasklinkForgetDurations float64) *Record {
	expectation := 0.5
	if belief != nil && belief.Sentence.Truth != nil {
		expectation = belief.Sentence.Truth.Expectation()
	}
	return &Record{
		Task:            t,
		TaskConceptTerm: taskConceptTerm,
		Subterm:         subterm,
		BeliefConcept:   beliefConcept,
		Belief:          belief,
		Temporal:        temporal,
		key:             key,
		BudgetValue: budget.Value{
			Priority:   clamp01(beliefConcept.Budget().Priority * expectation),
			Durability: clamp01(tasklinkForgetDurations),
			Quality:    0,
		},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Name implements budget.Item[Key].
func (r *Record) Name() Key { return r.key }

// Budget implements budget.Item[Key].
func (r *Record) Budget() *budget.Value { return &r.BudgetValue }

const queryVariableKind = '?'

// Execute runs one premise firing: build its derivation context, merge or
// retime the evidential stamp, attempt question matching if applicable,
// then hand off to the injected rule table. Any panic raised by the rule
// table is recovered and logged rather than allowed to propagate, per the
// core's requirement that a derivation failure never leaks past a single
// record's execution.
func (r *Record) Execute(ctx context.Context, now int64, collaborators rules.Collaborators, reasoner rules.Reasoner, maxBaseLength int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logging.Error("recovered panic executing premise record: %v", p)
			err = fmt.Errorf("premise execution panicked: %v", p)
		}
	}()

	dc := &rules.DerivationContext{
		Reasoner: reasoner,
		Now:      now,
		Task:     r.Task,
		Term:     r.Subterm,
		Concept:  r.BeliefConcept,
		Belief:   r.Belief,
		Temporal: r.Temporal,
	}

	if r.Belief != nil {
		dc.Stamp = truth.Merge(r.Task.Sentence.Stamp, r.Belief.Sentence.Stamp, now, maxBaseLength)
	} else {
		dc.Stamp = r.Task.Sentence.Stamp.Eternalize(now)
	}

	if !r.Task.Sentence.IsJudgment() && r.Belief != nil && collaborators.Variables != nil && collaborators.Local != nil {
		if collaborators.Variables.Unify(queryVariableKind, r.TaskConceptTerm, r.Belief.Sentence.Term) {
			collaborators.Local.TrySolution(r.Belief, r.Task, dc, false)
		}
	}

	if collaborators.RuleTable == nil {
		return nil
	}
	return collaborators.RuleTable.Reason(ctx, r.Task, r.Belief, r.Subterm, dc)
}
