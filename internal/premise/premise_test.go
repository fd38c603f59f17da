package premise_test

import (
	"context"
	"testing"

	"github.com/normanking/alann/internal/budget"
	"github.com/normanking/alann/internal/concept"
	"github.com/normanking/alann/internal/premise"
	"github.com/normanking/alann/internal/rules"
	"github.com/normanking/alann/internal/task"
	"github.com/normanking/alann/internal/term"
	"github.com/normanking/alann/internal/truth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type atom string

func (a atom) Name() string { return string(a) }

func judgmentTask(freq, conf float64) *task.Task {
	return task.NewTask(task.Sentence{
		Term:        atom("bird"),
		Punctuation: task.Judgment,
		Truth:       &truth.Value{Frequency: freq, Confidence: conf},
		Stamp:       truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 1}}},
	}, budget.Value{})
}

func TestNewRecord_DerivesBudgetFromBeliefExpectation(t *testing.T) {
	beliefConcept := concept.NewConcept(budget.Value{Priority: 0.8}, atom("bird"))
	belief := judgmentTask(1.0, 0.9)

	r := premise.NewRecord(1, judgmentTask(1, 1), atom("bird"), atom("bird"), beliefConcept, belief, false, 0.6)

	assert.InDelta(t, 0.8*belief.Sentence.Truth.Expectation(), r.Budget().Priority, 1e-9)
	assert.InDelta(t, 0.6, r.Budget().Durability, 1e-9)
	assert.Equal(t, 0.0, r.Budget().Quality)
}

func TestNewRecord_VirtualPremiseUsesHalfExpectation(t *testing.T) {
	beliefConcept := concept.NewConcept(budget.Value{Priority: 0.8}, atom("bird"))

	r := premise.NewRecord(1, judgmentTask(1, 1), atom("bird"), atom("bird"), beliefConcept, nil, false, 0.6)

	assert.InDelta(t, 0.4, r.Budget().Priority, 1e-9)
}

func TestRecord_ImplementsBudgetItem(t *testing.T) {
	beliefConcept := concept.NewConcept(budget.Value{Priority: 0.5}, atom("bird"))
	r := premise.NewRecord(premise.Key(7), judgmentTask(1, 1), atom("bird"), atom("bird"), beliefConcept, nil, false, 0.5)
	assert.Equal(t, premise.Key(7), r.Name())
}

type fakeReasoner struct {
	added []*task.Task
}

func (f *fakeReasoner) AddTask(t *task.Task, derived bool) { f.added = append(f.added, t) }

type fakeRuleTable struct {
	invoked  bool
	lastDC   *rules.DerivationContext
	failWith any
}

func (f *fakeRuleTable) Reason(ctx context.Context, t *task.Task, belief *task.Task, subterm term.Term, dc *rules.DerivationContext) error {
	f.invoked = true
	f.lastDC = dc
	if f.failWith != nil {
		panic(f.failWith)
	}
	return nil
}

func TestExecute_MergesStampWhenBeliefPresent(t *testing.T) {
	beliefConcept := concept.NewConcept(budget.Value{Priority: 0.5}, atom("bird"))
	belief := judgmentTask(1, 0.9)
	belief.Sentence.Stamp = truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 2, Serial: 9}}}

	taskT := judgmentTask(1, 1)
	taskT.Sentence.Stamp = truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 1}}}

	r := premise.NewRecord(1, taskT, atom("bird"), atom("bird"), beliefConcept, belief, false, 0.5)
	ruleTable := &fakeRuleTable{}
	reasoner := &fakeReasoner{}

	err := r.Execute(context.Background(), 100, rules.Collaborators{RuleTable: ruleTable}, reasoner, 0)
	require.NoError(t, err)
	assert.True(t, ruleTable.invoked)
	require.NotNil(t, ruleTable.lastDC)
	assert.Len(t, ruleTable.lastDC.Stamp.Base, 2)
	assert.Equal(t, int64(100), ruleTable.lastDC.Stamp.OccurrenceTime)

	// The task's own stamp is shared across every premise fired for it
	// this cycle (and stored as a belief in other concepts); Execute must
	// never mutate it in place.
	assert.Len(t, taskT.Sentence.Stamp.Base, 1)
	assert.Equal(t, int64(0), taskT.Sentence.Stamp.OccurrenceTime)
}

func TestExecute_RetimesStampWhenNoBelief(t *testing.T) {
	beliefConcept := concept.NewConcept(budget.Value{Priority: 0.5}, atom("bird"))
	taskT := judgmentTask(1, 1)

	r := premise.NewRecord(1, taskT, atom("bird"), atom("bird"), beliefConcept, nil, false, 0.5)
	ruleTable := &fakeRuleTable{}

	err := r.Execute(context.Background(), 55, rules.Collaborators{RuleTable: ruleTable}, &fakeReasoner{}, 0)
	require.NoError(t, err)
	require.NotNil(t, ruleTable.lastDC)
	assert.Equal(t, int64(55), ruleTable.lastDC.Stamp.OccurrenceTime)
	assert.Equal(t, int64(0), taskT.Sentence.Stamp.OccurrenceTime)
}

func TestExecute_RecoversPanicFromRuleTable(t *testing.T) {
	beliefConcept := concept.NewConcept(budget.Value{Priority: 0.5}, atom("bird"))
	taskT := judgmentTask(1, 1)

	r := premise.NewRecord(1, taskT, atom("bird"), atom("bird"), beliefConcept, nil, false, 0.5)
	ruleTable := &fakeRuleTable{failWith: "boom"}

	err := r.Execute(context.Background(), 1, rules.Collaborators{RuleTable: ruleTable}, &fakeReasoner{}, 0)
	require.Error(t, err)
}

type fakeVariables struct{ unifies bool }

func (f fakeVariables) Unify(varKind byte, t1, t2 term.Term) bool { return f.unifies }

type fakeLocalRules struct{ invoked bool }

func (f *fakeLocalRules) TrySolution(belief *task.Task, t *task.Task, dc *rules.DerivationContext, isInput bool) bool {
	f.invoked = true
	return true
}

func TestExecute_AttemptsQuestionMatchingForNonJudgment(t *testing.T) {
	beliefConcept := concept.NewConcept(budget.Value{Priority: 0.5}, atom("bird"))
	belief := judgmentTask(1, 0.9)
	question := task.NewTask(task.Sentence{
		Term:        atom("bird"),
		Punctuation: task.Question,
		Stamp:       truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 1}}},
	}, budget.Value{})

	r := premise.NewRecord(1, question, atom("bird"), atom("bird"), beliefConcept, belief, false, 0.5)
	local := &fakeLocalRules{}

	err := r.Execute(context.Background(), 1, rules.Collaborators{
		Variables: fakeVariables{unifies: true},
		Local:     local,
	}, &fakeReasoner{}, 0)
	require.NoError(t, err)
	assert.True(t, local.invoked)
}

func TestExecute_NilRuleTableIsNoOp(t *testing.T) {
	beliefConcept := concept.NewConcept(budget.Value{Priority: 0.5}, atom("bird"))
	taskT := judgmentTask(1, 1)

	r := premise.NewRecord(1, taskT, atom("bird"), atom("bird"), beliefConcept, nil, false, 0.5)
	err := r.Execute(context.Background(), 1, rules.Collaborators{}, &fakeReasoner{}, 0)
	require.NoError(t, err)
}
