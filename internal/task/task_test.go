package task_test

import (
	"testing"

	"github.com/normanking/alann/internal/budget"
	"github.com/normanking/alann/internal/task"
	"github.com/normanking/alann/internal/truth"
	"github.com/stretchr/testify/assert"
)

type atom string

func (a atom) Name() string { return string(a) }

func TestPunctuationPredicates(t *testing.T) {
	s := task.Sentence{Term: atom("bird"), Punctuation: task.Judgment}
	assert.True(t, s.IsJudgment())
	assert.False(t, s.IsQuestion())
	assert.False(t, s.IsGoal())
}

func TestPunctuationString(t *testing.T) {
	assert.Equal(t, ".", task.Judgment.String())
	assert.Equal(t, "?", task.Question.String())
	assert.Equal(t, "!", task.Goal.String())
}

func TestNewTask_ImplementsBudgetItem(t *testing.T) {
	s := task.Sentence{
		Term:        atom("bird"),
		Punctuation: task.Judgment,
		Truth:       &truth.Value{Frequency: 1, Confidence: 0.9},
		Stamp:       truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 1}}},
	}
	tk := task.NewTask(s, budget.Value{Priority: 0.5})

	assert.NotEmpty(t, tk.Name())
	assert.InDelta(t, 0.5, tk.Budget().Priority, 1e-9)
}

func TestNewTask_KeyDistinguishesSamePunctuationDifferentStamp(t *testing.T) {
	base := task.Sentence{Term: atom("bird"), Punctuation: task.Judgment}

	s1 := base
	s1.Stamp = truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 1}}}
	s2 := base
	s2.Stamp = truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 2}}}

	t1 := task.NewTask(s1, budget.Value{})
	t2 := task.NewTask(s2, budget.Value{})

	assert.NotEqual(t, t1.Name(), t2.Name())
}

func TestNewTask_KeyDistinguishesPunctuation(t *testing.T) {
	stamp := truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 1}}}
	judgment := task.NewTask(task.Sentence{Term: atom("bird"), Punctuation: task.Judgment, Stamp: stamp}, budget.Value{})
	question := task.NewTask(task.Sentence{Term: atom("bird"), Punctuation: task.Question, Stamp: stamp}, budget.Value{})

	assert.NotEqual(t, judgment.Name(), question.Name())
}

func TestNewTask_KeyStableAcrossCalls(t *testing.T) {
	tk := task.NewTask(task.Sentence{Term: atom("bird"), Punctuation: task.Judgment}, budget.Value{})
	assert.Equal(t, tk.Name(), tk.Name())
}
