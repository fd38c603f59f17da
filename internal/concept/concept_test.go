package concept_test

import (
	"math"
	"testing"

	"github.com/normanking/alann/internal/budget"
	"github.com/normanking/alann/internal/concept"
	"github.com/normanking/alann/internal/priority"
	"github.com/normanking/alann/internal/task"
	"github.com/normanking/alann/internal/term"
	"github.com/normanking/alann/internal/truth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type atom string

func (a atom) Name() string { return string(a) }

func judgment(freq, conf float64, serial uint64) *task.Task {
	return task.NewTask(task.Sentence{
		Term:        atom("bird"),
		Punctuation: task.Judgment,
		Truth:       &truth.Value{Frequency: freq, Confidence: conf},
		Stamp:       truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: serial}}},
	}, budget.Value{})
}

func TestNewConcept_InitialLastFireTimeIsMinInt64(t *testing.T) {
	c := concept.NewConcept(budget.Value{Priority: 0.5}, atom("bird"))
	assert.Equal(t, int64(math.MinInt64), c.LastFireTime)
	assert.Equal(t, atom("bird"), c.Name())
}

func TestAddBelief_InsertsInDescendingRankOrder(t *testing.T) {
	c := concept.NewConcept(budget.Value{}, atom("bird"))

	low := judgment(0.5, 0.2, 1)
	high := judgment(0.9, 0.9, 2)

	_, added1 := c.AddBelief(low, 10)
	_, added2 := c.AddBelief(high, 10)
	require.True(t, added1)
	require.True(t, added2)

	require.Equal(t, 2, c.BeliefCount())
	assert.Same(t, high, c.Beliefs[0])
	assert.Same(t, low, c.Beliefs[1])
}

func TestAddBelief_RejectsExactDuplicate(t *testing.T) {
	c := concept.NewConcept(budget.Value{}, atom("bird"))
	original := judgment(0.8, 0.8, 1)
	duplicate := judgment(0.8, 0.8, 1)

	_, added1 := c.AddBelief(original, 10)
	_, added2 := c.AddBelief(duplicate, 10)

	require.True(t, added1)
	assert.False(t, added2)
	assert.Equal(t, 1, c.BeliefCount())
}

func TestAddBelief_EvictsLowestRankOnOverflow(t *testing.T) {
	c := concept.NewConcept(budget.Value{}, atom("bird"))
	c.AddBelief(judgment(0.5, 0.5, 1), 2)
	c.AddBelief(judgment(0.6, 0.6, 2), 2)

	evicted, added := c.AddBelief(judgment(0.9, 0.9, 3), 2)
	require.True(t, added)
	require.NotNil(t, evicted)
	assert.Equal(t, 2, c.BeliefCount())
}

func TestAddBelief_DropsLowestRankWhenTableFullAndNewIsLowest(t *testing.T) {
	c := concept.NewConcept(budget.Value{}, atom("bird"))
	c.AddBelief(judgment(0.5, 0.9, 1), 1)

	evicted, added := c.AddBelief(judgment(0.1, 0.1, 2), 1)
	assert.Nil(t, evicted)
	assert.False(t, added)
	assert.Equal(t, 1, c.BeliefCount())
}

type recordingRemover struct {
	remembered []*concept.Concept
}

func (r *recordingRemover) Remember(c *concept.Concept) {
	r.remembered = append(r.remembered, c)
}

func TestConceptualize_CreatesNewConcept(t *testing.T) {
	store := concept.NewStore(priority.NewMap[term.Term, *concept.Concept](10))
	remover := &recordingRemover{}

	c, err := concept.Conceptualize(store, concept.DefaultBuilder{}, remover, budget.Value{Priority: 0.5}, atom("bird"), true, 100, 0, 0.3)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, atom("bird"), c.Name())
	assert.Empty(t, remover.remembered)
	assert.Equal(t, 1, store.Size())
}

func TestConceptualize_ReturnsNilWhenMissingAndNotCreateIfMissing(t *testing.T) {
	store := concept.NewStore(priority.NewMap[term.Term, *concept.Concept](10))
	remover := &recordingRemover{}

	c, err := concept.Conceptualize(store, concept.DefaultBuilder{}, remover, budget.Value{}, atom("bird"), false, 100, 0, 0.3)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Equal(t, 0, store.Size())
}

func TestConceptualize_ActivatesExistingConcept(t *testing.T) {
	store := concept.NewStore(priority.NewMap[term.Term, *concept.Concept](10))
	remover := &recordingRemover{}

	first, err := concept.Conceptualize(store, concept.DefaultBuilder{}, remover, budget.Value{Priority: 0.2}, atom("bird"), true, 100, 0, 0.3)
	require.NoError(t, err)

	second, err := concept.Conceptualize(store, concept.DefaultBuilder{}, remover, budget.Value{Priority: 0.9}, atom("bird"), true, 100, 0, 0.3)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.GreaterOrEqual(t, second.Budget().Priority, 0.9)
	assert.Equal(t, 1, store.Size())
}

func TestConceptualize_CapacityZeroAlwaysFailsAndRemembers(t *testing.T) {
	store := concept.NewStore(priority.NewMap[term.Term, *concept.Concept](0))
	remover := &recordingRemover{}

	c, err := concept.Conceptualize(store, concept.DefaultBuilder{}, remover, budget.Value{Priority: 0.5}, atom("bird"), true, 100, 0, 0.3)
	require.NoError(t, err)
	assert.Nil(t, c)
	require.Len(t, remover.remembered, 1)
	assert.Equal(t, atom("bird"), remover.remembered[0].Name())
}

func TestConceptualize_DisplacesLowerPriorityConcept(t *testing.T) {
	store := concept.NewStore(priority.NewMap[term.Term, *concept.Concept](1))
	remover := &recordingRemover{}

	_, err := concept.Conceptualize(store, concept.DefaultBuilder{}, remover, budget.Value{Priority: 0.1}, atom("low"), true, 100, 0, 0.3)
	require.NoError(t, err)

	c, err := concept.Conceptualize(store, concept.DefaultBuilder{}, remover, budget.Value{Priority: 0.9}, atom("high"), true, 100, 0, 0.3)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, atom("high"), c.Name())
	require.Len(t, remover.remembered, 1)
	assert.Equal(t, atom("low"), remover.remembered[0].Name())
}
