package priority_test

import (
	"testing"

	"github.com/normanking/alann/internal/budget"
	"github.com/normanking/alann/internal/priority"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	key string
	b   budget.Value
}

func (i *item) Name() string         { return i.key }
func (i *item) Budget() *budget.Value { return &i.b }

func newItem(key string, p float64) *item {
	return &item{key: key, b: budget.Value{Priority: p}}
}

func TestPutIn_InsertsWithinCapacity(t *testing.T) {
	m := priority.NewMap[string, *item](3)
	outcome := m.PutIn(newItem("a", 0.5))
	assert.True(t, outcome.Inserted())
	assert.Equal(t, 1, m.Size())
}

func TestPutIn_EvictsLowestOnOverflow(t *testing.T) {
	m := priority.NewMap[string, *item](2)
	m.PutIn(newItem("a", 0.9))
	m.PutIn(newItem("b", 0.5))

	outcome := m.PutIn(newItem("c", 0.7))
	require.True(t, outcome.Displaced())
	assert.Equal(t, "b", outcome.Other().Name())
	assert.Equal(t, 2, m.Size())

	_, ok := m.Get("b")
	assert.False(t, ok)
}

func TestPutIn_SameKeyReplacesThatEntrySpecifically(t *testing.T) {
	m := priority.NewMap[string, *item](3)
	m.PutIn(newItem("a", 0.9))
	m.PutIn(newItem("b", 0.1))

	outcome := m.PutIn(newItem("a", 0.95))
	require.True(t, outcome.Displaced())
	assert.Equal(t, "a", outcome.Other().Name())
	assert.InDelta(t, 0.9, outcome.Other().Budget().Priority, 1e-9)

	_, stillThereB := m.Get("b")
	assert.True(t, stillThereB)
	assert.Equal(t, 2, m.Size())
}

func TestPutIn_CapacityZeroRejectsEverything(t *testing.T) {
	m := priority.NewMap[string, *item](0)
	outcome := m.PutIn(newItem("a", 0.5))
	require.True(t, outcome.Rejected())
	assert.Equal(t, "a", outcome.Item().Name())
	assert.Equal(t, 0, m.Size())
}

func TestPutIn_RejectsSelfWhenLowestInFullContainer(t *testing.T) {
	m := priority.NewMap[string, *item](2)
	m.PutIn(newItem("a", 0.9))
	m.PutIn(newItem("b", 0.5))

	outcome := m.PutIn(newItem("c", 0.1))
	require.True(t, outcome.Rejected())
	assert.Equal(t, "c", outcome.Item().Name())
	assert.Equal(t, 2, m.Size())

	_, ok := m.Get("c")
	assert.False(t, ok)
}

func TestTake_RemovesFromBothStructures(t *testing.T) {
	m := priority.NewMap[string, *item](3)
	m.PutIn(newItem("a", 0.5))

	taken, ok := m.Take("a")
	require.True(t, ok)
	assert.Equal(t, "a", taken.Name())
	assert.True(t, m.IsEmpty())

	_, ok = m.Get("a")
	assert.False(t, ok)
}

func TestTakeHighestPriorityItem(t *testing.T) {
	m := priority.NewMap[string, *item](3)
	m.PutIn(newItem("low", 0.1))
	m.PutIn(newItem("high", 0.9))
	m.PutIn(newItem("mid", 0.5))

	top, ok := m.TakeHighestPriorityItem()
	require.True(t, ok)
	assert.Equal(t, "high", top.Name())
	assert.Equal(t, 2, m.Size())
}

func TestTakeHighestPriorityItem_EmptyReturnsFalse(t *testing.T) {
	m := priority.NewMap[string, *item](3)
	_, ok := m.TakeHighestPriorityItem()
	assert.False(t, ok)
}

func TestPutBack_AppliesForgettingBeforeReinsert(t *testing.T) {
	m := priority.NewMap[string, *item](3)
	it := newItem("a", 0.8)
	it.b.Quality = 0.1

	outcome := m.PutBack(it, 5, 10, 0.3)
	assert.True(t, outcome.Inserted())
	assert.Less(t, it.Budget().Priority, 0.8)
	assert.Equal(t, int64(10), it.Budget().LastForgetTime)
}

func TestPriorityQueueOverflow_KeepsHighestFour(t *testing.T) {
	m := priority.NewMap[string, *item](4)
	priorities := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	for i, p := range priorities {
		m.PutIn(newItem(string(rune('a'+i)), p))
	}

	assert.Equal(t, 4, m.Size())
	remaining := map[float64]bool{}
	for _, v := range m.Values() {
		remaining[v.Budget().Priority] = true
	}
	for _, p := range []float64{0.3, 0.4, 0.5, 0.6} {
		assert.True(t, remaining[p], "expected priority %v to remain", p)
	}
	for _, p := range []float64{0.1, 0.2} {
		assert.False(t, remaining[p], "expected priority %v to be evicted", p)
	}
}

func TestValues_MatchesSize(t *testing.T) {
	m := priority.NewMap[string, *item](3)
	m.PutIn(newItem("a", 0.1))
	m.PutIn(newItem("b", 0.2))
	assert.Len(t, m.Values(), 2)
}
