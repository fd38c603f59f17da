package overflow_test

import (
	"testing"

	"github.com/normanking/alann/internal/overflow"
	"github.com/normanking/alann/internal/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type atom string

func (a atom) Name() string { return string(a) }

type fakeConcept struct {
	term atom
}

func (f fakeConcept) Term() term.Term { return f.term }

func newCache(t *testing.T, capacity int) *overflow.Cache[fakeConcept] {
	t.Helper()
	c, err := overflow.NewCache[fakeConcept](capacity)
	require.NoError(t, err)
	return c
}

func TestRemember_Recall_RoundTrip(t *testing.T) {
	c := newCache(t, 2)
	c.Remember(fakeConcept{term: "bird"})

	got, ok := c.Recall(atom("bird"))
	require.True(t, ok)
	assert.Equal(t, atom("bird"), got.Term())
	assert.False(t, c.Contains(atom("bird")))
}

func TestRecall_RemovesEntry(t *testing.T) {
	c := newCache(t, 2)
	c.Remember(fakeConcept{term: "bird"})
	c.Recall(atom("bird"))

	_, ok := c.Recall(atom("bird"))
	assert.False(t, ok)
}

func TestRemember_EvictsLeastRecentlyUsedOnOverflow(t *testing.T) {
	c := newCache(t, 2)
	c.Remember(fakeConcept{term: "a"})
	c.Remember(fakeConcept{term: "b"})
	c.Remember(fakeConcept{term: "c"})

	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Contains(atom("a")))
	assert.True(t, c.Contains(atom("c")))
}

func TestPurge_EmptiesCache(t *testing.T) {
	c := newCache(t, 2)
	c.Remember(fakeConcept{term: "a"})
	c.Purge()
	assert.Equal(t, 0, c.Len())
}
