package term_test

import (
	"testing"

	"github.com/normanking/alann/internal/term"
	"github.com/stretchr/testify/assert"
)

type atom string

func (a atom) Name() string { return string(a) }

type compound struct {
	name       string
	components []term.ComponentLink
	interval   bool
}

func (c compound) Name() string                     { return c.name }
func (c compound) Components() []term.ComponentLink { return c.components }
func (c compound) IsInterval() bool                  { return c.interval }

func TestEqual(t *testing.T) {
	assert.True(t, term.Equal(atom("bird"), atom("bird")))
	assert.False(t, term.Equal(atom("bird"), atom("animal")))
	assert.False(t, term.Equal(nil, atom("bird")))
}

func TestIsInterval_AtomicNeverInterval(t *testing.T) {
	assert.False(t, term.IsInterval(atom("bird")))
}

func TestIsInterval_CompoundDelegates(t *testing.T) {
	c := compound{name: "+1", interval: true}
	assert.True(t, term.IsInterval(c))

	c2 := compound{name: "bird-->animal"}
	assert.False(t, term.IsInterval(c2))
}

func TestCompoundComponents_PreservesOrder(t *testing.T) {
	c := compound{
		name: "bird-->animal",
		components: []term.ComponentLink{
			{Component: atom("bird")},
			{Component: atom("animal")},
		},
	}

	components := c.Components()
	if assert.Len(t, components, 2) {
		assert.Equal(t, "bird", components[0].Component.Name())
		assert.Equal(t, "animal", components[1].Component.Name())
	}
}
