package truth_test

import (
	"testing"

	"github.com/normanking/alann/internal/truth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectation(t *testing.T) {
	v := truth.Value{Frequency: 1.0, Confidence: 0.9}
	assert.InDelta(t, 0.95, v.Expectation(), 1e-9)
}

func TestExpectation_LowConfidenceApproachesHalf(t *testing.T) {
	v := truth.Value{Frequency: 1.0, Confidence: 0.0}
	assert.InDelta(t, 0.5, v.Expectation(), 1e-9)
}

func TestEqual(t *testing.T) {
	a := truth.Value{Frequency: 1.0, Confidence: 0.9}
	b := truth.Value{Frequency: 1.0, Confidence: 0.9}
	c := truth.Value{Frequency: 0.5, Confidence: 0.9}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestNewStampSerial_Monotonic(t *testing.T) {
	var counter uint64
	first := truth.NewStampSerial(7, &counter)
	second := truth.NewStampSerial(7, &counter)

	assert.Equal(t, uint64(7), first.ReasonerID)
	assert.Equal(t, uint64(0), first.Serial)
	assert.Equal(t, uint64(1), second.Serial)
}

func TestOverlaps(t *testing.T) {
	shared := truth.BaseEntry{ReasonerID: 1, Serial: 5}
	a := truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 1}, shared}}
	b := truth.Stamp{Base: []truth.BaseEntry{shared, {ReasonerID: 2, Serial: 9}}}
	c := truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 3, Serial: 3}}}

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c))
}

func TestMerge_UnionsAndDedupsBase(t *testing.T) {
	a := truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 1}, {ReasonerID: 1, Serial: 2}}}
	b := truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 2}, {ReasonerID: 2, Serial: 1}}}

	merged := truth.Merge(a, b, 100, 0)
	require.Len(t, merged.Base, 3)
	assert.Equal(t, int64(100), merged.OccurrenceTime)
	assert.Equal(t, int64(100), merged.CreationTime)
}

func TestMerge_TruncatesToMaxBaseLength(t *testing.T) {
	a := truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 1}, {ReasonerID: 1, Serial: 2}}}
	b := truth.Stamp{Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 3}, {ReasonerID: 1, Serial: 4}}}

	merged := truth.Merge(a, b, 100, 2)
	require.Len(t, merged.Base, 2)
	assert.Equal(t, truth.BaseEntry{ReasonerID: 1, Serial: 3}, merged.Base[0])
	assert.Equal(t, truth.BaseEntry{ReasonerID: 1, Serial: 4}, merged.Base[1])
}

func TestEternalize_RetimesOccurrence(t *testing.T) {
	s := truth.Stamp{CreationTime: 1, OccurrenceTime: 1, Base: []truth.BaseEntry{{ReasonerID: 1, Serial: 1}}}
	retimed := s.Eternalize(50)
	assert.Equal(t, int64(50), retimed.OccurrenceTime)
	assert.Equal(t, int64(1), retimed.CreationTime)
	assert.Len(t, retimed.Base, 1)
}
