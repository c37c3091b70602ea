package rangestore

import (
	"testing"

	"barcache/internal/cacheerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetRangeGet(t *testing.T) {
	s := New[int64, int64, int](Identity[int64])
	require.NoError(t, s.SetRange(1, 3, 3))

	v, ok := s.Value(1)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	v, ok = s.Value(3)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	_, ok = s.Value(4)
	assert.False(t, ok)
}

func TestSetRangeRejectsInverted(t *testing.T) {
	s := NewOrdered[int]()
	err := s.SetRange(5, 1, 0)
	assert.ErrorIs(t, err, cacheerr.ErrRange)
	assert.Zero(t, s.IntervalLen())
}

func TestSetRangeLastWriteWins(t *testing.T) {
	s := NewOrdered[int]()
	require.NoError(t, s.SetRange(1, 10, 1))
	require.NoError(t, s.SetRange(4, 6, 2))

	ivs := s.Intervals()
	require.Len(t, ivs, 3)
	assert.Equal(t, Bound[int]{Start: 1, End: 4, EndOpen: true}, ivs[0].Range)
	assert.Equal(t, Bound[int]{Start: 4, End: 6}, ivs[1].Range)
	assert.Equal(t, Bound[int]{Start: 6, End: 10, StartOpen: true}, ivs[2].Range)

	for key, want := range map[int]int{1: 1, 3: 1, 4: 2, 6: 2, 7: 1, 10: 1} {
		v, ok := s.Value(key)
		assert.True(t, ok, "key %d", key)
		assert.Equal(t, want, v, "key %d", key)
	}
}

func TestSetRangeReplacesCoveredIntervals(t *testing.T) {
	s := NewOrdered[int]()
	require.NoError(t, s.SetRange(2, 3, 1))
	require.NoError(t, s.SetRange(5, 6, 1))
	require.NoError(t, s.SetRange(1, 8, 9))
	ivs := s.Intervals()
	require.Len(t, ivs, 1)
	assert.Equal(t, 9, ivs[0].Value)
}

func TestSetRangeTouchingBoundaryIsOverwritten(t *testing.T) {
	s := NewOrdered[int]()
	require.NoError(t, s.SetRange(1, 5, 1))
	require.NoError(t, s.SetRange(5, 9, 2))

	v, _ := s.Value(5)
	assert.Equal(t, 2, v)
	v, _ = s.Value(4)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, s.IntervalLen())
}

func TestCovered(t *testing.T) {
	s := NewOrdered[int]()
	assert.False(t, s.Covered(1, 1))

	require.NoError(t, s.SetRange(1, 5, 0))
	require.NoError(t, s.SetRange(5, 9, 0))
	require.NoError(t, s.SetRange(20, 30, 0))

	assert.True(t, s.Covered(1, 9))
	assert.True(t, s.Covered(2, 3))
	assert.True(t, s.Covered(9, 9))
	assert.True(t, s.Covered(25, 21))
	assert.False(t, s.Covered(0, 3))
	assert.False(t, s.Covered(8, 21))
	assert.False(t, s.Covered(25, 31))
}

func TestCoveredHalfOpenSeam(t *testing.T) {
	s := NewOrdered[int]()
	s.intervals = []Interval[int, int]{
		{Range: Bound[int]{Start: 1, End: 3, EndOpen: true}},
		{Range: Bound[int]{Start: 3, End: 5, StartOpen: true}},
	}
	assert.False(t, s.Covered(1, 5))
	assert.True(t, s.Covered(1, 2))
	assert.True(t, s.Covered(4, 5))

	s.intervals = []Interval[int, int]{
		{Range: Bound[int]{Start: 1, End: 3, EndOpen: true}},
		{Range: Bound[int]{Start: 3, End: 5}},
	}
	assert.True(t, s.Covered(1, 5))
}

func TestUncovered(t *testing.T) {
	s := NewOrdered[int]()
	assert.Equal(t, []Window[int]{{Start: 1, End: 4}}, s.Uncovered(4, 1))

	require.NoError(t, s.SetRange(1, 5, 0))
	require.NoError(t, s.SetRange(5, 9, 0))
	require.NoError(t, s.SetRange(20, 30, 0))

	assert.Empty(t, s.Uncovered(1, 9))
	assert.Empty(t, s.Uncovered(25, 21))
	assert.Equal(t, []Window[int]{{Start: 0, End: 1}}, s.Uncovered(0, 3))
	assert.Equal(t, []Window[int]{{Start: 9, End: 20}}, s.Uncovered(8, 21))
	assert.Equal(t, []Window[int]{{Start: 30, End: 31}}, s.Uncovered(25, 31))
	assert.Equal(t, []Window[int]{{Start: 0, End: 1}, {Start: 9, End: 20}, {Start: 30, End: 40}}, s.Uncovered(0, 40))

	s.intervals = []Interval[int, int]{
		{Range: Bound[int]{Start: 1, End: 3, EndOpen: true}},
		{Range: Bound[int]{Start: 3, End: 5, StartOpen: true}},
	}
	assert.Equal(t, []Window[int]{{Start: 3, End: 3}}, s.Uncovered(1, 5))
}
