package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryEvictsOldestFirst(t *testing.T) {
	h := NewHistory(5)
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		h.Push(float64(10*(i+1)), base.Add(time.Duration(i)*time.Second))
	}

	require.Equal(t, 5, h.Len())
	vals := h.Values()
	require.Len(t, vals, 5)
	for i, p := range vals {
		assert.Equal(t, float64(10*(i+2)), p.Value, "index %d", i)
	}
	// Chronological order.
	for i := 1; i < len(vals); i++ {
		assert.True(t, vals[i].At.After(vals[i-1].At))
	}
}

func TestHistoryNeverExceedsCapacity(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 100; i++ {
		h.Push(float64(i), time.Now())
	}
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3, h.Cap())
	vals := h.Values()
	assert.Equal(t, []float64{97, 98, 99}, []float64{vals[0].Value, vals[1].Value, vals[2].Value})
}

func TestHistoryPartiallyFilled(t *testing.T) {
	h := NewHistory(10)
	h.Push(1, time.Now())
	h.Push(2, time.Now())

	vals := h.Values()
	require.Len(t, vals, 2)
	assert.Equal(t, 1.0, vals[0].Value)
	assert.Equal(t, 2.0, vals[1].Value)
}

func TestHistoryMinimumCapacity(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, 1, h.Cap())
	h.Push(1, time.Now())
	h.Push(2, time.Now())
	assert.Equal(t, 2.0, h.Values()[0].Value)
}

func TestHistoryCloneIsIndependent(t *testing.T) {
	h := NewHistory(3)
	h.Push(1, time.Now())
	c := h.Clone()
	h.Push(2, time.Now())

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, h.Len())
}
