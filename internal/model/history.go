package model

import "time"

// HistoryPoint is one retained value for a graphed field.
type HistoryPoint struct {
	Value float64
	At    time.Time
}

// History is a fixed-capacity ring of the most recent values of one field.
// Pushing beyond capacity evicts the oldest point.
type History struct {
	points []HistoryPoint
	head   int
	size   int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{points: make([]HistoryPoint, capacity)}
}

func (h *History) Cap() int { return len(h.points) }

func (h *History) Len() int { return h.size }

func (h *History) Push(v float64, at time.Time) {
	h.points[h.head] = HistoryPoint{Value: v, At: at}
	h.head = (h.head + 1) % len(h.points)
	if h.size < len(h.points) {
		h.size++
	}
}

// Values returns the retained points oldest first. The returned slice is a
// copy; the ring is never exposed.
func (h *History) Values() []HistoryPoint {
	out := make([]HistoryPoint, 0, h.size)
	start := h.head - h.size
	if start < 0 {
		start += len(h.points)
	}
	for i := 0; i < h.size; i++ {
		out = append(out, h.points[(start+i)%len(h.points)])
	}
	return out
}

// Clone returns an independent copy, used when publishing snapshots so the
// collector can keep pushing without racing readers.
func (h *History) Clone() *History {
	c := &History{
		points: make([]HistoryPoint, len(h.points)),
		head:   h.head,
		size:   h.size,
	}
	copy(c.points, h.points)
	return c
}
