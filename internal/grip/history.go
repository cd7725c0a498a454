package grip

import "github.com/go-gl/mathgl/mgl64"

// DefaultHistoryCapacity is the default number of pose samples kept per hand.
const DefaultHistoryCapacity = 20

// Sample is one recorded grip pose. Samples are values and are never
// modified after being pushed.
type Sample struct {
	Position    mgl64.Vec3 `json:"position"`
	Orientation mgl64.Quat `json:"orientation"`
	Timestamp   float64    `json:"timestamp"`
}

// History is a fixed-capacity ring of samples in chronological order. When
// full, pushing evicts the oldest sample. Timestamps are strictly increasing.
type History struct {
	data []Sample
	pos  int
	size int
}

// NewHistory creates an empty History. A non-positive capacity falls back
// to DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{data: make([]Sample, capacity)}
}

// Push appends s, evicting the oldest sample when full. A sample whose
// timestamp is not after the newest sample is dropped and Push returns false.
func (h *History) Push(s Sample) bool {
	if h.size > 0 && s.Timestamp <= h.Newest().Timestamp {
		return false
	}

	h.data[h.pos] = s
	h.pos = (h.pos + 1) % len(h.data)
	if h.size < len(h.data) {
		h.size++
	}
	return true
}

// Len returns the number of samples held.
func (h *History) Len() int {
	return h.size
}

// Cap returns the fixed capacity.
func (h *History) Cap() int {
	return len(h.data)
}

// At returns the i-th sample in chronological order (0 is the oldest).
// It panics if i is out of range.
func (h *History) At(i int) Sample {
	if i < 0 || i >= h.size {
		panic("grip: history index out of range")
	}
	start := (h.pos - h.size + len(h.data)) % len(h.data)
	return h.data[(start+i)%len(h.data)]
}

// Newest returns the most recent sample. It panics on an empty history.
func (h *History) Newest() Sample {
	return h.At(h.size - 1)
}

// Samples returns a copy of the held samples in chronological order.
func (h *History) Samples() []Sample {
	out := make([]Sample, h.size)
	for i := range out {
		out[i] = h.At(i)
	}
	return out
}

// Reset empties the history, keeping its storage for the next grip.
func (h *History) Reset() {
	clear(h.data)
	h.pos = 0
	h.size = 0
}
