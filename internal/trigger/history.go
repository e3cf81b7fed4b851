package trigger

import "time"

// DefaultHistoryCapacity is the number of transitions kept when none is configured.
const DefaultHistoryCapacity = 100

// Transition is an immutable record of one accepted event.
type Transition struct {
	Seq   uint64    `json:"seq"`
	From  State     `json:"from"`
	Event Event     `json:"event"`
	To    State     `json:"to"`
	At    time.Time `json:"at"`
}

// History is a fixed-capacity FIFO of transitions. The oldest entry is evicted
// when a new one arrives at capacity. It is not safe for concurrent use; the
// machine guards it with its own lock.
type History struct {
	buf   []Transition
	start int
	n     int
}

// NewHistory creates a History holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]Transition, capacity)}
}

// Append adds t, evicting the oldest entry when full.
func (h *History) Append(t Transition) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = t
		h.n++
		return
	}
	h.buf[h.start] = t
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of stored entries.
func (h *History) Len() int { return h.n }

// Cap returns the capacity.
func (h *History) Cap() int { return len(h.buf) }

// Recent returns up to limit entries, most recent first. A limit of zero or
// less returns everything.
func (h *History) Recent(limit int) []Transition {
	if limit <= 0 || limit > h.n {
		limit = h.n
	}
	out := make([]Transition, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.start + h.n - 1 - i) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out
}
