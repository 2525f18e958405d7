package session

import (
	"sync"

	"github.com/veloute/server/domain/entities"
)

// History is the append-only turn log of one session. Appends happen from
// the single in-flight pipeline goroutine, but Clear can race with a
// straggling callback, so access is guarded.
type History struct {
	mu    sync.Mutex
	turns []entities.Turn
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append records a turn. Turns are never edited afterwards.
func (h *History) Append(turn entities.Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
}

// Snapshot returns an ordered copy. Readers of the snapshot never observe
// later mutation.
func (h *History) Snapshot() []entities.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]entities.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Clear wipes the log. The machine only permits this while idle.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

// Len returns the number of recorded turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
