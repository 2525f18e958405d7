package session

import (
	"testing"

	"github.com/veloute/server/domain/entities"
)

func TestHistoryAppendAndSnapshot(t *testing.T) {
	h := NewHistory()

	h.Append(entities.NewTurn(entities.RoleUser, "hello"))
	h.Append(entities.NewTurn(entities.RoleAssistant, "hi there"))

	if h.Len() != 2 {
		t.Fatalf("Expected 2 turns, got %d", h.Len())
	}

	snapshot := h.Snapshot()
	if snapshot[0].Content != "hello" || snapshot[1].Content != "hi there" {
		t.Errorf("Snapshot out of order: %+v", snapshot)
	}

	// Later appends must not leak into an earlier snapshot.
	h.Append(entities.NewTurn(entities.RoleUser, "another"))
	if len(snapshot) != 2 {
		t.Errorf("Expected snapshot to stay at 2 turns, got %d", len(snapshot))
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory()
	h.Append(entities.NewTurn(entities.RoleUser, "hello"))
	h.Clear()

	if h.Len() != 0 {
		t.Errorf("Expected empty history after clear, got %d turns", h.Len())
	}

	// The log is usable again after a wipe.
	h.Append(entities.NewTurn(entities.RoleUser, "fresh start"))
	if h.Len() != 1 {
		t.Errorf("Expected 1 turn after clear and append, got %d", h.Len())
	}
}
