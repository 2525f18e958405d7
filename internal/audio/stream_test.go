package audio

import (
	"errors"
	"testing"
)

func TestStreamAssignsSequentialNumbers(t *testing.T) {
	s := NewStream("resp-1", 16000)

	for i := 0; i < 3; i++ {
		chunk, err := s.Next([]byte{byte(i)})
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if chunk.Seq != i {
			t.Errorf("Expected seq %d, got %d", i, chunk.Seq)
		}
		if chunk.ResponseID != "resp-1" {
			t.Errorf("Expected response id resp-1, got %s", chunk.ResponseID)
		}
		if chunk.SampleRate != 16000 {
			t.Errorf("Expected sample rate 16000, got %d", chunk.SampleRate)
		}
		if chunk.IsFinal {
			t.Error("Data chunk must not be final")
		}
	}

	final, err := s.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if final.Seq != 3 {
		t.Errorf("Expected final seq 3, got %d", final.Seq)
	}
	if !final.IsFinal {
		t.Error("Expected terminating chunk to be final")
	}
	if len(final.Samples) != 0 {
		t.Error("Expected terminating chunk to carry no samples")
	}
}

func TestStreamRejectsUseAfterFinish(t *testing.T) {
	s := NewStream("resp-1", 16000)
	if _, err := s.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	if _, err := s.Next([]byte{1}); !errors.Is(err, ErrStreamFinished) {
		t.Errorf("Expected ErrStreamFinished from Next, got %v", err)
	}
	if _, err := s.Finish(); !errors.Is(err, ErrStreamFinished) {
		t.Errorf("Expected ErrStreamFinished from second Finish, got %v", err)
	}
}
