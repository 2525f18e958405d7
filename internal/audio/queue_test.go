package audio

import (
	"errors"
	"testing"
)

func chunkFor(responseID string, seq int, final bool) Chunk {
	return Chunk{
		ResponseID: responseID,
		Seq:        seq,
		Samples:    []byte{byte(seq)},
		SampleRate: 16000,
		IsFinal:    final,
	}
}

func TestQueuePlaysOneChunkAtATime(t *testing.T) {
	q := NewQueue()
	q.Reset("resp-1")

	for seq := 0; seq < 2; seq++ {
		if ok, err := q.Enqueue(chunkFor("resp-1", seq, false)); !ok || err != nil {
			t.Fatalf("Enqueue seq %d: ok=%v err=%v", seq, ok, err)
		}
	}

	first, ok := q.StartNext()
	if !ok || first.Seq != 0 {
		t.Fatalf("Expected to start chunk 0, got ok=%v seq=%d", ok, first.Seq)
	}

	// Chunk 1 must not start until chunk 0 finishes.
	if _, ok := q.StartNext(); ok {
		t.Error("Expected StartNext to refuse while a chunk is playing")
	}

	q.FinishCurrent()
	second, ok := q.StartNext()
	if !ok || second.Seq != 1 {
		t.Fatalf("Expected to start chunk 1, got ok=%v seq=%d", ok, second.Seq)
	}
}

func TestQueueFinishedOnlyAfterFinalChunkPlays(t *testing.T) {
	q := NewQueue()
	q.Reset("resp-1")

	q.Enqueue(chunkFor("resp-1", 0, false))
	q.Enqueue(chunkFor("resp-1", 1, true))

	if q.Finished() {
		t.Error("Queue must not report finished before playback")
	}

	q.StartNext()
	q.FinishCurrent()
	if q.Finished() {
		t.Error("Queue must not report finished before the final chunk plays")
	}

	q.StartNext()
	if q.Finished() {
		t.Error("Queue must not report finished while the final chunk is playing")
	}
	q.FinishCurrent()

	if !q.Finished() {
		t.Error("Expected finished after the final chunk fully played")
	}
}

func TestQueueDropsSupersededResponses(t *testing.T) {
	q := NewQueue()
	q.Reset("resp-1")
	q.Enqueue(chunkFor("resp-1", 0, false))

	q.Reset("resp-2")

	// Straggling chunk from the old response: dropped silently.
	ok, err := q.Enqueue(chunkFor("resp-1", 1, false))
	if ok || err != nil {
		t.Errorf("Expected silent drop for superseded response, got ok=%v err=%v", ok, err)
	}

	// The new response starts clean at seq 0.
	if ok, err := q.Enqueue(chunkFor("resp-2", 0, true)); !ok || err != nil {
		t.Errorf("Expected new response accepted, got ok=%v err=%v", ok, err)
	}
}

func TestQueueReportsSequenceGaps(t *testing.T) {
	q := NewQueue()
	q.Reset("resp-1")
	q.Enqueue(chunkFor("resp-1", 0, false))

	_, err := q.Enqueue(chunkFor("resp-1", 2, false))
	var outOfOrder *OutOfOrderError
	if !errors.As(err, &outOfOrder) {
		t.Fatalf("Expected OutOfOrderError, got %v", err)
	}
	if outOfOrder.Want != 1 || outOfOrder.Got != 2 {
		t.Errorf("Expected want=1 got=2, have want=%d got=%d", outOfOrder.Want, outOfOrder.Got)
	}
}
