package audio

import "sync"

// Queue models gapless playback on the receiving side of the stream. Chunks
// are enqueued as they arrive and played strictly one at a time; playback of
// chunk k+1 starts only after chunk k has finished. Chunks belonging to a
// response other than the current one are dropped.
type Queue struct {
	mu         sync.Mutex
	responseID string
	nextSeq    int
	pending    []Chunk
	playing    bool
	finalSeen  bool
	finalDone  bool
}

// NewQueue creates an empty playback queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Reset prepares the queue for a new response, discarding anything queued
// for the previous one.
func (q *Queue) Reset(responseID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.responseID = responseID
	q.nextSeq = 0
	q.pending = nil
	q.playing = false
	q.finalSeen = false
	q.finalDone = false
}

// Enqueue accepts an arriving chunk. Chunks for a superseded response are
// dropped silently (ok=false). A sequence gap on the order-preserving
// transport returns an OutOfOrderError.
func (q *Queue) Enqueue(chunk Chunk) (ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if chunk.ResponseID != q.responseID {
		return false, nil
	}
	if chunk.Seq != q.nextSeq {
		return false, &OutOfOrderError{ResponseID: q.responseID, Want: q.nextSeq, Got: chunk.Seq}
	}
	q.nextSeq++
	if chunk.IsFinal {
		q.finalSeen = true
	}
	q.pending = append(q.pending, chunk)
	return true, nil
}

// StartNext returns the next chunk to play. It returns ok=false while a
// chunk is still playing or when nothing is queued.
func (q *Queue) StartNext() (Chunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.playing || len(q.pending) == 0 {
		return Chunk{}, false
	}
	chunk := q.pending[0]
	q.pending = q.pending[1:]
	q.playing = true
	if chunk.IsFinal {
		q.finalDone = true
	}
	return chunk, true
}

// FinishCurrent marks the chunk returned by StartNext as fully played.
func (q *Queue) FinishCurrent() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.playing = false
}

// Finished reports whether the terminating chunk has been played and the
// queue has drained. This is the "speaking finished" signal.
func (q *Queue) Finished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finalSeen && q.finalDone && !q.playing && len(q.pending) == 0
}
