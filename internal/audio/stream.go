package audio

import (
	"errors"
	"fmt"
)

// Chunk is one ordered fragment of a synthesized response. Chunks carry the
// id of the pipeline run that produced them so receivers can discard
// fragments of a superseded response.
type Chunk struct {
	ResponseID string `json:"response_id"`
	Seq        int    `json:"sequence_number"`
	Samples    []byte `json:"samples"`
	SampleRate int    `json:"sample_rate"`
	IsFinal    bool   `json:"is_final"`
}

// ErrStreamFinished is returned when chunks are requested after Finish.
var ErrStreamFinished = errors.New("audio stream already finished")

// Stream assigns sequence numbers to the PCM buffers of a single response.
// Sequence numbers start at zero and increase by one per chunk; Finish emits
// the single terminating chunk.
type Stream struct {
	responseID string
	sampleRate int
	nextSeq    int
	finished   bool
}

// NewStream creates a stream for one synthesized response.
func NewStream(responseID string, sampleRate int) *Stream {
	return &Stream{
		responseID: responseID,
		sampleRate: sampleRate,
	}
}

// Next wraps a PCM buffer in the next ordered chunk.
func (s *Stream) Next(samples []byte) (Chunk, error) {
	if s.finished {
		return Chunk{}, ErrStreamFinished
	}
	chunk := Chunk{
		ResponseID: s.responseID,
		Seq:        s.nextSeq,
		Samples:    samples,
		SampleRate: s.sampleRate,
	}
	s.nextSeq++
	return chunk, nil
}

// Finish emits the terminating chunk. It carries no samples; it only marks
// the end of the response.
func (s *Stream) Finish() (Chunk, error) {
	if s.finished {
		return Chunk{}, ErrStreamFinished
	}
	s.finished = true
	chunk := Chunk{
		ResponseID: s.responseID,
		Seq:        s.nextSeq,
		SampleRate: s.sampleRate,
		IsFinal:    true,
	}
	s.nextSeq++
	return chunk, nil
}

// OutOfOrderError reports a sequence-number violation on an order-preserving
// transport. It is fatal to the current response only.
type OutOfOrderError struct {
	ResponseID string
	Want       int
	Got        int
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("audio chunk out of order for response %s: want seq %d, got %d", e.ResponseID, e.Want, e.Got)
}
