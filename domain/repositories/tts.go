package repositories

import "context"

// Synthesizer abstracts text-to-speech services.
type Synthesizer interface {
	// Synthesize converts text into a finite stream of PCM audio buffers.
	// The channel is closed when synthesis completes. A stream cannot be
	// restarted; replaying requires a fresh call.
	Synthesize(ctx context.Context, text string, language string) (<-chan []byte, error)

	// SampleRate reports the sample rate of the emitted PCM data in Hz.
	SampleRate() int
}
