package repositories

import (
	"context"
	"errors"
)

// Recoverable transcription failures. These describe bad input rather than a
// broken backend; the session returns to idle without recording a turn.
var (
	ErrEmptyAudio          = errors.New("no audio data received")
	ErrAudioTooShort       = errors.New("audio clip too short to transcribe")
	ErrUnintelligibleAudio = errors.New("no speech detected in audio")
)

// ErrSpeechBackendUnavailable signals the recognition service itself failed.
var ErrSpeechBackendUnavailable = errors.New("speech backend unavailable")

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// Transcription is the result of a successful speech-to-text call
type Transcription struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcriber abstracts speech recognition services
type Transcriber interface {
	// Transcribe converts a complete audio clip to text. Failures are
	// reported through the sentinel errors above so callers can tell bad
	// input apart from a broken backend.
	Transcribe(ctx context.Context, audio []byte, config AudioConfig) (Transcription, error)
}

// RecoverableTranscriptionError reports whether err describes bad input
// that the user can simply retry.
func RecoverableTranscriptionError(err error) bool {
	return errors.Is(err, ErrEmptyAudio) ||
		errors.Is(err, ErrAudioTooShort) ||
		errors.Is(err, ErrUnintelligibleAudio)
}
