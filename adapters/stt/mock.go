package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/veloute/server/domain/repositories"
)

// MockTranscriber is a placeholder recognizer for running the server without
// Google Cloud credentials.
type MockTranscriber struct {
	logger *zap.Logger
}

// NewMockTranscriber creates a new mock speech recognizer
func NewMockTranscriber(logger *zap.Logger) repositories.Transcriber {
	return &MockTranscriber{logger: logger}
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig) (repositories.Transcription, error) {
	m.logger.Info("Processing mock transcription",
		zap.Int("audioSize", len(audio)),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding))

	if len(audio) == 0 {
		return repositories.Transcription{}, repositories.ErrEmptyAudio
	}
	if len(audio) < minClipBytes {
		return repositories.Transcription{}, repositories.ErrAudioTooShort
	}

	// Mock different utterances based on clip size so each pipeline branch
	// can be driven without real audio.
	var text string
	switch {
	case len(audio) > 120000:
		text = "I would like to book a table for four at 7pm on saturday"
	case len(audio) > 60000:
		text = "What is on the menu today?"
	default:
		text = "What are your opening hours?"
	}

	return repositories.Transcription{
		Text:     text,
		Language: config.Language,
	}, nil
}
