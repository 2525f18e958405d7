package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/veloute/server/domain/repositories"
)

const mockSampleRate = 16000

// MockSynthesizer emits silence shaped like real speech so the streaming
// pipeline can run without an Eleven Labs key.
type MockSynthesizer struct {
	logger *zap.Logger
}

// NewMockSynthesizer creates a new mock text-to-speech service
func NewMockSynthesizer(logger *zap.Logger) repositories.Synthesizer {
	return &MockSynthesizer{logger: logger}
}

func (m *MockSynthesizer) SampleRate() int {
	return mockSampleRate
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text string, language string) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	m.logger.Info("Generating mock speech",
		zap.Int("textLength", len(text)),
		zap.String("language", language))

	// Roughly 60ms of silence per word, in 1KB buffers.
	words := len(strings.Fields(text))
	totalBytes := words * mockSampleRate * 2 * 60 / 1000

	out := make(chan []byte, 10)
	go func() {
		defer close(out)
		for sent := 0; sent < totalBytes; sent += 1024 {
			n := totalBytes - sent
			if n > 1024 {
				n = 1024
			}
			select {
			case out <- make([]byte, n):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
