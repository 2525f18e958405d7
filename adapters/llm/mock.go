package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
)

// MockModel is a canned-response model for running the server without a
// Gemini key.
type MockModel struct {
	logger *zap.Logger
}

// NewMockModel creates a new mock language model
func NewMockModel(logger *zap.Logger) repositories.GeneralModel {
	return &MockModel{logger: logger}
}

func (m *MockModel) Reply(ctx context.Context, prompt string, history []entities.Turn) (string, error) {
	m.logger.Info("Generating mock reply",
		zap.String("prompt", prompt),
		zap.Int("historyLength", len(history)))

	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "bonjour"):
		return "Hello, welcome to Les Pieds dans le Plat! How can I help you today?", nil
	case strings.Contains(lower, "thank"):
		return "You are very welcome. Enjoy your day!", nil
	default:
		return "I am happy to help with reservations, our menu, or any question about the restaurant.", nil
	}
}
