package repositories

import (
	"context"

	"github.com/veloute/server/domain/entities"
)

// GeneralModel abstracts the free-form LLM used when no specialized
// handler claims a transcript.
type GeneralModel interface {
	// Reply generates an answer to the prompt given the conversation so far.
	Reply(ctx context.Context, prompt string, history []entities.Turn) (string, error)
}
