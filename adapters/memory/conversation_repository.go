package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
)

// ConversationRepository is an in-memory conversation archive for
// development and tests.
type ConversationRepository struct {
	mu       sync.RWMutex
	byClient map[string][]*entities.Conversation
}

// NewConversationRepository creates an empty in-memory conversation archive.
func NewConversationRepository() repositories.ConversationRepository {
	return &ConversationRepository{
		byClient: make(map[string][]*entities.Conversation),
	}
}

func (r *ConversationRepository) Archive(ctx context.Context, conversation *entities.Conversation) error {
	if conversation == nil {
		return errors.New("conversation cannot be nil")
	}
	if conversation.ClientID == "" {
		return errors.New("client ID cannot be empty")
	}

	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	if conversation.ArchivedAt.IsZero() {
		conversation.ArchivedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *conversation
	stored.Turns = make([]entities.Turn, len(conversation.Turns))
	copy(stored.Turns, conversation.Turns)

	// Newest first
	r.byClient[conversation.ClientID] = append(
		[]*entities.Conversation{&stored},
		r.byClient[conversation.ClientID]...,
	)
	return nil
}

func (r *ConversationRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]*entities.Conversation, error) {
	if clientID == "" {
		return nil, errors.New("client ID cannot be empty")
	}
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	archived := r.byClient[clientID]
	if len(archived) > limit {
		archived = archived[:limit]
	}

	conversations := make([]*entities.Conversation, len(archived))
	for i, conversation := range archived {
		found := *conversation
		conversations[i] = &found
	}
	return conversations, nil
}
