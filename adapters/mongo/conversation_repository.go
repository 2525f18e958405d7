package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
)

type ConversationRepository struct {
	collection *mongo.Collection
}

// NewConversationRepository creates a new MongoDB conversation repository
func NewConversationRepository(db *mongo.Database) repositories.ConversationRepository {
	return &ConversationRepository{
		collection: db.Collection("conversations"),
	}
}

// Archive implements repositories.ConversationRepository
func (r *ConversationRepository) Archive(ctx context.Context, conversation *entities.Conversation) error {
	if conversation == nil {
		return errors.New("conversation cannot be nil")
	}
	if conversation.ClientID == "" {
		return errors.New("client ID cannot be empty")
	}

	if conversation.ArchivedAt.IsZero() {
		conversation.ArchivedAt = time.Now()
	}

	doc := bson.M{
		"client_id":   conversation.ClientID,
		"turns":       conversation.Turns,
		"archived_at": conversation.ArchivedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to archive conversation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		conversation.ID = oid.Hex()
	}

	return nil
}

// ListByClient implements repositories.ConversationRepository
func (r *ConversationRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]*entities.Conversation, error) {
	if clientID == "" {
		return nil, errors.New("client ID cannot be empty")
	}
	if limit <= 0 {
		limit = 20
	}

	filter := bson.M{"client_id": clientID}
	opts := options.Find().
		SetSort(bson.M{"archived_at": -1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations for %s: %w", clientID, err)
	}
	defer cursor.Close(ctx)

	var conversations []*entities.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}

	return conversations, nil
}
