package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
)

type ReservationRepository struct {
	collection *mongo.Collection
}

// NewReservationRepository creates a new MongoDB reservation repository
func NewReservationRepository(db *mongo.Database) repositories.ReservationRepository {
	return &ReservationRepository{
		collection: db.Collection("reservations"),
	}
}

// Create implements repositories.ReservationRepository
func (r *ReservationRepository) Create(ctx context.Context, reservation *entities.Reservation) error {
	if reservation == nil {
		return errors.New("reservation cannot be nil")
	}
	if reservation.ID == "" {
		return errors.New("reservation ID cannot be empty")
	}

	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, reservation); err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	return nil
}

// GetByID implements repositories.ReservationRepository
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*entities.Reservation, error) {
	if id == "" {
		return nil, errors.New("reservation ID cannot be empty")
	}

	var reservation entities.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation %s: %w", id, err)
	}

	return &reservation, nil
}

// ListByName implements repositories.ReservationRepository
func (r *ReservationRepository) ListByName(ctx context.Context, name string) ([]*entities.Reservation, error) {
	if name == "" {
		return nil, errors.New("name cannot be empty")
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, nameFilter(name), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations for %s: %w", name, err)
	}
	defer cursor.Close(ctx)

	var reservations []*entities.Reservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

// nameFilter builds a case-insensitive exact match on the booking name. The
// name comes from user input, so regex metacharacters must be escaped before
// it is embedded in the pattern.
func nameFilter(name string) bson.M {
	return bson.M{"name": bson.M{"$regex": "^" + regexp.QuoteMeta(name) + "$", "$options": "i"}}
}

// List implements repositories.ReservationRepository
func (r *ReservationRepository) List(ctx context.Context) ([]*entities.Reservation, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*entities.Reservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

// Cancel implements repositories.ReservationRepository
func (r *ReservationRepository) Cancel(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("reservation ID cannot be empty")
	}

	update := bson.M{"$set": bson.M{"status": entities.ReservationStatusCancelled}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}

	return nil
}
