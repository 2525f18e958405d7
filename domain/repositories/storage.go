package repositories

import (
	"context"
	"errors"

	"github.com/veloute/server/domain/entities"
)

// ErrNotFound is returned by lookups for records that do not exist.
var ErrNotFound = errors.New("record not found")

// MenuRepository defines read access to the menu
type MenuRepository interface {
	GetMenu(ctx context.Context) (*entities.Menu, error)
	SearchDishes(ctx context.Context, query string) ([]entities.Dish, error)
	DishesByCategory(ctx context.Context, category string) ([]entities.Dish, error)
	// VegetarianDishes filters on the vegetarian flag, not on dish text.
	VegetarianDishes(ctx context.Context) ([]entities.Dish, error)
	GetRestaurantInfo(ctx context.Context) (*entities.RestaurantInfo, error)
}

// ReservationRepository defines data access methods for reservations
type ReservationRepository interface {
	Create(ctx context.Context, reservation *entities.Reservation) error
	GetByID(ctx context.Context, id string) (*entities.Reservation, error)
	ListByName(ctx context.Context, name string) ([]*entities.Reservation, error)
	List(ctx context.Context) ([]*entities.Reservation, error)
	Cancel(ctx context.Context, id string) error
}

// ConversationRepository archives finished session histories
type ConversationRepository interface {
	Archive(ctx context.Context, conversation *entities.Conversation) error
	ListByClient(ctx context.Context, clientID string, limit int) ([]*entities.Conversation, error)
}
