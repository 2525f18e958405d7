package entities

import (
	"errors"
	"time"
)

// ReservationStatus represents the status of a table reservation
type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Reservation represents a confirmed or cancelled table booking
type Reservation struct {
	ID              string            `json:"id" bson:"_id,omitempty"`
	Name            string            `json:"name" bson:"name"`
	Phone           string            `json:"phone" bson:"phone"`
	Date            string            `json:"date" bson:"date"`
	Time            string            `json:"time" bson:"time"`
	Guests          int               `json:"guests" bson:"guests"`
	TableSize       int               `json:"table_size" bson:"table_size"`
	Status          ReservationStatus `json:"status" bson:"status"`
	SpecialRequests string            `json:"special_requests,omitempty" bson:"special_requests,omitempty"`
	CreatedAt       time.Time         `json:"created_at" bson:"created_at"`
}

// Validate validates the reservation data
func (r *Reservation) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Date == "" {
		return errors.New("date is required")
	}
	if r.Time == "" {
		return errors.New("time is required")
	}
	if r.Guests < 1 {
		return errors.New("guests must be at least 1")
	}
	return nil
}

// Dish is a single menu item
type Dish struct {
	Name        string  `json:"name" bson:"name"`
	Category    string  `json:"category" bson:"category"`
	Price       float64 `json:"price" bson:"price"`
	Description string  `json:"description" bson:"description"`
	Vegetarian  bool    `json:"vegetarian" bson:"vegetarian"`
	Available   bool    `json:"available" bson:"available"`
}

// MenuCategory groups dishes under a named section of the menu
type MenuCategory struct {
	Name  string `json:"name" bson:"name"`
	Items []Dish `json:"items" bson:"items"`
}

// Menu is the full menu as served to clients
type Menu struct {
	Categories []MenuCategory `json:"categories" bson:"categories"`
}

// CategoryNames returns the menu section names in menu order
func (m *Menu) CategoryNames() []string {
	names := make([]string, 0, len(m.Categories))
	for _, c := range m.Categories {
		names = append(names, c.Name)
	}
	return names
}

// DishCount returns the total number of dishes across all categories
func (m *Menu) DishCount() int {
	n := 0
	for _, c := range m.Categories {
		n += len(c.Items)
	}
	return n
}

// RestaurantInfo holds static facts about the restaurant
type RestaurantInfo struct {
	Name    string `json:"name" bson:"name"`
	Address string `json:"address" bson:"address"`
	Phone   string `json:"phone" bson:"phone"`
	Hours   string `json:"hours" bson:"hours"`
}

// Conversation is an archived session history, persisted on disconnect
type Conversation struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	ClientID   string    `json:"client_id" bson:"client_id"`
	Turns      []Turn    `json:"turns" bson:"turns"`
	ArchivedAt time.Time `json:"archived_at" bson:"archived_at"`
}
