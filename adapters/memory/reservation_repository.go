package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
)

// ReservationRepository is an in-memory reservation store for development
// and tests.
type ReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*entities.Reservation
}

// NewReservationRepository creates an empty in-memory reservation store.
func NewReservationRepository() repositories.ReservationRepository {
	return &ReservationRepository{
		reservations: make(map[string]*entities.Reservation),
	}
}

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

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *reservation
	r.reservations[reservation.ID] = &stored
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*entities.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reservation, ok := r.reservations[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	found := *reservation
	return &found, nil
}

func (r *ReservationRepository) ListByName(ctx context.Context, name string) ([]*entities.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*entities.Reservation
	for _, reservation := range r.reservations {
		if strings.EqualFold(reservation.Name, name) {
			found := *reservation
			matches = append(matches, &found)
		}
	}
	sortNewestFirst(matches)
	return matches, nil
}

func (r *ReservationRepository) List(ctx context.Context) ([]*entities.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reservations := make([]*entities.Reservation, 0, len(r.reservations))
	for _, reservation := range r.reservations {
		found := *reservation
		reservations = append(reservations, &found)
	}
	sortNewestFirst(reservations)
	return reservations, nil
}

func (r *ReservationRepository) Cancel(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reservation, ok := r.reservations[id]
	if !ok {
		return repositories.ErrNotFound
	}
	reservation.Status = entities.ReservationStatusCancelled
	return nil
}

func sortNewestFirst(reservations []*entities.Reservation) {
	sort.Slice(reservations, func(i, j int) bool {
		return reservations[i].CreatedAt.After(reservations[j].CreatedAt)
	})
}
