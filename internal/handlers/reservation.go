package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
	"github.com/veloute/server/internal/router"
)

// tableSize pairs a table capacity with how many such tables exist.
type tableSize struct {
	Seats int
	Count int
}

// Floor plan: 8 tables of 2, 6 of 4, 4 of 6, 2 of 8.
var floorPlan = []tableSize{
	{Seats: 2, Count: 8},
	{Seats: 4, Count: 6},
	{Seats: 6, Count: 4},
	{Seats: 8, Count: 2},
}

var reservationKeywords = []string{
	"reservation", "reserve", "booking", "book a table", "book us", "table for",
}

var (
	guestsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btable\s+for\s+(\d{1,2})\b`),
		regexp.MustCompile(`(?i)\bparty\s+of\s+(\d{1,2})\b`),
		regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:people|persons|guests)\b`),
	}
	clockPattern   = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	time24Pattern  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	oclockPattern  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*o'?clock\b`)
	weekdayPattern = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	datePattern    = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}(?:/\d{2,4})?)\b`)
	namePattern    = regexp.MustCompile(`(?i)\b(?:my name is|name is|under the name|under)\s+([A-Za-z][A-Za-z' -]{1,40})`)
	phonePattern   = regexp.MustCompile(`\+?\d[\d .-]{7,}\d`)
)

// reservationDetails is what the handler could parse out of a transcript.
type reservationDetails struct {
	Name   string
	Phone  string
	Date   string
	Time   string
	Guests int
}

// ReservationHandler books, looks up and cancels table reservations. It
// parses booking details out of the transcript itself and persists records
// through the reservation repository.
type ReservationHandler struct {
	reservations repositories.ReservationRepository
	logger       *zap.Logger
}

// NewReservationHandler creates the reservation handler.
func NewReservationHandler(reservations repositories.ReservationRepository, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservations: reservations,
		logger:       logger,
	}
}

func (h *ReservationHandler) Name() string { return "reservation" }

// CanHandle matches booking vocabulary. It inspects the transcript only and
// has no side effects.
func (h *ReservationHandler) CanHandle(transcript string) bool {
	lower := strings.ToLower(transcript)
	for _, kw := range reservationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Execute books or cancels a table. Domain failures such as a full house are
// ordinary results whose text explains the problem; only infrastructure
// failures surface as errors.
func (h *ReservationHandler) Execute(ctx context.Context, transcript string, rctx router.Context) (router.Result, error) {
	if strings.Contains(strings.ToLower(transcript), "cancel") {
		return h.cancel(ctx, transcript)
	}

	details := parseReservationDetails(transcript)
	if missing := missingDetails(details); len(missing) > 0 {
		return router.Result{
			Text: fmt.Sprintf("To book your table I still need %s. Could you tell me?", strings.Join(missing, " and ")),
		}, nil
	}

	seats, ok := smallestTable(details.Guests)
	if !ok {
		return router.Result{
			Text: fmt.Sprintf("I'm sorry, our largest table seats %d and I cannot seat a party of %d at one table.",
				floorPlan[len(floorPlan)-1].Seats, details.Guests),
		}, nil
	}

	available, err := h.tableAvailable(ctx, details.Date, details.Time, seats)
	if err != nil {
		return router.Result{}, fmt.Errorf("availability check failed: %w", err)
	}
	if !available {
		return router.Result{
			Text: fmt.Sprintf("I'm sorry, we are fully booked for %d guests on %s at %s. Would another time work?",
				details.Guests, details.Date, details.Time),
		}, nil
	}

	reservation := &entities.Reservation{
		ID:        uuid.New().String(),
		Name:      details.Name,
		Phone:     details.Phone,
		Date:      details.Date,
		Time:      details.Time,
		Guests:    details.Guests,
		TableSize: seats,
		Status:    entities.ReservationStatusConfirmed,
		CreatedAt: time.Now(),
	}
	if err := h.reservations.Create(ctx, reservation); err != nil {
		return router.Result{}, fmt.Errorf("failed to save reservation: %w", err)
	}

	h.logger.Info("Reservation created",
		zap.String("reservationID", reservation.ID),
		zap.String("name", reservation.Name),
		zap.Int("guests", reservation.Guests))

	return router.Result{
		Text: fmt.Sprintf("Your table for %d is confirmed on %s at %s under the name %s. See you soon!",
			reservation.Guests, reservation.Date, reservation.Time, reservation.Name),
		Payload: reservation,
	}, nil
}

func (h *ReservationHandler) cancel(ctx context.Context, transcript string) (router.Result, error) {
	name := extractName(transcript)
	if name == "" {
		return router.Result{
			Text: "I can cancel your reservation. What name is it under?",
		}, nil
	}

	existing, err := h.reservations.ListByName(ctx, name)
	if err != nil {
		return router.Result{}, fmt.Errorf("failed to look up reservations: %w", err)
	}
	for _, r := range existing {
		if r.Status != entities.ReservationStatusConfirmed {
			continue
		}
		if err := h.reservations.Cancel(ctx, r.ID); err != nil {
			return router.Result{}, fmt.Errorf("failed to cancel reservation: %w", err)
		}
		h.logger.Info("Reservation cancelled", zap.String("reservationID", r.ID))
		return router.Result{
			Text:    fmt.Sprintf("Done. I cancelled the reservation for %s on %s at %s.", r.Name, r.Date, r.Time),
			Payload: r,
		}, nil
	}

	return router.Result{
		Text: fmt.Sprintf("I could not find a reservation under the name %s.", name),
	}, nil
}

// tableAvailable checks the remaining stock of tables of the given size for
// one date and time slot.
func (h *ReservationHandler) tableAvailable(ctx context.Context, date, timeSlot string, seats int) (bool, error) {
	all, err := h.reservations.List(ctx)
	if err != nil {
		return false, err
	}
	taken := 0
	for _, r := range all {
		if r.Status == entities.ReservationStatusConfirmed &&
			r.Date == date && r.Time == timeSlot && r.TableSize == seats {
			taken++
		}
	}
	for _, ts := range floorPlan {
		if ts.Seats == seats {
			return taken < ts.Count, nil
		}
	}
	return false, nil
}

func smallestTable(guests int) (int, bool) {
	for _, ts := range floorPlan {
		if ts.Seats >= guests {
			return ts.Seats, true
		}
	}
	return 0, false
}

func parseReservationDetails(transcript string) reservationDetails {
	details := reservationDetails{
		Name:  extractName(transcript),
		Phone: extractPhone(transcript),
		Date:  extractDate(transcript),
		Time:  extractTime(transcript),
	}
	details.Guests = extractGuests(transcript)

	if details.Name == "" {
		details.Name = "Guest"
	}
	if details.Date == "" {
		// No date mentioned: assume today.
		details.Date = strings.ToLower(time.Now().Weekday().String())
	}
	return details
}

func missingDetails(d reservationDetails) []string {
	var missing []string
	if d.Guests == 0 {
		missing = append(missing, "the number of guests")
	}
	if d.Time == "" {
		missing = append(missing, "the time")
	}
	return missing
}

func extractGuests(transcript string) int {
	for _, p := range guestsPatterns {
		if m := p.FindStringSubmatch(transcript); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

// extractTime normalizes spoken times to 24h "HH:MM".
func extractTime(transcript string) string {
	if m := clockPattern.FindStringSubmatch(transcript); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		meridiem := strings.ToLower(m[3])
		if meridiem == "pm" && hour < 12 {
			hour += 12
		}
		if meridiem == "am" && hour == 12 {
			hour = 0
		}
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}
	if m := time24Pattern.FindStringSubmatch(transcript); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 24 && minute < 60 {
			return fmt.Sprintf("%02d:%02d", hour, minute)
		}
	}
	if m := oclockPattern.FindStringSubmatch(transcript); m != nil {
		hour, _ := strconv.Atoi(m[1])
		// Bare "7 o'clock" at a restaurant means dinner time.
		if hour < 12 && hour >= 5 {
			hour += 12
		}
		return fmt.Sprintf("%02d:00", hour)
	}

	lower := strings.ToLower(transcript)
	switch {
	case strings.Contains(lower, "noon"), strings.Contains(lower, "midday"), strings.Contains(lower, "lunch"):
		return "12:00"
	case strings.Contains(lower, "tonight"), strings.Contains(lower, "evening"), strings.Contains(lower, "dinner"):
		return "19:00"
	}
	return ""
}

func extractDate(transcript string) string {
	if m := weekdayPattern.FindStringSubmatch(transcript); m != nil {
		return strings.ToLower(m[1])
	}
	if m := datePattern.FindStringSubmatch(transcript); m != nil {
		return m[1]
	}
	lower := strings.ToLower(transcript)
	switch {
	case strings.Contains(lower, "tomorrow"):
		return strings.ToLower(time.Now().AddDate(0, 0, 1).Weekday().String())
	case strings.Contains(lower, "today"), strings.Contains(lower, "tonight"):
		return strings.ToLower(time.Now().Weekday().String())
	}
	return ""
}

func extractName(transcript string) string {
	m := namePattern.FindStringSubmatch(transcript)
	if m == nil {
		return ""
	}
	name := m[1]
	// Cut the capture at the first clause boundary.
	for _, sep := range []string{" and ", " for ", " at ", " on ", ","} {
		if idx := strings.Index(strings.ToLower(name), sep); idx > 0 {
			name = name[:idx]
		}
	}
	return titleCase(strings.TrimSpace(name))
}

func extractPhone(transcript string) string {
	return phonePattern.FindString(transcript)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
