package handlers

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/veloute/server/adapters/memory"
	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/internal/router"
)

func newReservationHandler() *ReservationHandler {
	return NewReservationHandler(memory.NewReservationRepository(), zap.NewNop())
}

func TestReservationCanHandle(t *testing.T) {
	h := newReservationHandler()

	matching := []string{
		"I'd like to make a reservation",
		"Can I book a table for tonight?",
		"table for two please",
		"I want to reserve for saturday",
	}
	for _, transcript := range matching {
		if !h.CanHandle(transcript) {
			t.Errorf("Expected CanHandle true for %q", transcript)
		}
	}

	notMatching := []string{
		"What is on the menu?",
		"Where are you located?",
	}
	for _, transcript := range notMatching {
		if h.CanHandle(transcript) {
			t.Errorf("Expected CanHandle false for %q", transcript)
		}
	}
}

func TestBookTableConfirmsDetails(t *testing.T) {
	h := newReservationHandler()

	result, err := h.Execute(context.Background(),
		"I'd like to book a table for 4 at 7pm on saturday", router.Context{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Text, "4") {
		t.Errorf("Expected confirmation to mention the party size, got %q", result.Text)
	}
	if !strings.Contains(result.Text, "19:00") {
		t.Errorf("Expected confirmation to mention 19:00, got %q", result.Text)
	}
	if !strings.Contains(result.Text, "saturday") {
		t.Errorf("Expected confirmation to mention saturday, got %q", result.Text)
	}

	reservation, ok := result.Payload.(*entities.Reservation)
	if !ok {
		t.Fatalf("Expected reservation payload, got %T", result.Payload)
	}
	if reservation.Guests != 4 {
		t.Errorf("Expected 4 guests, got %d", reservation.Guests)
	}
	if reservation.TableSize != 4 {
		t.Errorf("Expected a table of 4, got %d", reservation.TableSize)
	}
	if reservation.Status != entities.ReservationStatusConfirmed {
		t.Errorf("Expected confirmed status, got %s", reservation.Status)
	}
}

func TestBookTableAsksForMissingDetails(t *testing.T) {
	h := newReservationHandler()

	result, err := h.Execute(context.Background(), "I'd like to make a reservation", router.Context{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Text, "number of guests") {
		t.Errorf("Expected clarification about guests, got %q", result.Text)
	}
	if !strings.Contains(result.Text, "time") {
		t.Errorf("Expected clarification about time, got %q", result.Text)
	}
	if result.Payload != nil {
		t.Error("A clarification must not carry a reservation payload")
	}
}

func TestBookTableRoundsUpToSmallestTable(t *testing.T) {
	h := newReservationHandler()

	result, err := h.Execute(context.Background(),
		"book a table for 5 people at 8pm on friday", router.Context{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	reservation, ok := result.Payload.(*entities.Reservation)
	if !ok {
		t.Fatalf("Expected reservation payload, got %T", result.Payload)
	}
	if reservation.TableSize != 6 {
		t.Errorf("Expected party of 5 seated at a table of 6, got %d", reservation.TableSize)
	}
}

func TestBookTableRejectsOversizedParty(t *testing.T) {
	h := newReservationHandler()

	result, err := h.Execute(context.Background(),
		"reservation for a party of 12 at 7pm", router.Context{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Payload != nil {
		t.Error("An oversized party must not produce a reservation")
	}
	if !strings.Contains(result.Text, "largest table") {
		t.Errorf("Expected explanation about table sizes, got %q", result.Text)
	}
}

func TestBookTableFullHouse(t *testing.T) {
	h := newReservationHandler()

	// The floor has two tables of 8; book them both out.
	for i := 0; i < 2; i++ {
		result, err := h.Execute(context.Background(),
			"book a table for 8 people at 7pm on friday", router.Context{})
		if err != nil {
			t.Fatalf("Execute %d failed: %v", i, err)
		}
		if result.Payload == nil {
			t.Fatalf("Expected booking %d to succeed: %q", i, result.Text)
		}
	}

	result, err := h.Execute(context.Background(),
		"book a table for 8 people at 7pm on friday", router.Context{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Payload != nil {
		t.Error("Expected third booking of the same slot to be refused")
	}
	if !strings.Contains(result.Text, "fully booked") {
		t.Errorf("Expected fully-booked reply, got %q", result.Text)
	}
}

func TestCancelReservationByName(t *testing.T) {
	h := newReservationHandler()

	if _, err := h.Execute(context.Background(),
		"book a table for 2 at 8pm on friday under the name Dupont", router.Context{}); err != nil {
		t.Fatalf("Booking failed: %v", err)
	}

	result, err := h.Execute(context.Background(),
		"please cancel my reservation, my name is Dupont", router.Context{})
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if !strings.Contains(result.Text, "cancelled") {
		t.Errorf("Expected cancellation confirmation, got %q", result.Text)
	}

	// Cancelling again finds nothing confirmed.
	result, err = h.Execute(context.Background(),
		"please cancel my reservation, my name is Dupont", router.Context{})
	if err != nil {
		t.Fatalf("Second cancel failed: %v", err)
	}
	if !strings.Contains(result.Text, "could not find") {
		t.Errorf("Expected not-found reply, got %q", result.Text)
	}
}

func TestCancelWithoutNameAsksForIt(t *testing.T) {
	h := newReservationHandler()

	result, err := h.Execute(context.Background(), "cancel my reservation", router.Context{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Text, "name") {
		t.Errorf("Expected a question about the name, got %q", result.Text)
	}
}

func TestExtractTimeNormalization(t *testing.T) {
	cases := []struct {
		transcript string
		want       string
	}{
		{"book at 7pm", "19:00"},
		{"book at 7:30 pm", "19:30"},
		{"book at 12am", "00:00"},
		{"book at 18:45", "18:45"},
		{"book at 7 o'clock", "19:00"},
		{"a table for dinner", "19:00"},
		{"a table for lunch", "12:00"},
		{"just a table", ""},
	}
	for _, c := range cases {
		if got := extractTime(c.transcript); got != c.want {
			t.Errorf("extractTime(%q) = %q, want %q", c.transcript, got, c.want)
		}
	}
}

func TestExtractNameStopsAtClauseBoundary(t *testing.T) {
	got := extractName("book under the name jean dupont for 4 people")
	if got != "Jean Dupont" {
		t.Errorf("Expected Jean Dupont, got %q", got)
	}
}
