package api

import "time"

// AuthRequest is the payload for issuing a client token
type AuthRequest struct {
	ClientName string `json:"client_name"`
}

// AuthResponse carries the issued token
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ClientID  string    `json:"client_id"`
}

// QueryRequest is the text-only path through the intent router
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the routed reply for a text query
type QueryResponse struct {
	Response string `json:"response"`
	Payload  any    `json:"payload,omitempty"`
}

// ReservationRequest is the payload for creating a reservation over REST
type ReservationRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
