package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
	"github.com/veloute/server/internal/auth"
	"github.com/veloute/server/internal/router"
	"github.com/veloute/server/internal/websocket"
)

// Dependencies bundles what the REST layer needs.
type Dependencies struct {
	Hub           *websocket.Hub
	Router        *router.Router
	Menu          repositories.MenuRepository
	Reservations  repositories.ReservationRepository
	Conversations repositories.ConversationRepository
	Logger        *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "ok",
			"service":  "veloute-server",
			"sessions": deps.Hub.ActiveSessions(),
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/auth", func(c echo.Context) error { return issueToken(c, deps) })
	v1.POST("/query", func(c echo.Context) error { return textQuery(c, deps) })

	v1.GET("/menu", func(c echo.Context) error { return getMenu(c, deps) })
	v1.GET("/dishes", func(c echo.Context) error { return getDishes(c, deps) })
	v1.GET("/info", func(c echo.Context) error { return getInfo(c, deps) })

	v1.GET("/reservations", func(c echo.Context) error { return listReservations(c, deps) })
	v1.POST("/reservations", func(c echo.Context) error { return createReservation(c, deps) })
	v1.DELETE("/reservations/:id", func(c echo.Context) error { return cancelReservation(c, deps) })

	v1.GET("/conversations", func(c echo.Context) error { return listConversations(c, deps) })

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error { return websocketWithAuth(c, deps) })
}

func issueToken(c echo.Context, deps Dependencies) error {
	var req AuthRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	clientID := uuid.New().String()
	token, err := auth.GenerateClientToken(clientID)
	if err != nil {
		deps.Logger.Error("Failed to generate client token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	return c.JSON(http.StatusOK, AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		ClientID:  clientID,
	})
}

// textQuery runs a one-shot transcript through the same router the voice
// pipeline uses, with no session history.
func textQuery(c echo.Context, deps Dependencies) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	result, err := deps.Router.Route(c.Request().Context(), req.Query, router.Context{})
	if err != nil {
		if errors.Is(err, router.ErrEmptyTranscript) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "empty_query",
				Message: "Query must not be empty",
			})
		}
		deps.Logger.Error("Text query failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "routing_failed",
			Message: "Failed to process query",
		})
	}

	return c.JSON(http.StatusOK, QueryResponse{
		Response: result.Text,
		Payload:  result.Payload,
	})
}

func getMenu(c echo.Context, deps Dependencies) error {
	menu, err := deps.Menu.GetMenu(c.Request().Context())
	if err != nil {
		deps.Logger.Error("Failed to fetch menu", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "menu_unavailable",
		})
	}
	return c.JSON(http.StatusOK, menu)
}

// getDishes returns dishes grouped by category, optionally filtered by the
// "category" or "q" query parameters.
func getDishes(c echo.Context, deps Dependencies) error {
	ctx := c.Request().Context()

	if category := c.QueryParam("category"); category != "" {
		dishes, err := deps.Menu.DishesByCategory(ctx, category)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "lookup_failed"})
		}
		return c.JSON(http.StatusOK, map[string][]entities.Dish{category: dishes})
	}

	if query := c.QueryParam("q"); query != "" {
		var (
			dishes []entities.Dish
			err    error
		)
		if strings.EqualFold(query, "vegetarian") {
			dishes, err = deps.Menu.VegetarianDishes(ctx)
		} else {
			dishes, err = deps.Menu.SearchDishes(ctx, query)
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "lookup_failed"})
		}
		return c.JSON(http.StatusOK, map[string][]entities.Dish{"results": dishes})
	}

	menu, err := deps.Menu.GetMenu(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "lookup_failed"})
	}
	byCategory := make(map[string][]entities.Dish, len(menu.Categories))
	for _, cat := range menu.Categories {
		byCategory[cat.Name] = cat.Items
	}
	return c.JSON(http.StatusOK, byCategory)
}

func getInfo(c echo.Context, deps Dependencies) error {
	info, err := deps.Menu.GetRestaurantInfo(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "info_unavailable"})
	}
	return c.JSON(http.StatusOK, info)
}

func listReservations(c echo.Context, deps Dependencies) error {
	if name := c.QueryParam("name"); name != "" {
		reservations, err := deps.Reservations.ListByName(c.Request().Context(), name)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "lookup_failed"})
		}
		return c.JSON(http.StatusOK, reservations)
	}

	reservations, err := deps.Reservations.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "lookup_failed"})
	}
	return c.JSON(http.StatusOK, reservations)
}

func createReservation(c echo.Context, deps Dependencies) error {
	var req ReservationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	reservation := &entities.Reservation{
		ID:              uuid.New().String(),
		Name:            req.Name,
		Phone:           req.Phone,
		Date:            req.Date,
		Time:            req.Time,
		Guests:          req.Guests,
		Status:          entities.ReservationStatusConfirmed,
		SpecialRequests: req.SpecialRequests,
		CreatedAt:       time.Now(),
	}
	if err := reservation.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_reservation",
			Message: err.Error(),
		})
	}

	if err := deps.Reservations.Create(c.Request().Context(), reservation); err != nil {
		deps.Logger.Error("Failed to create reservation", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "create_failed"})
	}
	return c.JSON(http.StatusCreated, reservation)
}

func cancelReservation(c echo.Context, deps Dependencies) error {
	id := c.Param("id")
	if err := deps.Reservations.Cancel(c.Request().Context(), id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "cancel_failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func listConversations(c echo.Context, deps Dependencies) error {
	clientID := c.QueryParam("client_id")
	if clientID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_client_id",
			Message: "client_id query parameter is required",
		})
	}
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	conversations, err := deps.Conversations.ListByClient(c.Request().Context(), clientID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "lookup_failed"})
	}
	return c.JSON(http.StatusOK, conversations)
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(c echo.Context, deps Dependencies) error {
	// Extract JWT token from Authorization header or query parameter
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}
	if token == "" {
		token = c.QueryParam("token")
	}

	if token == "" {
		deps.Logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		deps.Logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	if claims.ClientID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "Client ID not found in token",
		})
	}

	deps.Logger.Info("WebSocket connection authenticated",
		zap.String("client_id", claims.ClientID))

	return websocket.HandleWebSocket(deps.Hub, c, claims.ClientID, deps.Logger)
}
