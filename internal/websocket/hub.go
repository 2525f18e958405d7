package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
	"github.com/veloute/server/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients. Each client owns an independent
// session machine; sessions never share mutable state.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	collab        session.Collaborators
	sessionCfg    session.Config
	conversations repositories.ConversationRepository

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	collab session.Collaborators,
	sessionCfg session.Config,
	conversations repositories.ConversationRepository,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:       make(map[string]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		collab:        collab,
		sessionCfg:    sessionCfg,
		conversations: conversations,
		logger:        logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.clientID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.clientID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.clientID]; ok {
				delete(h.clients, client.clientID)
				client.closeSend()
			}
			h.mu.Unlock()
			h.archiveSession(client)
			client.machine.Close()
			h.logger.Info("Client unregistered", zap.String("clientID", client.clientID))
		}
	}
}

// ActiveSessions returns the number of connected clients.
func (h *Hub) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// archiveSession persists the finished conversation before the session is
// destroyed.
func (h *Hub) archiveSession(client *Client) {
	turns := client.machine.History()
	if len(turns) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := h.conversations.Archive(ctx, &entities.Conversation{
		ClientID:   client.clientID,
		Turns:      turns,
		ArchivedAt: time.Now(),
	})
	if err != nil {
		h.logger.Error("Failed to archive conversation",
			zap.String("clientID", client.clientID),
			zap.Error(err))
	}
}

// HandleWebSocket upgrades the connection and binds it to a fresh session.
// The connection identity is the session identity.
func HandleWebSocket(hub *Hub, c echo.Context, clientID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan WriteData, 256),
		clientID: clientID,
		logger:   logger,
	}
	client.machine = session.NewMachine(clientID, hub.collab, client, hub.sessionCfg, logger)

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}
