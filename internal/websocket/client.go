package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/veloute/server/internal/audio"
	"github.com/veloute/server/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio frames
)

type WriteData struct {
	// Type is the websocket frame type, websocket.TextMessage or
	// websocket.BinaryMessage.
	Type    int
	Payload []byte
}

// Client is a middleman between one websocket connection and its session
// machine. The connection identity is the session identity.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. Closed exactly once, by
	// closeSend; the hub is the only caller outside of tests.
	send   chan WriteData
	sendMu sync.Mutex
	closed bool

	clientID string

	machine *session.Machine

	logger *zap.Logger
}

// closeSend closes the outbound channel once. Emitters that race a close see
// the closed flag and drop their message instead of panicking.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump pumps messages from the websocket connection to the session.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processControlMessage(message)
		case websocket.BinaryMessage:
			c.processAudioFrame(message)
		default:
			c.logger.Warn("Received unknown frame type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the session to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processControlMessage dispatches an inbound JSON command to the machine.
// Protocol violations are answered with a rejection event, never by closing
// the session.
func (c *Client) processControlMessage(raw []byte) {
	msg, err := ParseControlMessage(raw)
	if err != nil {
		c.logger.Warn("Rejected malformed control message", zap.Error(err))
		c.sendJSON(NewErrorMessage(session.ErrorKindProtocolViolation, err.Error()))
		return
	}

	switch msg.Type {
	case MessageTypeStartCapture:
		err = c.machine.StartCapture()
	case MessageTypeStopCapture:
		err = c.machine.StopCapture()
	case MessageTypeClearHistory:
		err = c.machine.ClearHistory()
	case MessageTypePlaybackFinished:
		c.machine.PlaybackFinished(msg.RequestID)
	case MessageTypePing:
		c.sendJSON(BaseMessage{Type: MessageTypePong, Timestamp: time.Now().Format(time.RFC3339)})
	}

	if err != nil {
		c.logger.Info("Rejected session command",
			zap.String("clientID", c.clientID),
			zap.String("command", string(msg.Type)),
			zap.Error(err))
		c.sendJSON(NewErrorMessage(session.ErrorKindProtocolViolation, err.Error()))
	}
}

// processAudioFrame forwards captured audio to the machine. Frames outside
// the capture window are rejected without side effects.
func (c *Client) processAudioFrame(data []byte) {
	if err := c.machine.PushAudio(data); err != nil {
		if errors.Is(err, session.ErrNotCapturing) {
			c.sendJSON(NewErrorMessage(session.ErrorKindProtocolViolation, err.Error()))
			return
		}
		c.logger.Error("Failed to buffer audio frame",
			zap.String("clientID", c.clientID),
			zap.Error(err))
	}
}

// sendJSON queues an outbound text frame. A full send buffer drops the
// connection rather than blocking the session; the read pump then unregisters
// the client and the hub closes the channel.
func (c *Client) sendJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound message", zap.Error(err))
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Send buffer full, dropping connection",
			zap.String("clientID", c.clientID))
		c.conn.Close()
	}
}

// The client is the machine's emitter: session events become outbound
// frames on this connection.
var _ session.Emitter = (*Client)(nil)

func (c *Client) SessionState(state session.State) {
	c.sendJSON(SessionStateMessage{
		BaseMessage: newBase(MessageTypeSessionState),
		State:       string(state),
	})
}

func (c *Client) TranscriptionResult(text, language string, err error) {
	msg := TranscriptionResultMessage{
		BaseMessage: newBase(MessageTypeTranscriptionResult),
		Text:        text,
		Language:    language,
	}
	if err != nil {
		msg.Error = err.Error()
	}
	c.sendJSON(msg)
}

func (c *Client) AssistantText(text string, payload any) {
	c.sendJSON(AssistantTextMessage{
		BaseMessage: newBase(MessageTypeAssistantText),
		Text:        text,
		Payload:     payload,
	})
}

func (c *Client) AssistantAudioChunk(chunk audio.Chunk) {
	c.sendJSON(AssistantAudioChunkMessage{
		BaseMessage: newBase(MessageTypeAssistantAudioChunk),
		RequestID:   chunk.ResponseID,
		Seq:         chunk.Seq,
		Samples:     chunk.Samples,
		SampleRate:  chunk.SampleRate,
		IsFinal:     chunk.IsFinal,
	})
}

func (c *Client) SessionError(kind, message string) {
	c.sendJSON(NewErrorMessage(kind, message))
}

func (c *Client) HistoryCleared() {
	c.sendJSON(BaseMessage{Type: MessageTypeHistoryCleared, Timestamp: time.Now().Format(time.RFC3339)})
}
