package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Inbound control messages
const (
	MessageTypeStartCapture     MessageType = "start_capture"
	MessageTypeStopCapture      MessageType = "stop_capture"
	MessageTypeClearHistory     MessageType = "clear_history"
	MessageTypePlaybackFinished MessageType = "playback_finished"
	MessageTypePing             MessageType = "ping"
)

// Outbound messages
const (
	MessageTypeSessionState        MessageType = "session_state"
	MessageTypeTranscriptionResult MessageType = "transcription_result"
	MessageTypeAssistantText       MessageType = "assistant_text"
	MessageTypeAssistantAudioChunk MessageType = "assistant_audio_chunk"
	MessageTypeHistoryCleared      MessageType = "history_cleared"
	MessageTypeError               MessageType = "error"
	MessageTypePong                MessageType = "pong"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// ControlMessage is an inbound session command. Captured audio itself
// travels as binary frames, not JSON.
type ControlMessage struct {
	BaseMessage
	RequestID string `json:"request_id,omitempty"`
}

// SessionStateMessage reports a state transition to the client
type SessionStateMessage struct {
	BaseMessage
	State string `json:"state"`
}

// TranscriptionResultMessage carries the transcript of the captured clip
type TranscriptionResultMessage struct {
	BaseMessage
	Text     string `json:"text"`
	Language string `json:"language"`
	Error    string `json:"error,omitempty"`
}

// AssistantTextMessage carries the routed reply, with optional structured
// domain data passed through unmodified.
type AssistantTextMessage struct {
	BaseMessage
	Text    string `json:"text"`
	Payload any    `json:"payload,omitempty"`
}

// AssistantAudioChunkMessage is one ordered fragment of synthesized speech.
// Samples are base64-encoded PCM.
type AssistantAudioChunkMessage struct {
	BaseMessage
	RequestID  string `json:"request_id"`
	Seq        int    `json:"sequence_number"`
	Samples    []byte `json:"samples"`
	SampleRate int    `json:"sample_rate"`
	IsFinal    bool   `json:"is_final"`
}

// ErrorMessage reports a rejected or failed operation
type ErrorMessage struct {
	BaseMessage
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ParseControlMessage validates an inbound text frame.
func ParseControlMessage(raw []byte) (*ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}
	switch msg.Type {
	case MessageTypeStartCapture, MessageTypeStopCapture, MessageTypeClearHistory, MessageTypePing:
	case MessageTypePlaybackFinished:
		if msg.RequestID == "" {
			return nil, fmt.Errorf("playback_finished requires request_id")
		}
	default:
		return nil, fmt.Errorf("unsupported message type: %s", msg.Type)
	}
	return &msg, nil
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{
		Type:      t,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// NewErrorMessage creates a standardized error message
func NewErrorMessage(kind, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Kind:        kind,
		Message:     message,
	}
}
