package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
	"github.com/veloute/server/internal/audio"
	"github.com/veloute/server/internal/router"
)

// State is the session's position in the capture-to-playback pipeline.
type State string

const (
	StateIdle         State = "idle"
	StateCapturing    State = "capturing"
	StateTranscribing State = "transcribing"
	StateRouting      State = "routing"
	StateSynthesizing State = "synthesizing"
	StateSpeaking     State = "speaking"
)

// Protocol violations. These reject the offending request without touching
// the session.
var (
	ErrNotIdle      = errors.New("session is busy with another request")
	ErrNotCapturing = errors.New("session is not capturing")
	ErrClearBusy    = errors.New("history can only be cleared while idle")
)

const errorReplyText = "I could not process that, please try again."

// Emitter receives the session's outbound events. The websocket layer
// implements it; tests implement it with recorders.
type Emitter interface {
	SessionState(state State)
	TranscriptionResult(text, language string, err error)
	AssistantText(text string, payload any)
	AssistantAudioChunk(chunk audio.Chunk)
	SessionError(kind, message string)
	HistoryCleared()
}

// Dispatcher routes a transcript to a reply. *router.Router satisfies it.
type Dispatcher interface {
	Route(ctx context.Context, transcript string, rctx router.Context) (router.Result, error)
}

// Error kinds surfaced through Emitter.SessionError.
const (
	ErrorKindRecoverableInput    = "recoverable_input"
	ErrorKindCollaboratorFailure = "collaborator_failure"
	ErrorKindProtocolViolation   = "protocol_violation"
)

// Config tunes one session machine.
type Config struct {
	// CaptureLimit force-stops capture after this long. Zero disables it.
	CaptureLimit time.Duration
	// PipelineTimeout bounds one full transcribe-route-synthesize run.
	PipelineTimeout time.Duration
	// DefaultLanguage is used until the first successful transcription.
	DefaultLanguage string
	// SampleRate and Encoding describe the captured audio.
	SampleRate int
	Encoding   string
}

func (c *Config) applyDefaults() {
	if c.CaptureLimit == 0 {
		c.CaptureLimit = 30 * time.Second
	}
	if c.PipelineTimeout == 0 {
		c.PipelineTimeout = 60 * time.Second
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.Encoding == "" {
		c.Encoding = "LINEAR16"
	}
}

// Collaborators are the external services one session talks to.
type Collaborators struct {
	Transcriber repositories.Transcriber
	Dispatcher  Dispatcher
	Synthesizer repositories.Synthesizer
}

// Machine sequences one client's voice conversation: capture, transcribe,
// route, synthesize, play. A session processes at most one utterance
// end-to-end at a time; every asynchronous completion carries the request id
// it was issued under, and completions whose id no longer matches the
// pending one are dropped. That id check is the sole cancellation
// mechanism: superseding a request silences the old one's effects, but side
// effects already taken (such as a written reservation) stay.
type Machine struct {
	id     string
	cfg    Config
	collab Collaborators
	emit   Emitter
	logger *zap.Logger

	mu         sync.Mutex
	state      State
	pendingID  string
	language   string
	history    *History
	captureBuf bytes.Buffer
	captureEnd *time.Timer
}

// NewMachine creates an idle session machine.
func NewMachine(id string, collab Collaborators, emit Emitter, cfg Config, logger *zap.Logger) *Machine {
	cfg.applyDefaults()
	return &Machine{
		id:       id,
		cfg:      cfg,
		collab:   collab,
		emit:     emit,
		logger:   logger,
		state:    StateIdle,
		language: cfg.DefaultLanguage,
		history:  NewHistory(),
	}
}

// ID returns the session identity (the connection identity).
func (m *Machine) ID() string { return m.id }

// State returns the current pipeline state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Language returns the last detected language.
func (m *Machine) Language() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.language
}

// History returns a snapshot of the conversation so far.
func (m *Machine) History() []entities.Turn {
	return m.history.Snapshot()
}

// StartCapture opens the microphone. Legal only while idle; any other state
// rejects the request, which is what disables the mic for the rest of the
// pipeline.
func (m *Machine) StartCapture() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return fmt.Errorf("%w: state=%s", ErrNotIdle, m.state)
	}

	m.pendingID = uuid.New().String()
	m.captureBuf.Reset()
	m.setState(StateCapturing)

	requestID := m.pendingID
	m.captureEnd = time.AfterFunc(m.cfg.CaptureLimit, func() {
		m.captureTimeout(requestID)
	})

	m.logger.Info("Capture started",
		zap.String("sessionID", m.id),
		zap.String("requestID", requestID))
	return nil
}

// PushAudio appends captured audio bytes. Audio outside the capture window
// is rejected.
func (m *Machine) PushAudio(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateCapturing {
		return fmt.Errorf("%w: state=%s", ErrNotCapturing, m.state)
	}
	m.captureBuf.Write(data)
	return nil
}

// StopCapture closes the capture window and hands the clip to the pipeline.
func (m *Machine) StopCapture() error {
	m.mu.Lock()
	if m.state != StateCapturing {
		m.mu.Unlock()
		return fmt.Errorf("%w: state=%s", ErrNotCapturing, m.state)
	}
	m.beginTranscribing()
	return nil
}

// captureTimeout is the capture limit firing. The request id guard makes a
// late timer for an already-finished capture a no-op.
func (m *Machine) captureTimeout(requestID string) {
	m.mu.Lock()
	if m.state != StateCapturing || m.pendingID != requestID {
		m.mu.Unlock()
		return
	}
	m.logger.Info("Capture limit reached",
		zap.String("sessionID", m.id),
		zap.String("requestID", requestID))
	m.beginTranscribing()
}

// beginTranscribing moves Capturing to Transcribing and launches the
// pipeline run. Called with the lock held; releases it.
func (m *Machine) beginTranscribing() {
	if m.captureEnd != nil {
		m.captureEnd.Stop()
		m.captureEnd = nil
	}
	clip := make([]byte, m.captureBuf.Len())
	copy(clip, m.captureBuf.Bytes())
	m.captureBuf.Reset()
	requestID := m.pendingID
	m.setState(StateTranscribing)
	m.mu.Unlock()

	go m.run(requestID, clip)
}

// ClearHistory wipes the conversation. Only legal while idle so that a
// straggling in-flight callback cannot append to a history the user
// believes was wiped.
func (m *Machine) ClearHistory() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return fmt.Errorf("%w: state=%s", ErrClearBusy, m.state)
	}
	m.history.Clear()
	m.emit.HistoryCleared()
	m.logger.Info("History cleared", zap.String("sessionID", m.id))
	return nil
}

// PlaybackFinished is the client reporting its playback queue drained.
// Stale or duplicate reports are ignored.
func (m *Machine) PlaybackFinished(requestID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateSpeaking || m.pendingID != requestID {
		return
	}
	m.pendingID = ""
	m.setState(StateIdle)
	m.logger.Info("Playback finished",
		zap.String("sessionID", m.id),
		zap.String("requestID", requestID))
}

// Close abandons any in-flight request. Late callbacks find a mismatched
// request id and drop themselves.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.captureEnd != nil {
		m.captureEnd.Stop()
		m.captureEnd = nil
	}
	m.pendingID = ""
	m.state = StateIdle
}

// run executes one pipeline pass: transcribe, route, synthesize, stream.
// Each stage revalidates the request id before mutating the session.
func (m *Machine) run(requestID string, clip []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PipelineTimeout)
	defer cancel()

	transcription, err := m.collab.Transcriber.Transcribe(ctx, clip, repositories.AudioConfig{
		SampleRate: m.cfg.SampleRate,
		Encoding:   m.cfg.Encoding,
		Language:   m.Language(),
	})

	snapshot, language, ok := m.completeTranscription(requestID, transcription, err)
	if !ok {
		return
	}

	result, err := m.collab.Dispatcher.Route(ctx, transcription.Text, router.Context{
		History:  snapshot,
		Language: language,
	})
	if err != nil {
		m.failRequest(requestID, fmt.Errorf("routing failed: %w", err))
		return
	}

	if !m.completeRouting(requestID, result) {
		return
	}

	chunks, err := m.collab.Synthesizer.Synthesize(ctx, result.Text, language)
	if err != nil {
		m.failRequest(requestID, fmt.Errorf("synthesis failed: %w", err))
		return
	}

	stream := audio.NewStream(requestID, m.collab.Synthesizer.SampleRate())
	started := false
	for samples := range chunks {
		if !m.beginSpeakingOnce(requestID, &started) {
			return
		}
		chunk, err := stream.Next(samples)
		if err != nil {
			m.failRequest(requestID, err)
			return
		}
		m.emit.AssistantAudioChunk(chunk)
	}
	if !m.beginSpeakingOnce(requestID, &started) {
		return
	}
	final, err := stream.Finish()
	if err != nil {
		m.failRequest(requestID, err)
		return
	}
	m.emit.AssistantAudioChunk(final)
}

// completeTranscription applies a transcription outcome. Returns the
// history snapshot for routing, or ok=false when the pipeline should stop.
func (m *Machine) completeTranscription(requestID string, tr repositories.Transcription, err error) ([]entities.Turn, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingID != requestID || m.state != StateTranscribing {
		m.logger.Debug("Dropping stale transcription result",
			zap.String("sessionID", m.id),
			zap.String("requestID", requestID))
		return nil, "", false
	}

	if err != nil {
		if repositories.RecoverableTranscriptionError(err) {
			// Bad input, not a broken session: report and return to idle
			// without recording a turn.
			m.emit.TranscriptionResult("", m.language, err)
			m.emit.SessionError(ErrorKindRecoverableInput, err.Error())
			m.resetToIdle()
			return nil, "", false
		}
		m.failRequestLocked(fmt.Errorf("transcription failed: %w", err))
		return nil, "", false
	}

	if tr.Text == "" {
		m.emit.TranscriptionResult("", m.language, repositories.ErrUnintelligibleAudio)
		m.emit.SessionError(ErrorKindRecoverableInput, repositories.ErrUnintelligibleAudio.Error())
		m.resetToIdle()
		return nil, "", false
	}

	if tr.Language != "" {
		m.language = tr.Language
	}
	m.history.Append(entities.NewTurn(entities.RoleUser, tr.Text))
	m.emit.TranscriptionResult(tr.Text, m.language, nil)
	m.setState(StateRouting)
	return m.history.Snapshot(), m.language, true
}

// completeRouting records the assistant turn and moves to synthesis.
func (m *Machine) completeRouting(requestID string, result router.Result) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingID != requestID || m.state != StateRouting {
		m.logger.Debug("Dropping stale routing result",
			zap.String("sessionID", m.id),
			zap.String("requestID", requestID))
		return false
	}
	m.history.Append(entities.NewTurn(entities.RoleAssistant, result.Text))
	m.emit.AssistantText(result.Text, result.Payload)
	m.setState(StateSynthesizing)
	return true
}

// beginSpeakingOnce transitions Synthesizing to Speaking when the first
// chunk is ready, and verifies the request is still current on every
// subsequent chunk.
func (m *Machine) beginSpeakingOnce(requestID string, started *bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingID != requestID {
		return false
	}
	if !*started {
		if m.state != StateSynthesizing {
			return false
		}
		m.setState(StateSpeaking)
		*started = true
	}
	return m.state == StateSpeaking
}

// failRequest converts a collaborator failure into an assistant error turn
// and returns the session to idle. The failure is local to this request.
func (m *Machine) failRequest(requestID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingID != requestID {
		return
	}
	m.failRequestLocked(err)
}

func (m *Machine) failRequestLocked(err error) {
	m.logger.Error("Pipeline request failed",
		zap.String("sessionID", m.id),
		zap.String("requestID", m.pendingID),
		zap.Error(err))
	m.history.Append(entities.NewTurn(entities.RoleAssistant, errorReplyText))
	m.emit.AssistantText(errorReplyText, nil)
	m.emit.SessionError(ErrorKindCollaboratorFailure, err.Error())
	m.resetToIdle()
}

// resetToIdle clears the pending request. Called with the lock held.
func (m *Machine) resetToIdle() {
	m.pendingID = ""
	m.setState(StateIdle)
}

// setState mutates the state and notifies the client. Called with the lock
// held.
func (m *Machine) setState(s State) {
	m.state = s
	m.emit.SessionState(s)
}
