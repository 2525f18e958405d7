package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
	"github.com/veloute/server/internal/audio"
	"github.com/veloute/server/internal/router"
)

// recorder captures emitted events for assertions.
type recorder struct {
	mu            sync.Mutex
	states        []State
	transcripts   []string
	transcriptErr []error
	replies       []string
	chunks        []audio.Chunk
	errors        []string
	cleared       int
}

func (r *recorder) SessionState(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder) TranscriptionResult(text, language string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts = append(r.transcripts, text)
	r.transcriptErr = append(r.transcriptErr, err)
}

func (r *recorder) AssistantText(text string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, text)
}

func (r *recorder) AssistantAudioChunk(chunk audio.Chunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunk)
}

func (r *recorder) SessionError(kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, kind)
}

func (r *recorder) HistoryCleared() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func (r *recorder) snapshotChunks() []audio.Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audio.Chunk, len(r.chunks))
	copy(out, r.chunks)
	return out
}

func (r *recorder) errorKinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.errors))
	copy(out, r.errors)
	return out
}

// Collaborator stubs.

type stubTranscriber struct {
	text     string
	language string
	err      error
	delay    time.Duration
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig) (repositories.Transcription, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return repositories.Transcription{}, ctx.Err()
		}
	}
	if s.err != nil {
		return repositories.Transcription{}, s.err
	}
	return repositories.Transcription{Text: s.text, Language: s.language}, nil
}

type stubDispatcher struct {
	result router.Result
	err    error
}

func (s *stubDispatcher) Route(ctx context.Context, transcript string, rctx router.Context) (router.Result, error) {
	return s.result, s.err
}

type stubSynthesizer struct {
	buffers [][]byte
	err     error
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string, language string) (<-chan []byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(chan []byte, len(s.buffers))
	for _, b := range s.buffers {
		out <- b
	}
	close(out)
	return out, nil
}

func (s *stubSynthesizer) SampleRate() int { return 16000 }

func newTestMachine(t *testing.T, collab Collaborators) (*Machine, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := NewMachine("test-session", collab, rec, Config{}, zap.NewNop())
	return m, rec
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestFullPipelineHappyPath(t *testing.T) {
	collab := Collaborators{
		Transcriber: &stubTranscriber{text: "what is on the menu", language: "en"},
		Dispatcher:  &stubDispatcher{result: router.Result{Text: "We have three sections today."}},
		Synthesizer: &stubSynthesizer{buffers: [][]byte{{1, 2}, {3, 4}, {5, 6}}},
	}
	m, rec := newTestMachine(t, collab)

	if err := m.StartCapture(); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	if err := m.PushAudio([]byte{0, 1, 2, 3}); err != nil {
		t.Fatalf("PushAudio failed: %v", err)
	}
	if err := m.StopCapture(); err != nil {
		t.Fatalf("StopCapture failed: %v", err)
	}

	// 3 PCM chunks plus the terminating one.
	waitFor(t, func() bool { return len(rec.snapshotChunks()) == 4 })

	chunks := rec.snapshotChunks()
	for i, chunk := range chunks {
		if chunk.Seq != i {
			t.Errorf("Expected chunk seq %d, got %d", i, chunk.Seq)
		}
		if chunk.ResponseID != chunks[0].ResponseID {
			t.Errorf("Chunk %d carries a different response id", i)
		}
	}
	finals := 0
	for _, chunk := range chunks {
		if chunk.IsFinal {
			finals++
		}
	}
	if finals != 1 {
		t.Errorf("Expected exactly one final chunk, got %d", finals)
	}
	if !chunks[len(chunks)-1].IsFinal {
		t.Error("Expected the last chunk to be the final one")
	}
	if len(chunks[len(chunks)-1].Samples) != 0 {
		t.Error("Expected the final chunk to carry no samples")
	}

	if m.State() != StateSpeaking {
		t.Errorf("Expected state %s after streaming, got %s", StateSpeaking, m.State())
	}

	// Client reports playback done; the session becomes idle again.
	m.PlaybackFinished(chunks[0].ResponseID)
	if m.State() != StateIdle {
		t.Errorf("Expected state %s after playback, got %s", StateIdle, m.State())
	}

	history := m.History()
	if len(history) != 2 {
		t.Fatalf("Expected 2 turns in history, got %d", len(history))
	}
	if history[0].Role != entities.RoleUser || history[0].Content != "what is on the menu" {
		t.Errorf("Unexpected user turn: %+v", history[0])
	}
	if history[1].Role != entities.RoleAssistant || history[1].Content != "We have three sections today." {
		t.Errorf("Unexpected assistant turn: %+v", history[1])
	}
}

func TestStartCaptureRejectedWhileBusy(t *testing.T) {
	collab := Collaborators{
		Transcriber: &stubTranscriber{text: "hello", delay: 200 * time.Millisecond},
		Dispatcher:  &stubDispatcher{result: router.Result{Text: "hi"}},
		Synthesizer: &stubSynthesizer{buffers: [][]byte{{1}}},
	}
	m, _ := newTestMachine(t, collab)

	if err := m.StartCapture(); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	if err := m.StartCapture(); !errors.Is(err, ErrNotIdle) {
		t.Errorf("Expected ErrNotIdle for second StartCapture, got %v", err)
	}

	m.PushAudio([]byte{1})
	if err := m.StopCapture(); err != nil {
		t.Fatalf("StopCapture failed: %v", err)
	}

	// Single-flight: no new capture while transcription is in flight.
	if err := m.StartCapture(); !errors.Is(err, ErrNotIdle) {
		t.Errorf("Expected ErrNotIdle mid-pipeline, got %v", err)
	}
}

func TestAudioOutsideCaptureWindowRejected(t *testing.T) {
	collab := Collaborators{
		Transcriber: &stubTranscriber{text: "hello"},
		Dispatcher:  &stubDispatcher{result: router.Result{Text: "hi"}},
		Synthesizer: &stubSynthesizer{buffers: [][]byte{{1}}},
	}
	m, _ := newTestMachine(t, collab)

	if err := m.PushAudio([]byte{1}); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("Expected ErrNotCapturing while idle, got %v", err)
	}
	if err := m.StopCapture(); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("Expected ErrNotCapturing for StopCapture while idle, got %v", err)
	}
}

func TestRecoverableTranscriptionFailureLeavesNoTurn(t *testing.T) {
	collab := Collaborators{
		Transcriber: &stubTranscriber{err: repositories.ErrUnintelligibleAudio},
		Dispatcher:  &stubDispatcher{result: router.Result{Text: "unused"}},
		Synthesizer: &stubSynthesizer{buffers: [][]byte{{1}}},
	}
	m, rec := newTestMachine(t, collab)

	m.StartCapture()
	m.PushAudio([]byte{1})
	m.StopCapture()

	waitFor(t, func() bool { return m.State() == StateIdle })

	if got := m.History(); len(got) != 0 {
		t.Errorf("Expected empty history after recoverable failure, got %d turns", len(got))
	}
	kinds := rec.errorKinds()
	if len(kinds) != 1 || kinds[0] != ErrorKindRecoverableInput {
		t.Errorf("Expected one recoverable_input error, got %v", kinds)
	}
	if len(rec.snapshotChunks()) != 0 {
		t.Error("Expected no audio chunks after recoverable failure")
	}
}

func TestCollaboratorFailureRecordsErrorTurn(t *testing.T) {
	collab := Collaborators{
		Transcriber: &stubTranscriber{text: "tell me a story"},
		Dispatcher:  &stubDispatcher{err: fmt.Errorf("model is down")},
		Synthesizer: &stubSynthesizer{buffers: [][]byte{{1}}},
	}
	m, rec := newTestMachine(t, collab)

	m.StartCapture()
	m.PushAudio([]byte{1})
	m.StopCapture()

	waitFor(t, func() bool { return m.State() == StateIdle })

	history := m.History()
	if len(history) != 2 {
		t.Fatalf("Expected user turn plus error turn, got %d turns", len(history))
	}
	if history[1].Role != entities.RoleAssistant || history[1].Content != errorReplyText {
		t.Errorf("Expected error reply turn, got %+v", history[1])
	}
	kinds := rec.errorKinds()
	if len(kinds) != 1 || kinds[0] != ErrorKindCollaboratorFailure {
		t.Errorf("Expected one collaborator_failure error, got %v", kinds)
	}

	// Session survives: a new capture starts cleanly.
	if err := m.StartCapture(); err != nil {
		t.Errorf("Expected session usable after failure, got %v", err)
	}
}

func TestSynthesisFailureRecordsErrorTurn(t *testing.T) {
	collab := Collaborators{
		Transcriber: &stubTranscriber{text: "hello"},
		Dispatcher:  &stubDispatcher{result: router.Result{Text: "hi"}},
		Synthesizer: &stubSynthesizer{err: fmt.Errorf("voice service down")},
	}
	m, rec := newTestMachine(t, collab)

	m.StartCapture()
	m.PushAudio([]byte{1})
	m.StopCapture()

	waitFor(t, func() bool { return m.State() == StateIdle })

	history := m.History()
	// User turn, assistant reply turn, then the error turn.
	if len(history) != 3 {
		t.Fatalf("Expected 3 turns, got %d", len(history))
	}
	if history[2].Content != errorReplyText {
		t.Errorf("Expected error reply as last turn, got %q", history[2].Content)
	}
	kinds := rec.errorKinds()
	if len(kinds) != 1 || kinds[0] != ErrorKindCollaboratorFailure {
		t.Errorf("Expected collaborator_failure, got %v", kinds)
	}
}

func TestClearHistoryOnlyWhileIdle(t *testing.T) {
	collab := Collaborators{
		Transcriber: &stubTranscriber{text: "hello", delay: 200 * time.Millisecond},
		Dispatcher:  &stubDispatcher{result: router.Result{Text: "hi"}},
		Synthesizer: &stubSynthesizer{buffers: [][]byte{{1}}},
	}
	m, rec := newTestMachine(t, collab)

	if err := m.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory while idle failed: %v", err)
	}
	if rec.cleared != 1 {
		t.Errorf("Expected 1 cleared event, got %d", rec.cleared)
	}

	m.StartCapture()
	if err := m.ClearHistory(); !errors.Is(err, ErrClearBusy) {
		t.Errorf("Expected ErrClearBusy while capturing, got %v", err)
	}

	m.PushAudio([]byte{1})
	m.StopCapture()
	if err := m.ClearHistory(); !errors.Is(err, ErrClearBusy) {
		t.Errorf("Expected ErrClearBusy while transcribing, got %v", err)
	}
}

func TestStalePlaybackFinishedIgnored(t *testing.T) {
	collab := Collaborators{
		Transcriber: &stubTranscriber{text: "hello"},
		Dispatcher:  &stubDispatcher{result: router.Result{Text: "hi"}},
		Synthesizer: &stubSynthesizer{buffers: [][]byte{{1}}},
	}
	m, rec := newTestMachine(t, collab)

	m.StartCapture()
	m.PushAudio([]byte{1})
	m.StopCapture()

	waitFor(t, func() bool { return len(rec.snapshotChunks()) == 2 })

	// Wrong id: still speaking.
	m.PlaybackFinished("not-the-request")
	if m.State() != StateSpeaking {
		t.Errorf("Expected stale playback report to be ignored, state is %s", m.State())
	}

	requestID := rec.snapshotChunks()[0].ResponseID
	m.PlaybackFinished(requestID)
	if m.State() != StateIdle {
		t.Errorf("Expected idle after playback, got %s", m.State())
	}

	// Duplicate report is a no-op.
	m.PlaybackFinished(requestID)
	if m.State() != StateIdle {
		t.Errorf("Expected duplicate playback report to be ignored, state is %s", m.State())
	}
}

func TestCaptureLimitForcesStop(t *testing.T) {
	collab := Collaborators{
		Transcriber: &stubTranscriber{text: "hello"},
		Dispatcher:  &stubDispatcher{result: router.Result{Text: "hi"}},
		Synthesizer: &stubSynthesizer{buffers: [][]byte{{1}}},
	}
	rec := &recorder{}
	m := NewMachine("test-session", collab, rec, Config{CaptureLimit: 50 * time.Millisecond}, zap.NewNop())

	m.StartCapture()
	m.PushAudio([]byte{1})

	// Never call StopCapture; the limit should move the pipeline along.
	waitFor(t, func() bool { return m.State() == StateSpeaking })

	if len(m.History()) != 2 {
		t.Errorf("Expected completed pipeline after forced stop, got %d turns", len(m.History()))
	}
}

func TestLanguageCarriesOver(t *testing.T) {
	collab := Collaborators{
		Transcriber: &stubTranscriber{text: "bonjour", language: "fr"},
		Dispatcher:  &stubDispatcher{result: router.Result{Text: "Bonjour!"}},
		Synthesizer: &stubSynthesizer{buffers: [][]byte{{1}}},
	}
	m, _ := newTestMachine(t, collab)

	if m.Language() != "en" {
		t.Errorf("Expected default language en, got %s", m.Language())
	}

	m.StartCapture()
	m.PushAudio([]byte{1})
	m.StopCapture()

	waitFor(t, func() bool { return m.State() == StateSpeaking })

	if m.Language() != "fr" {
		t.Errorf("Expected detected language fr, got %s", m.Language())
	}
}

func TestCloseDropsInFlightRequest(t *testing.T) {
	collab := Collaborators{
		Transcriber: &stubTranscriber{text: "hello", delay: 100 * time.Millisecond},
		Dispatcher:  &stubDispatcher{result: router.Result{Text: "hi"}},
		Synthesizer: &stubSynthesizer{buffers: [][]byte{{1}}},
	}
	m, rec := newTestMachine(t, collab)

	m.StartCapture()
	m.PushAudio([]byte{1})
	m.StopCapture()
	m.Close()

	// Give the straggling pipeline time to finish; its callbacks must find a
	// mismatched request id and drop themselves.
	time.Sleep(300 * time.Millisecond)

	if len(m.History()) != 0 {
		t.Errorf("Expected no turns after close, got %d", len(m.History()))
	}
	if len(rec.snapshotChunks()) != 0 {
		t.Errorf("Expected no chunks after close, got %d", len(rec.snapshotChunks()))
	}
}
