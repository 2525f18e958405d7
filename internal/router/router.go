package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
)

// ErrCannotComplete is returned by a handler whose predicate matched but
// which cannot actually finish the request; the router then falls back to
// the general model.
var ErrCannotComplete = errors.New("handler cannot complete request")

// ErrEmptyTranscript is returned when Route is called with no text.
var ErrEmptyTranscript = errors.New("empty transcript")

// Context carries the conversation state a handler may read. History is a
// snapshot; handlers never observe concurrent mutation.
type Context struct {
	History  []entities.Turn
	Language string
}

// Result is the aggregated reply for one routed transcript. Payload is
// optional structured domain data passed through to the client unmodified.
type Result struct {
	Text    string `json:"text"`
	Payload any    `json:"payload,omitempty"`
}

// Handler is a domain unit able to judge and act on a subset of transcripts.
// CanHandle must be side-effect free and stable for a given transcript;
// Execute is called at most once per routed request.
type Handler interface {
	Name() string
	CanHandle(transcript string) bool
	Execute(ctx context.Context, transcript string, rctx Context) (Result, error)
}

// Router classifies a transcript and dispatches it to the first registered
// handler whose predicate matches. Registration order is the tie-break
// policy: when several handlers could apply, the one registered first wins.
// When nothing matches, or the matched handler cannot complete, the general
// model answers instead.
type Router struct {
	handlers []Handler
	model    repositories.GeneralModel
	logger   *zap.Logger
}

// New creates a router with the given fallback model.
func New(model repositories.GeneralModel, logger *zap.Logger) *Router {
	return &Router{
		model:  model,
		logger: logger,
	}
}

// Register appends a handler. Order of registration is dispatch priority.
func (r *Router) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Handlers returns the registered handler names in dispatch order.
func (r *Router) Handlers() []string {
	names := make([]string, 0, len(r.handlers))
	for _, h := range r.handlers {
		names = append(names, h.Name())
	}
	return names
}

// Route dispatches one transcript and returns the aggregated reply. The
// caller owns the history; the router never mutates it.
func (r *Router) Route(ctx context.Context, transcript string, rctx Context) (Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return Result{}, ErrEmptyTranscript
	}

	for _, h := range r.handlers {
		if !h.CanHandle(transcript) {
			continue
		}
		r.logger.Info("Routing transcript to handler",
			zap.String("handler", h.Name()),
			zap.String("transcript", transcript))

		result, err := h.Execute(ctx, transcript, rctx)
		if err == nil {
			return result, nil
		}
		r.logger.Warn("Handler could not complete, falling back to general model",
			zap.String("handler", h.Name()),
			zap.Error(err))
		break
	}

	return r.fallback(ctx, transcript, rctx)
}

func (r *Router) fallback(ctx context.Context, transcript string, rctx Context) (Result, error) {
	text, err := r.model.Reply(ctx, transcript, rctx.History)
	if err != nil {
		return Result{}, fmt.Errorf("general model failed: %w", err)
	}
	return Result{Text: text}, nil
}
