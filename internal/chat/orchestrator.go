// Package chat runs a retrieval-grounded chat turn: retrieve context, prompt the model,
// stream the answer and record the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bookmarkai/bookmark-server/internal/contextwindow"
	"github.com/bookmarkai/bookmark-server/internal/llm"
	"github.com/bookmarkai/bookmark-server/internal/metrics"
	"github.com/bookmarkai/bookmark-server/internal/model"
	"github.com/bookmarkai/bookmark-server/internal/services"
)

// ErrConsumerGone ends a turn whose sink stopped accepting events.
var ErrConsumerGone = errors.New("chat consumer disconnected")

// State is a step of a turn.
type State int

const (
	StateRetrieving State = iota
	StatePrompting
	StateStreaming
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRetrieving:
		return "retrieving"
	case StatePrompting:
		return "prompting"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Turn is one question from an owner. TurnID makes retries idempotent; an empty
// TurnID gets a fresh one. Without a ConversationID the turn is stored as a
// standalone question and answer.
type Turn struct {
	OwnerID         string
	Question        string
	ConversationID  string
	SelectedContext []string
	TurnID          string
}

// Retriever builds the context window for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question, ownerID string, selected []string) (model.ContextWindow, error)
}

// History records turns.
type History interface {
	AppendMessage(ctx context.Context, ownerID, conversationID string, msg model.ConversationMessage, messageID string) (bool, error)
	StoreExchange(ctx context.Context, ownerID, exchangeID, question, answer string, items []model.RetrievedItem) (string, error)
}

// DefaultDrainTimeout bounds a generation after its consumer is gone.
const DefaultDrainTimeout = 2 * time.Minute

// Orchestrator drives turns. It is safe for concurrent use; turns share no state.
type Orchestrator struct {
	retriever Retriever
	gen       llm.Generator
	history   History
	log       zerolog.Logger
	drain     time.Duration
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithDrainTimeout bounds how long generation may run once started.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.drain = d
		}
	}
}

// New returns an Orchestrator retrieving with r, generating with g and persisting through h.
func New(r Retriever, g llm.Generator, h History, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{retriever: r, gen: g, history: h, log: log, drain: DefaultDrainTimeout}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes t and delivers its events to sink. Errors returned before the first
// event mean nothing was streamed; the caller can still report them as a status.
// After streaming starts, the turn always ends with exactly one Done event.
func (o *Orchestrator) Run(ctx context.Context, t Turn, sink Sink) error {
	if t.OwnerID == "" {
		return model.Invalid("owner id is required")
	}
	if strings.TrimSpace(t.Question) == "" {
		return model.Invalid("question is required")
	}
	if t.TurnID == "" {
		t.TurnID = uuid.New().String()
	}
	log := o.log.With().Str("ownerId", t.OwnerID).Str("turnId", t.TurnID).Str("conversationId", t.ConversationID).Logger()

	if t.ConversationID != "" {
		human := model.ConversationMessage{Role: model.RoleHuman, Content: t.Question}
		if _, err := o.history.AppendMessage(ctx, t.OwnerID, t.ConversationID, human, services.MessageID(t.ConversationID, t.TurnID, model.RoleHuman)); err != nil {
			return o.fail(log, StateRetrieving, "rejected", err)
		}
	}

	window, err := o.retriever.Retrieve(ctx, t.Question, t.OwnerID, t.SelectedContext)
	if err != nil {
		return o.fail(log, StateRetrieving, "retrieval_error", err)
	}

	prompt, err := RenderPrompt(t.Question, contextwindow.Format(window))
	if err != nil {
		return o.fail(log, StatePrompting, "prompt_error", err)
	}

	// generation outlives the request so a disconnect drains rather than aborts
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.drain)
	defer cancel()
	stream, err := o.gen.Stream(genCtx, prompt)
	if err != nil {
		return o.fail(log, StateStreaming, "generation_error", model.Wrap(model.ErrGenerationFailure, "open stream", err))
	}
	defer func() { _ = stream.Close() }()

	var (
		answer   strings.Builder
		consumer = true
		genErr   error
	)
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			genErr = model.Wrap(model.ErrGenerationFailure, "stream", err)
			break
		}
		if delta == "" {
			continue
		}
		answer.WriteString(delta)
		if !consumer {
			continue
		}
		if err := sink.Send(Event{Delta: delta, Context: window.Items}); err != nil {
			log.Info().Err(err).Msg("consumer gone; draining generation")
			consumer = false
			continue
		}
		metrics.ChatDeltasTotal.Inc()
	}

	if !consumer {
		return o.fail(log, StateStreaming, "disconnected", ErrConsumerGone)
	}
	if genErr != nil {
		_ = sink.Send(Event{Done: true, Err: genErr, Context: window.Items})
		return o.fail(log, StateStreaming, "generation_error", genErr)
	}

	full := answer.String()
	if err := sink.Send(Event{Full: full, Context: window.Items, Done: true}); err != nil {
		return o.fail(log, StateFinalizing, "disconnected", ErrConsumerGone)
	}

	pctx := context.WithoutCancel(ctx)
	if t.ConversationID != "" {
		msg := model.ConversationMessage{Role: model.RoleAssistant, Content: full}
		if len(window.Items) > 0 {
			msg.UsedContext = model.MetadataOf(window.Items)
		}
		_, err = o.history.AppendMessage(pctx, t.OwnerID, t.ConversationID, msg, services.MessageID(t.ConversationID, t.TurnID, model.RoleAssistant))
	} else {
		_, err = o.history.StoreExchange(pctx, t.OwnerID, services.ExchangeID(t.OwnerID, t.TurnID), t.Question, full, window.Items)
	}
	if err != nil {
		return o.fail(log, StateFinalizing, "persist_error", err)
	}

	metrics.ChatTurnsTotal.WithLabelValues("done").Inc()
	log.Debug().Int("contextItems", len(window.Items)).Int("contextTokens", window.Tokens).Int("answerBytes", answer.Len()).Msg("chat turn done")
	return nil
}

func (o *Orchestrator) fail(log zerolog.Logger, at State, outcome string, err error) error {
	metrics.ChatTurnsTotal.WithLabelValues(outcome).Inc()
	ev := log.Warn()
	if errors.Is(err, model.ErrPersistenceFailure) || errors.Is(err, model.ErrGenerationFailure) {
		ev = log.Error()
	}
	ev.Err(err).Str("state", at.String()).Str("outcome", outcome).Msg("chat turn failed")
	return err
}
