// Package chat drives one conversational turn: it persists the user
// message, streams the model's answer to a Sink and records the reply.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RichardoC/thinkstream/internal/db"
	"github.com/RichardoC/thinkstream/internal/llm"
	"github.com/RichardoC/thinkstream/internal/metrics"
	"github.com/RichardoC/thinkstream/internal/models"
)

const (
	// DefaultFallbackMessage is persisted as the assistant reply when the
	// provider fails.
	DefaultFallbackMessage = "Przepraszam, wystąpił błąd podczas przetwarzania wiadomości. Spróbuj ponownie."
	// EmptyResponseMessage replaces a successful but empty answer.
	EmptyResponseMessage = "I apologize, but I couldn't generate a response. Please try again."
	// ProviderErrorMessage is the error event text for a provider failure.
	// The upstream detail only goes to the log.
	ProviderErrorMessage = "The model provider failed to respond. Please try again."
)

// Turn outcomes, as recorded in metrics.
const (
	outcomeComplete     = "complete"
	outcomeAdapterError = "adapter_error"
	outcomeCanceled     = "canceled"
	outcomeStoreError   = "store_error"
)

type Config struct {
	DefaultModel    string `mapstructure:"default_model"`
	FallbackMessage string `mapstructure:"fallback_message"`
}

// Input is one user utterance. A zero SessionID starts a new session.
type Input struct {
	SessionID int64
	Content   string
	Model     string
}

type Orchestrator struct {
	store    db.Store
	registry *llm.Registry
	locker   Locker
	cfg      Config
	logger   *zap.Logger
}

func NewOrchestrator(store db.Store, registry *llm.Registry, locker Locker, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = DefaultFallbackMessage
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Orchestrator{
		store:    store,
		registry: registry,
		locker:   locker,
		cfg:      cfg,
		logger:   logger,
	}
}

// HandleUserMessage runs one turn and always closes sink.
//
// Errors returned before the first event is emitted (validation, unknown
// session, store failures while resolving the session) leave the sink
// untouched. If ctx is canceled mid-stream no assistant message is stored and
// ctx.Err() is returned. A provider failure stores the fallback reply, emits
// it followed by an error event, and returns the *llm.AdapterError.
func (o *Orchestrator) HandleUserMessage(ctx context.Context, in Input, sink Sink) error {
	defer sink.Close()

	if strings.TrimSpace(in.Content) == "" {
		return &db.ValidationError{Field: "content", Reason: "must not be empty"}
	}

	sessionID, err := o.resolveSession(ctx, in)
	if err != nil {
		return err
	}

	unlock, err := o.locker.Lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	logger := o.logger.With(zap.Int64("sessionId", sessionID))

	userMsg, err := o.store.CreateMessage(ctx, db.NewMessage{
		SessionID: sessionID,
		Role:      models.RoleUser,
		Content:   in.Content,
	})
	if err != nil {
		return err
	}
	if err := sink.Emit(ctx, models.UserMessageEvent(userMsg)); err != nil {
		return o.abandon(ctx, logger, "", err)
	}

	model := o.resolveModel(in.Model, logger)
	logger = logger.With(zap.String("model", model.ID))

	history, err := o.store.GetMessages(ctx, sessionID)
	if err != nil {
		return o.storeFailure(ctx, sink, logger, model.ID, err)
	}

	start := time.Now()
	res, err := o.stream(ctx, model, buildTurns(history), sink)
	switch {
	case err == nil:
	case llm.IsAdapterError(err) && ctx.Err() == nil:
		logger.Error("Provider stream failed", zap.Error(err))
		return o.finishWithFallback(ctx, sink, logger, sessionID, in.Content, model.ID, err)
	default:
		return o.abandon(ctx, logger, model.ID, err)
	}

	content := res.Content
	if content == "" {
		content = EmptyResponseMessage
	}
	var reasoning *string
	if res.Reasoning != "" {
		reasoning = &res.Reasoning
	}

	assistantMsg, err := o.store.CreateMessage(ctx, db.NewMessage{
		SessionID: sessionID,
		Role:      models.RoleAssistant,
		Content:   content,
		Reasoning: reasoning,
	})
	if err != nil {
		return o.storeFailure(ctx, sink, logger, model.ID, err)
	}
	if err := o.deriveTitle(ctx, sessionID, in.Content); err != nil {
		return o.storeFailure(ctx, sink, logger, model.ID, err)
	}

	if err := sink.Emit(ctx, models.AssistantMessageEvent(assistantMsg)); err != nil {
		return o.abandon(ctx, logger, model.ID, err)
	}
	if err := sink.Emit(ctx, models.CompleteEvent()); err != nil {
		return o.abandon(ctx, logger, model.ID, err)
	}

	metrics.ChatTurnsTotal.WithLabelValues(model.ID, outcomeComplete).Inc()
	logger.Info("Chat turn complete",
		zap.Int("contentLength", len(content)),
		zap.Int("reasoningLength", len(res.Reasoning)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (o *Orchestrator) resolveSession(ctx context.Context, in Input) (int64, error) {
	if in.SessionID != 0 {
		sess, err := o.store.GetSession(ctx, in.SessionID)
		if err != nil {
			return 0, err
		}
		return sess.ID, nil
	}

	sess, err := o.store.CreateSession(ctx, TruncateTitle(in.Content))
	if err != nil {
		return 0, err
	}
	o.logger.Info("Created session for new conversation", zap.Int64("sessionId", sess.ID))
	return sess.ID, nil
}

func (o *Orchestrator) resolveModel(id string, logger *zap.Logger) llm.Model {
	if m, ok := llm.LookupModel(id); ok {
		return m
	}
	fallback, ok := llm.LookupModel(o.cfg.DefaultModel)
	if !ok {
		fallback = llm.DefaultModel()
	}
	if id != "" {
		logger.Warn("Unknown model requested, using default",
			zap.String("requested", id),
			zap.String("default", fallback.ID))
	}
	return fallback
}

// buildTurns turns the stored history into provider context, folding
// assistant reasoning back into the content.
func buildTurns(history []models.Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(history))
	for _, m := range history {
		content := m.Content
		if m.Role == models.RoleAssistant && m.HasReasoning() {
			content = llm.EmbedReasoning(*m.Reasoning, m.Content)
		}
		turns = append(turns, llm.Turn{Role: m.Role, Content: content})
	}
	return turns
}

// stream forwards every delta to the sink as it arrives.
func (o *Orchestrator) stream(ctx context.Context, model llm.Model, turns []llm.Turn, sink Sink) (llm.Result, error) {
	adapter, ok := o.registry.Adapter(model.Family)
	if !ok {
		return llm.Result{}, &llm.AdapterError{Provider: string(model.Family), Message: "provider is not configured"}
	}

	s, err := adapter.Stream(ctx, llm.Request{Model: model, Turns: turns})
	if err != nil {
		return llm.Result{}, err
	}

	return llm.Drain(s, func(d llm.Delta) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		metrics.StreamDeltasTotal.WithLabelValues(adapter.Name(), string(d.Kind)).Inc()
		if d.Kind == llm.DeltaReasoning {
			return sink.Emit(ctx, models.ReasoningEvent(d.Text))
		}
		return sink.Emit(ctx, models.ContentEvent(d.Text))
	})
}

// deriveTitle sets the session title once the first exchange is stored.
// A title that was renamed, or derived by an earlier exchange that has
// since been cleared, is kept.
func (o *Orchestrator) deriveTitle(ctx context.Context, sessionID int64, firstMessage string) error {
	n, err := o.store.CountMessages(ctx, sessionID)
	if err != nil {
		return err
	}
	if n != 2 {
		return nil
	}
	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !provisionalTitle(sess.Title, firstMessage) {
		return nil
	}
	return o.store.UpdateSessionTitle(ctx, sessionID, DeriveTitle(firstMessage))
}

// provisionalTitle reports whether title is a placeholder: the default or
// the truncated first message a new session is created with.
func provisionalTitle(title, firstMessage string) bool {
	return title == models.DefaultSessionTitle || title == strings.TrimSpace(TruncateTitle(firstMessage))
}

func (o *Orchestrator) finishWithFallback(ctx context.Context, sink Sink, logger *zap.Logger, sessionID int64, firstMessage, modelID string, cause error) error {
	msg, err := o.store.CreateMessage(ctx, db.NewMessage{
		SessionID: sessionID,
		Role:      models.RoleAssistant,
		Content:   o.cfg.FallbackMessage,
	})
	if err != nil {
		return o.storeFailure(ctx, sink, logger, modelID, err)
	}
	if err := o.deriveTitle(ctx, sessionID, firstMessage); err != nil {
		return o.storeFailure(ctx, sink, logger, modelID, err)
	}

	metrics.ChatTurnsTotal.WithLabelValues(modelID, outcomeAdapterError).Inc()
	if err := sink.Emit(ctx, models.AssistantMessageEvent(msg)); err != nil {
		return o.abandon(ctx, logger, modelID, err)
	}
	if err := sink.Emit(ctx, models.ErrorEvent(ProviderErrorMessage)); err != nil {
		logger.Debug("Failed to deliver error event", zap.Error(err))
	}
	return cause
}

// storeFailure reports a persistence error to the client on a best-effort
// basis and ends the turn.
func (o *Orchestrator) storeFailure(ctx context.Context, sink Sink, logger *zap.Logger, modelID string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return o.abandon(ctx, logger, modelID, err)
	}
	metrics.ChatTurnsTotal.WithLabelValues(modelID, outcomeStoreError).Inc()
	logger.Error("Failed to persist chat turn", zap.Error(err))
	if emitErr := sink.Emit(ctx, models.ErrorEvent("Failed to save the conversation. Please try again.")); emitErr != nil {
		logger.Debug("Failed to deliver error event", zap.Error(emitErr))
	}
	return err
}

// abandon ends a turn whose client went away. Nothing further is stored.
func (o *Orchestrator) abandon(ctx context.Context, logger *zap.Logger, modelID string, err error) error {
	if modelID == "" {
		modelID = "unknown"
	}
	metrics.ChatTurnsTotal.WithLabelValues(modelID, outcomeCanceled).Inc()
	logger.Info("Chat turn abandoned before completion", zap.Error(err))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
