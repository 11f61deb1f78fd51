// Package router decides, for every inbound customer message, whether the
// automated agent or a human operator owns the conversation, applies the
// resulting status transition and dispatches the outbound effects.
package router

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/andescare/careline/internal/dialogue"
	"github.com/andescare/careline/internal/model"
	"github.com/andescare/careline/internal/store"
	"github.com/andescare/careline/pkg/logger"
	"github.com/andescare/careline/pkg/metrics"
)

// Sender is the outbound-message capability. Failures are surfaced for
// logging only; the router never retries and never rolls back state.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Notifier is the operator notification channel: one specific operator or
// everyone. Fire-and-forget relative to state transitions.
type Notifier interface {
	NotifyOperator(operatorID string, event *model.Event)
	Broadcast(event *model.Event)
}

// ErrNotFound reports an unknown conversation or operator id.
var ErrNotFound = errors.New("router: not found")

// Inbound is a normalized inbound customer message. Non-text payloads must
// already be reduced to a placeholder text plus media metadata by the caller.
type Inbound struct {
	PhoneNumber      string
	Text             string
	ChannelMessageID string
	MediaURL         string
	MediaType        string
}

// Router owns the per-message routing decision.
type Router struct {
	store    *store.Store
	engine   *dialogue.Engine
	sender   Sender
	notifier Notifier
	logger   *logger.Logger
}

// New creates a router.
func New(st *store.Store, engine *dialogue.Engine, sender Sender, notifier Notifier, log *logger.Logger) *Router {
	if log == nil {
		log = logger.NewNop()
	}
	return &Router{
		store:    st,
		engine:   engine,
		sender:   sender,
		notifier: notifier,
		logger:   log,
	}
}

// HandleInbound processes one customer message end to end: resolve the
// conversation, append the message, and route it to the operator or the
// dialogue engine.
func (r *Router) HandleInbound(ctx context.Context, in Inbound) error {
	conv := r.store.GetOrCreate(in.PhoneNumber)
	log := r.logger.WithConversation(conv.ID, in.PhoneNumber)

	customerMsg := model.Message{
		ChannelMessageID: in.ChannelMessageID,
		Content:          in.Text,
		Type:             model.MessageTypeCustomer,
		Sender:           conv.CustomerName,
		MediaURL:         in.MediaURL,
		MediaType:        in.MediaType,
	}
	r.store.AppendMessage(conv.ID, customerMsg)

	r.notifier.Broadcast(&model.Event{
		Type:           model.EventMessageReceived,
		ConversationID: conv.ID,
		Message:        &customerMsg,
	})

	// Bot silence invariant: while an operator attends the conversation the
	// engine must not run at all.
	if conv.Status == model.StatusActive && conv.AssignedOperator != "" {
		log.Debug("operator active, bot stays silent", zap.String("operator_id", conv.AssignedOperator))
		r.notifier.NotifyOperator(conv.AssignedOperator, &model.Event{
			Type:           model.EventCustomerMessage,
			ConversationID: conv.ID,
			Message:        &customerMsg,
		})
		return nil
	}
	if r.store.IsHumanActive(in.PhoneNumber) {
		// An operator took the conversation between the snapshot and now.
		log.Debug("operator took over mid-turn, bot stays silent")
		return nil
	}

	// The engine makes collaborator calls, so it runs without the store
	// lock; its flow mutation is applied afterwards (last writer wins).
	res := r.engine.Process(ctx, in.PhoneNumber, conv.CustomerName, in.Text, conv.Flow)
	r.store.SetFlow(conv.ID, res.Flow)

	r.sendReplies(ctx, conv, res.Replies)

	if res.Handled {
		r.store.SetStatus(conv.ID, model.StatusBotHandling)
		metrics.BotHandledTotal.Inc()
		if snapshot, ok := r.store.Get(conv.ID); ok {
			r.notifier.Broadcast(&model.Event{
				Type:           model.EventBotHandled,
				ConversationID: conv.ID,
				Conversation:   snapshot,
			})
		}
		return nil
	}

	// Human attention required.
	r.store.SetStatus(conv.ID, model.StatusWaiting)

	operatorID, found := r.store.AvailableOperator()
	if found && r.store.AssignOperator(conv.ID, operatorID) {
		metrics.HandoffsTotal.WithLabelValues("assigned").Inc()
		log.Info("conversation auto-assigned", zap.String("operator_id", operatorID))
		if snapshot, ok := r.store.Get(conv.ID); ok {
			r.notifier.NotifyOperator(operatorID, &model.Event{
				Type:           model.EventConversationAssigned,
				ConversationID: conv.ID,
				OperatorID:     operatorID,
				Conversation:   snapshot,
			})
		}
		return nil
	}

	metrics.HandoffsTotal.WithLabelValues("waiting").Inc()
	log.Info("no operator available, conversation waiting")
	if snapshot, ok := r.store.Get(conv.ID); ok {
		r.notifier.Broadcast(&model.Event{
			Type:           model.EventConversationWaiting,
			ConversationID: conv.ID,
			Conversation:   snapshot,
		})
	}
	return nil
}

// TakeConversation assigns a waiting conversation to the requesting
// operator (manual pickup).
func (r *Router) TakeConversation(conversationID, operatorID string) (*model.Conversation, error) {
	if !r.store.AssignOperator(conversationID, operatorID) {
		return nil, ErrNotFound
	}
	conv, _ := r.store.Get(conversationID)
	r.notifier.NotifyOperator(operatorID, &model.Event{
		Type:           model.EventConversationAssigned,
		ConversationID: conversationID,
		OperatorID:     operatorID,
		Conversation:   conv,
	})
	r.notifier.Broadcast(&model.Event{
		Type:           model.EventConversationTaken,
		ConversationID: conversationID,
		OperatorID:     operatorID,
	})
	return conv, nil
}

// SendOperatorMessage delivers an operator reply to the customer and records
// it in the transcript.
func (r *Router) SendOperatorMessage(ctx context.Context, conversationID, operatorID, text string) error {
	conv, ok := r.store.Get(conversationID)
	if !ok {
		return ErrNotFound
	}

	sender := "Operador"
	if op, ok := r.store.GetOperator(operatorID); ok {
		sender = op.Name
	}
	msg := model.Message{
		Content:   text,
		Type:      model.MessageTypeOperator,
		Sender:    sender,
		Timestamp: time.Now(),
	}
	r.store.AppendMessage(conversationID, msg)

	if err := r.sender.SendText(ctx, conv.PhoneNumber, text); err != nil {
		r.logger.Error("operator message send failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}

	r.notifier.Broadcast(&model.Event{
		Type:           model.EventMessageSent,
		ConversationID: conversationID,
		OperatorID:     operatorID,
		Message:        &msg,
	})
	return nil
}

// ReleaseToBot hands the conversation back to the automated agent.
func (r *Router) ReleaseToBot(conversationID string) error {
	if !r.store.ReleaseToBot(conversationID) {
		return ErrNotFound
	}
	conv, _ := r.store.Get(conversationID)
	r.notifier.Broadcast(&model.Event{
		Type:           model.EventConversationReleased,
		ConversationID: conversationID,
		Conversation:   conv,
	})
	return nil
}

// CloseConversation marks a conversation terminal.
func (r *Router) CloseConversation(conversationID string) error {
	if !r.store.Close(conversationID) {
		return ErrNotFound
	}
	return nil
}

// RegisterOperator registers an operator session and pushes the current
// waiting queue to everyone.
func (r *Router) RegisterOperator(operatorID, name string) {
	r.store.RegisterOperator(operatorID, name)
	for _, conv := range r.store.ListWaiting() {
		r.notifier.NotifyOperator(operatorID, &model.Event{
			Type:           model.EventConversationWaiting,
			ConversationID: conv.ID,
			Conversation:   conv,
		})
	}
}

// DeregisterOperator removes an operator and returns its conversations to
// the waiting queue, broadcasting each so another operator can pick them up.
func (r *Router) DeregisterOperator(operatorID string) {
	released := r.store.DeregisterOperator(operatorID)
	for _, conv := range released {
		r.notifier.Broadcast(&model.Event{
			Type:           model.EventConversationWaiting,
			ConversationID: conv.ID,
			Conversation:   conv,
		})
	}
}

func (r *Router) sendReplies(ctx context.Context, conv *model.Conversation, replies []string) {
	for _, reply := range replies {
		botMsg := model.Message{
			Content: reply,
			Type:    model.MessageTypeBot,
			Sender:  "Bot Automático",
		}
		r.store.AppendMessage(conv.ID, botMsg)
		if err := r.sender.SendText(ctx, conv.PhoneNumber, reply); err != nil {
			r.logger.Error("bot reply send failed",
				zap.String("conversation_id", conv.ID),
				zap.Error(err),
			)
		}
	}
}
