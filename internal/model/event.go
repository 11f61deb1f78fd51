package model

import (
	"time"
)

// EventType names an operator notification event.
type EventType string

const (
	// EventMessageReceived fans out every inbound customer message.
	EventMessageReceived EventType = "message.received"
	// EventCustomerMessage targets the operator assigned to the conversation.
	EventCustomerMessage EventType = "customer.message"
	// EventBotHandled tells operators the bot answered a message.
	EventBotHandled EventType = "bot.handled"
	// EventConversationWaiting broadcasts that a conversation needs a human.
	EventConversationWaiting EventType = "conversation.waiting"
	// EventConversationAssigned targets the operator who received an
	// automatic or manual assignment.
	EventConversationAssigned EventType = "conversation.assigned"
	// EventConversationTaken tells the other operators a conversation was
	// picked up.
	EventConversationTaken EventType = "conversation.taken"
	// EventConversationReleased broadcasts that a conversation went back to
	// the bot or to the waiting queue.
	EventConversationReleased EventType = "conversation.released"
	// EventMessageSent fans out operator replies so every console stays in
	// sync.
	EventMessageSent EventType = "message.sent"
)

// Event is the envelope published on the operator notification channel.
type Event struct {
	ID             string        `json:"id"`
	Type           EventType     `json:"type"`
	ConversationID string        `json:"conversation_id,omitempty"`
	OperatorID     string        `json:"operator_id,omitempty"`
	Conversation   *Conversation `json:"conversation,omitempty"`
	Message        *Message      `json:"message,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
