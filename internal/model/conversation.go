// Package model defines data structures for the care-line router.
package model

import (
	"time"
)

// ConversationStatus represents who currently owns a conversation.
type ConversationStatus string

const (
	// StatusWaiting means the conversation needs a human operator.
	StatusWaiting ConversationStatus = "waiting"
	// StatusActive means an operator is attending the conversation.
	StatusActive ConversationStatus = "active"
	// StatusBotHandling means the automated agent owns the conversation.
	StatusBotHandling ConversationStatus = "bot_handling"
	// StatusClosed is terminal; the next inbound message from the same phone
	// number starts a fresh conversation.
	StatusClosed ConversationStatus = "closed"
)

// Conversation is the unit of interaction with one customer phone number.
// At most one non-closed conversation exists per phone number.
type Conversation struct {
	ID               string             `json:"id"`
	PhoneNumber      string             `json:"phone_number"`
	CustomerName     string             `json:"customer_name"`
	Status           ConversationStatus `json:"status"`
	AssignedOperator string             `json:"assigned_operator,omitempty"`
	Messages         []Message          `json:"messages"`
	Flow             *FlowState         `json:"flow,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	LastActivity     time.Time          `json:"last_activity"`
}

// Snapshot returns a deep copy safe to hand to notification payloads after
// the store lock is released.
func (c *Conversation) Snapshot() *Conversation {
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	if c.Flow != nil {
		f := *c.Flow
		cp.Flow = &f
	}
	return &cp
}

// Context renders the flow state as the legacy string-keyed view exposed to
// operator console snapshots.
func (c *Conversation) Context() map[string]string {
	if c.Flow == nil {
		return map[string]string{}
	}
	return c.Flow.contextView()
}
