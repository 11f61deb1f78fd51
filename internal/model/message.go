package model

import (
	"time"
)

// MessageType tags the provenance of a message, not its formatting.
type MessageType string

const (
	MessageTypeCustomer MessageType = "customer"
	MessageTypeOperator MessageType = "operator"
	MessageTypeBot      MessageType = "bot"
	MessageTypeSystem   MessageType = "system"
)

// Message is a single entry in a conversation transcript. Immutable once
// appended.
type Message struct {
	ID string `json:"id"`
	// ChannelMessageID is the channel-native id (WhatsApp message id) when
	// the channel provided one.
	ChannelMessageID string      `json:"channel_message_id,omitempty"`
	Content          string      `json:"content"`
	Type             MessageType `json:"type"`
	Sender           string      `json:"sender"`
	MediaURL         string      `json:"media_url,omitempty"`
	MediaType        string      `json:"media_type,omitempty"`
	Timestamp        time.Time   `json:"timestamp"`
}
