package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageContent validates outbound message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 4096 { // WhatsApp text body limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation id.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidatePhoneNumber validates a channel phone number: digits only, with
// country code, no formatting characters.
func ValidatePhoneNumber(phone string) error {
	if len(phone) < 7 || len(phone) > 15 {
		return errors.New("phone number must be 7 to 15 digits")
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return errors.New("phone number must contain only digits")
		}
	}
	return nil
}

// ValidateOperatorName validates an operator display name.
func ValidateOperatorName(name string) error {
	if len(name) == 0 {
		return errors.New("name cannot be empty")
	}
	if len(name) > 128 {
		return errors.New("name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("name must be valid UTF-8")
	}
	return nil
}
