// Package video builds Jitsi video-call links for the videollamada flow.
package video

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// DefaultBaseURL is the public Jitsi instance used when none is configured.
const DefaultBaseURL = "https://meet.jit.si"

// LinkBuilder generates ready-to-join Jitsi room links with a prejoin screen
// and a suggested display name. Room passwords cannot be preassigned via URL
// on the public instance.
type LinkBuilder struct {
	baseURL string
	subject string
}

// NewLinkBuilder creates a link builder. subject is the meeting title shown
// in the room.
func NewLinkBuilder(baseURL, subject string) *LinkBuilder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if subject == "" {
		subject = "Consulta de Salud"
	}
	return &LinkBuilder{
		baseURL: strings.TrimRight(baseURL, "/"),
		subject: subject,
	}
}

// Link returns a unique room URL for the customer. displayName is prefilled
// on the prejoin screen; the customer can still edit it.
func (b *LinkBuilder) Link(displayName string) string {
	room := fmt.Sprintf("careline-%s", uuid.New().String()[:8])

	fragments := []string{
		"config.subject=" + url.QueryEscape(b.subject),
		"config.prejoinConfig.enabled=true",
	}
	if displayName != "" {
		fragments = append(fragments, "userInfo.displayName="+url.QueryEscape(displayName))
	}

	return fmt.Sprintf("%s/%s#%s", b.baseURL, room, strings.Join(fragments, "&"))
}
