// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/andescare/careline/internal/middleware"
	"github.com/andescare/careline/internal/router"
	"github.com/andescare/careline/internal/store"
	"github.com/andescare/careline/pkg/logger"
)

// WebhookHandler receives WhatsApp Cloud API callbacks.
type WebhookHandler struct {
	router      *router.Router
	store       *store.Store
	sender      router.Sender
	verifyToken string
	logger      *logger.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(rt *router.Router, st *store.Store, sender router.Sender, verifyToken string, log *logger.Logger) *WebhookHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &WebhookHandler{
		router:      rt,
		store:       st,
		sender:      sender,
		verifyToken: verifyToken,
		logger:      log,
	}
}

// Verify handles GET /webhook/whatsapp, the subscription handshake.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.logger.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	h.logger.Warn("webhook verification failed", zap.String("mode", mode))
	w.WriteHeader(http.StatusForbidden)
}

// Graph API inbound envelope, reduced to the fields we read.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image    *mediaRef `json:"image"`
	Document *mediaRef `json:"document"`
	Audio    *mediaRef `json:"audio"`
	Video    *mediaRef `json:"video"`
}

type mediaRef struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
}

// Receive handles POST /webhook/whatsapp. WhatsApp expects 200 OK for every
// delivery, including payloads we cannot process.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("undecodable webhook payload", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				in := normalizeInbound(msg)
				if in.PhoneNumber == "" {
					continue
				}
				if err := h.router.HandleInbound(r.Context(), in); err != nil {
					h.logger.Error("inbound routing failed",
						zap.String("phone_number", in.PhoneNumber),
						zap.Error(err),
					)
				}
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}

// normalizeInbound reduces a channel message to the normalized record the
// router consumes. Non-text inputs become a placeholder text plus media
// metadata.
func normalizeInbound(msg inboundMessage) router.Inbound {
	in := router.Inbound{
		PhoneNumber:      msg.From,
		ChannelMessageID: msg.ID,
	}

	switch {
	case msg.Text != nil:
		in.Text = msg.Text.Body
	case msg.Image != nil:
		in.Text = placeholder("📷 Imagen recibida", msg.Image.Caption)
		in.MediaURL = msg.Image.ID
		in.MediaType = msg.Image.MimeType
	case msg.Document != nil:
		in.Text = placeholder("📄 Documento recibido", msg.Document.Filename)
		in.MediaURL = msg.Document.ID
		in.MediaType = msg.Document.MimeType
	case msg.Audio != nil:
		in.Text = "🎙️ Audio recibido"
		in.MediaURL = msg.Audio.ID
		in.MediaType = msg.Audio.MimeType
	case msg.Video != nil:
		in.Text = placeholder("🎬 Video recibido", msg.Video.Caption)
		in.MediaURL = msg.Video.ID
		in.MediaType = msg.Video.MimeType
	default:
		in.Text = "Mensaje no soportado"
	}
	return in
}

func placeholder(base, detail string) string {
	if detail == "" {
		return base
	}
	return base + ": " + detail
}

// Stats handles GET /webhook/stats with a small operational summary.
func (h *WebhookHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"waiting_conversations": h.store.WaitingCount(),
		"timestamp":             time.Now().UTC(),
	})
}

// TestMessageRequest is the body for POST /webhook/send-test.
type TestMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendTest handles POST /webhook/send-test, a manual outbound send used
// during channel setup.
func (h *WebhookHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	var req TestMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePhoneNumber(req.To); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sender.SendText(r.Context(), req.To, req.Message); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": "Error al enviar mensaje",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Mensaje enviado",
	})
}
