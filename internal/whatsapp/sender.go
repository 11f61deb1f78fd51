// Package whatsapp sends outbound text messages through the WhatsApp Cloud
// API. The router never retries a failed send; the state transition that
// produced the message has already committed.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/andescare/careline/pkg/logger"
	"github.com/andescare/careline/pkg/metrics"
)

const graphAPIBase = "https://graph.facebook.com/v22.0"

// Sender sends text messages to customers over WhatsApp.
type Sender struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
	logger        *logger.Logger
}

// NewSender creates a WhatsApp sender for one business phone number.
func NewSender(accessToken, phoneNumberID string, log *logger.Logger) *Sender {
	if log == nil {
		log = logger.NewNop()
	}
	return &Sender{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		baseURL:       graphAPIBase,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		logger:        log,
	}
}

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText sends one text message. A non-2xx response or transport error is
// returned to the caller for logging only.
func (s *Sender) SendText(ctx context.Context, to, text string) error {
	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.OutboundSendsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.OutboundSendsTotal.WithLabelValues("failure").Inc()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		s.logger.Error("whatsapp send rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("to", to),
			zap.ByteString("response", detail),
		)
		return fmt.Errorf("whatsapp: send message: unexpected status %d", resp.StatusCode)
	}

	metrics.OutboundSendsTotal.WithLabelValues("success").Inc()
	return nil
}
