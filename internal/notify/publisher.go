// Package notify fans out operator notifications over NATS subjects. One
// subject per operator for targeted events, one shared subject for
// broadcasts; operator consoles subscribe to both. Delivery is
// fire-and-forget: a failed publish is logged and never blocks or rolls back
// the state transition that triggered it.
package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andescare/careline/internal/model"
	natsclient "github.com/andescare/careline/internal/nats"
	"github.com/andescare/careline/pkg/logger"
)

const (
	// BroadcastSubject carries events addressed to every connected operator.
	BroadcastSubject = "ops.broadcast"

	// operatorSubjectPrefix + operator id carries targeted events.
	operatorSubjectPrefix = "ops.notify."
)

// OperatorSubject returns the targeted subject for one operator.
func OperatorSubject(operatorID string) string {
	return operatorSubjectPrefix + operatorID
}

// Publisher publishes operator notification events.
type Publisher struct {
	client *natsclient.Client
	logger *logger.Logger
}

// NewPublisher creates a publisher on an established NATS connection.
func NewPublisher(client *natsclient.Client, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{client: client, logger: log}
}

// NotifyOperator sends an event to one specific operator.
func (p *Publisher) NotifyOperator(operatorID string, event *model.Event) {
	p.publish(OperatorSubject(operatorID), event)
}

// Broadcast sends an event to all connected operators.
func (p *Publisher) Broadcast(event *model.Event) {
	p.publish(BroadcastSubject, event)
}

func (p *Publisher) publish(subject string, event *model.Event) {
	if event.ID == "" {
		event.ID = uuid.Must(uuid.NewV7()).String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal notification",
			zap.String("subject", subject),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return
	}
	if err := p.client.Conn().Publish(subject, data); err != nil {
		p.logger.Error("failed to publish notification",
			zap.String("subject", subject),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}
