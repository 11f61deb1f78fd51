// Package store owns the authoritative set of conversations and operators.
// Every read and write is serialized through one mutex; callers only ever see
// snapshots, never live records.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andescare/careline/internal/model"
	"github.com/andescare/careline/pkg/logger"
	"github.com/andescare/careline/pkg/metrics"
)

// MaxActiveConversations is the assignment policy cap per operator.
const MaxActiveConversations = 5

// Store is the single exclusion domain for conversation and operator state.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*model.Conversation
	operators     map[string]*model.Operator
	operatorOrder []string
	logger        *logger.Logger
	now           func() time.Time
}

// New creates an empty store.
func New(log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		conversations: make(map[string]*model.Conversation),
		operators:     make(map[string]*model.Operator),
		logger:        log,
		now:           time.Now,
	}
}

// GetOrCreate returns the unique non-closed conversation for the phone
// number, creating one with status Waiting if none exists. Atomic under
// concurrent calls for the same phone number.
func (s *Store) GetOrCreate(phoneNumber string) *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv := s.findOpenLocked(phoneNumber); conv != nil {
		return conv.Snapshot()
	}

	now := s.now()
	conv := &model.Conversation{
		ID:           uuid.Must(uuid.NewV7()).String(),
		PhoneNumber:  phoneNumber,
		CustomerName: defaultCustomerName(phoneNumber),
		Status:       model.StatusWaiting,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.conversations[conv.ID] = conv
	metrics.ConversationsTotal.Inc()
	s.updateWaitingGaugeLocked()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("phone_number", phoneNumber),
	)
	return conv.Snapshot()
}

// AppendMessage appends to the conversation transcript and bumps
// LastActivity. Returns false if the conversation id is unknown; never
// panics.
func (s *Store) AppendMessage(conversationID string, msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		s.logger.Warn("append to unknown conversation", zap.String("conversation_id", conversationID))
		return false
	}
	if msg.ID == "" {
		msg.ID = uuid.Must(uuid.NewV7()).String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	conv.Messages = append(conv.Messages, msg)
	conv.LastActivity = s.now()
	metrics.MessagesTotal.WithLabelValues(string(msg.Type)).Inc()
	return true
}

// AssignOperator hands the conversation to the operator: status becomes
// Active and the conversation joins the operator's active set. Returns false
// without mutating anything if either id is unknown.
func (s *Store) AssignOperator(conversationID, operatorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, okConv := s.conversations[conversationID]
	op, okOp := s.operators[operatorID]
	if !okConv || !okOp {
		return false
	}

	conv.AssignedOperator = operatorID
	conv.Status = model.StatusActive
	if !contains(op.ActiveConversations, conversationID) {
		op.ActiveConversations = append(op.ActiveConversations, conversationID)
	}
	s.updateWaitingGaugeLocked()
	s.logger.Info("operator assigned",
		zap.String("conversation_id", conversationID),
		zap.String("operator_id", operatorID),
		zap.String("operator_name", op.Name),
	)
	return true
}

// ReleaseToBot clears the assignment, returns the conversation to
// BotHandling and resets the dialogue flow. Idempotent: releasing an already
// unassigned conversation still succeeds and clears the flow.
func (s *Store) ReleaseToBot(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return false
	}
	if conv.AssignedOperator != "" {
		if op, ok := s.operators[conv.AssignedOperator]; ok {
			op.ActiveConversations = remove(op.ActiveConversations, conversationID)
		}
		conv.AssignedOperator = ""
	}
	conv.Status = model.StatusBotHandling
	conv.Flow = nil
	s.updateWaitingGaugeLocked()
	return true
}

// RegisterOperator upserts an operator as available with an empty active
// set. Re-registration keeps any conversations already assigned.
func (s *Store) RegisterOperator(operatorID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if op, ok := s.operators[operatorID]; ok {
		op.Name = name
		op.IsAvailable = true
		return
	}
	s.operators[operatorID] = &model.Operator{
		ID:          operatorID,
		Name:        name,
		IsAvailable: true,
	}
	s.operatorOrder = append(s.operatorOrder, operatorID)
	metrics.OperatorsRegistered.Set(float64(len(s.operators)))
	s.logger.Info("operator registered",
		zap.String("operator_id", operatorID),
		zap.String("operator_name", name),
	)
}

// DeregisterOperator removes the operator and returns its formerly active
// conversations, which go back to Waiting so another operator can pick them
// up.
func (s *Store) DeregisterOperator(operatorID string) []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.operators[operatorID]
	if !ok {
		return nil
	}
	var released []*model.Conversation
	for _, convID := range op.ActiveConversations {
		if conv, ok := s.conversations[convID]; ok {
			conv.AssignedOperator = ""
			conv.Status = model.StatusWaiting
			released = append(released, conv.Snapshot())
		}
	}
	delete(s.operators, operatorID)
	s.operatorOrder = remove(s.operatorOrder, operatorID)
	metrics.OperatorsRegistered.Set(float64(len(s.operators)))
	s.updateWaitingGaugeLocked()
	s.logger.Info("operator deregistered",
		zap.String("operator_id", operatorID),
		zap.Int("released_conversations", len(released)),
	)
	return released
}

// ListWaiting returns waiting conversations ordered oldest first.
func (s *Store) ListWaiting() []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var waiting []*model.Conversation
	for _, conv := range s.conversations {
		if conv.Status == model.StatusWaiting {
			waiting = append(waiting, conv.Snapshot())
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
	})
	return waiting
}

// AvailableOperator selects the operator for an automatic handoff: available,
// below the cap, fewest active conversations, registration order as the tie
// break. Returns false if nobody qualifies.
func (s *Store) AvailableOperator() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bestID := ""
	bestCount := 0
	for _, id := range s.operatorOrder {
		op, ok := s.operators[id]
		if !ok || !op.IsAvailable || op.ActiveCount() >= MaxActiveConversations {
			continue
		}
		if bestID == "" || op.ActiveCount() < bestCount {
			bestID = id
			bestCount = op.ActiveCount()
		}
	}
	return bestID, bestID != ""
}

// IsHumanActive reports whether the phone number's current conversation is
// being attended by an operator. This is the gate that keeps the bot silent.
func (s *Store) IsHumanActive(phoneNumber string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findOpenLocked(phoneNumber)
	return conv != nil && conv.Status == model.StatusActive
}

// Get returns a snapshot of the conversation, or false if the id is unknown.
func (s *Store) Get(conversationID string) (*model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, false
	}
	return conv.Snapshot(), true
}

// GetOperator returns a snapshot of the operator, or false if unknown.
func (s *Store) GetOperator(operatorID string) (*model.Operator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.operators[operatorID]
	if !ok {
		return nil, false
	}
	cp := *op
	cp.ActiveConversations = append([]string(nil), op.ActiveConversations...)
	return &cp, true
}

// OperatorConversations returns the operator's active conversations.
func (s *Store) OperatorConversations(operatorID string) []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Conversation
	for _, conv := range s.conversations {
		if conv.AssignedOperator == operatorID && conv.Status == model.StatusActive {
			out = append(out, conv.Snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SetStatus transitions the conversation status. Returns false if the id is
// unknown.
func (s *Store) SetStatus(conversationID string, status model.ConversationStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return false
	}
	conv.Status = status
	s.updateWaitingGaugeLocked()
	return true
}

// SetFlow replaces the conversation's dialogue flow state. The write is
// atomic; if two engine turns for the same conversation overlap around an
// in-flight collaborator call the last writer wins, which is acceptable for
// one human typing.
func (s *Store) SetFlow(conversationID string, flow *model.FlowState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return false
	}
	conv.Flow = flow
	return true
}

// Close marks the conversation terminal and frees the operator's slot. A new
// inbound message from the same phone number starts a fresh conversation.
func (s *Store) Close(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return false
	}
	if conv.AssignedOperator != "" {
		if op, ok := s.operators[conv.AssignedOperator]; ok {
			op.ActiveConversations = remove(op.ActiveConversations, conversationID)
		}
		conv.AssignedOperator = ""
	}
	conv.Status = model.StatusClosed
	conv.Flow = nil
	s.updateWaitingGaugeLocked()
	return true
}

// WaitingCount returns the current waiting queue depth.
func (s *Store) WaitingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitingCountLocked()
}

func (s *Store) findOpenLocked(phoneNumber string) *model.Conversation {
	for _, conv := range s.conversations {
		if conv.PhoneNumber == phoneNumber && conv.Status != model.StatusClosed {
			return conv
		}
	}
	return nil
}

func (s *Store) waitingCountLocked() int {
	n := 0
	for _, conv := range s.conversations {
		if conv.Status == model.StatusWaiting {
			n++
		}
	}
	return n
}

func (s *Store) updateWaitingGaugeLocked() {
	metrics.ConversationsWaiting.Set(float64(s.waitingCountLocked()))
}

func defaultCustomerName(phoneNumber string) string {
	suffix := phoneNumber
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "Cliente " + suffix
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
