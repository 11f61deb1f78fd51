package router

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andescare/careline/internal/dialogue"
	"github.com/andescare/careline/internal/directory"
	"github.com/andescare/careline/internal/model"
	"github.com/andescare/careline/internal/store"
	"github.com/andescare/careline/internal/video"
	"github.com/andescare/careline/pkg/logger"
)

type mockDirectory struct {
	patient   *directory.Patient
	lookupErr error
}

func (m *mockDirectory) LookupPatient(ctx context.Context, documentID string) (*directory.Patient, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.patient, nil
}

func (m *mockDirectory) LookupAppointments(ctx context.Context, documentID string) ([]directory.Appointment, error) {
	return nil, nil
}

func (m *mockDirectory) CreateClinicalRecord(ctx context.Context, rec directory.ClinicalRecord) error {
	return nil
}

type sentText struct {
	To   string
	Text string
}

type mockSender struct {
	mu    sync.Mutex
	sends []sentText
	err   error
}

func (m *mockSender) SendText(ctx context.Context, to, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, sentText{To: to, Text: text})
	return m.err
}

func (m *mockSender) sent() []sentText {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentText(nil), m.sends...)
}

type notified struct {
	OperatorID string
	Event      *model.Event
}

type mockNotifier struct {
	mu         sync.Mutex
	notified   []notified
	broadcasts []*model.Event
}

func (m *mockNotifier) NotifyOperator(operatorID string, event *model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, notified{OperatorID: operatorID, Event: event})
}

func (m *mockNotifier) Broadcast(event *model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, event)
}

func (m *mockNotifier) broadcastTypes() []model.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []model.EventType
	for _, e := range m.broadcasts {
		types = append(types, e.Type)
	}
	return types
}

type fixture struct {
	store    *store.Store
	sender   *mockSender
	notifier *mockNotifier
	router   *Router
}

func newFixture(dir *mockDirectory) *fixture {
	st := store.New(logger.NewNop())
	links := video.NewLinkBuilder("https://meet.example.com", "Consulta de Salud")
	engine := dialogue.NewEngine(dir, links, logger.NewNop())
	sender := &mockSender{}
	notifier := &mockNotifier{}
	return &fixture{
		store:    st,
		sender:   sender,
		notifier: notifier,
		router:   New(st, engine, sender, notifier, logger.NewNop()),
	}
}

func TestHandleInboundBotHandles(t *testing.T) {
	f := newFixture(&mockDirectory{})

	err := f.router.HandleInbound(context.Background(), Inbound{
		PhoneNumber: "573001234567",
		Text:        "hola",
	})
	require.NoError(t, err)

	sends := f.sender.sent()
	require.Len(t, sends, 1)
	assert.Equal(t, "573001234567", sends[0].To)
	assert.Contains(t, sends[0].Text, "1️⃣")

	conv := f.store.GetOrCreate("573001234567")
	assert.Equal(t, model.StatusBotHandling, conv.Status)
	require.NotNil(t, conv.Flow)
	assert.Equal(t, model.PhaseMenu, conv.Flow.Phase)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.MessageTypeCustomer, conv.Messages[0].Type)
	assert.Equal(t, model.MessageTypeBot, conv.Messages[1].Type)

	assert.Contains(t, f.notifier.broadcastTypes(), model.EventMessageReceived)
	assert.Contains(t, f.notifier.broadcastTypes(), model.EventBotHandled)
}

func TestHandleInboundEscalationAssigns(t *testing.T) {
	f := newFixture(&mockDirectory{})
	f.router.RegisterOperator("op-1", "Laura")

	err := f.router.HandleInbound(context.Background(), Inbound{
		PhoneNumber: "573001234567",
		Text:        "necesito un agente",
	})
	require.NoError(t, err)

	conv := f.store.GetOrCreate("573001234567")
	assert.Equal(t, model.StatusActive, conv.Status)
	assert.Equal(t, "op-1", conv.AssignedOperator)

	// Customer still gets the transfer notice.
	sends := f.sender.sent()
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].Text, "agente humano")

	var assigned bool
	for _, n := range f.notifier.notified {
		if n.Event.Type == model.EventConversationAssigned {
			assigned = true
			assert.Equal(t, "op-1", n.OperatorID)
		}
	}
	assert.True(t, assigned, "the chosen operator must be notified of the assignment")
}

func TestHandleInboundEscalationNoOperatorWaits(t *testing.T) {
	f := newFixture(&mockDirectory{})

	err := f.router.HandleInbound(context.Background(), Inbound{
		PhoneNumber: "573001234567",
		Text:        "quiero hablar con una persona",
	})
	require.NoError(t, err)

	conv := f.store.GetOrCreate("573001234567")
	assert.Equal(t, model.StatusWaiting, conv.Status)
	assert.Empty(t, conv.AssignedOperator)
	assert.Contains(t, f.notifier.broadcastTypes(), model.EventConversationWaiting)
}

func TestHandleInboundOperatorActiveBotSilent(t *testing.T) {
	f := newFixture(&mockDirectory{})
	f.router.RegisterOperator("op-1", "Laura")

	conv := f.store.GetOrCreate("573001234567")
	_, err := f.router.TakeConversation(conv.ID, "op-1")
	require.NoError(t, err)

	// A greeting that would normally trigger the menu.
	err = f.router.HandleInbound(context.Background(), Inbound{
		PhoneNumber: "573001234567",
		Text:        "hola",
	})
	require.NoError(t, err)

	assert.Empty(t, f.sender.sent(), "the bot must not reply while an operator attends")

	got, _ := f.store.Get(conv.ID)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Nil(t, got.Flow)
	require.Len(t, got.Messages, 1, "the customer message is still recorded")

	var forwarded bool
	for _, n := range f.notifier.notified {
		if n.Event.Type == model.EventCustomerMessage && n.OperatorID == "op-1" {
			forwarded = true
		}
	}
	assert.True(t, forwarded, "the attending operator must receive the customer message")
}

func TestTakeConversation(t *testing.T) {
	f := newFixture(&mockDirectory{})
	f.router.RegisterOperator("op-1", "Laura")
	conv := f.store.GetOrCreate("573001234567")

	got, err := f.router.TakeConversation(conv.ID, "op-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Equal(t, "op-1", got.AssignedOperator)
	assert.Contains(t, f.notifier.broadcastTypes(), model.EventConversationTaken)

	_, err = f.router.TakeConversation("missing", "op-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendOperatorMessage(t *testing.T) {
	f := newFixture(&mockDirectory{})
	f.router.RegisterOperator("op-1", "Laura")
	conv := f.store.GetOrCreate("573001234567")
	_, err := f.router.TakeConversation(conv.ID, "op-1")
	require.NoError(t, err)

	err = f.router.SendOperatorMessage(context.Background(), conv.ID, "op-1", "¿En qué puedo ayudarte?")
	require.NoError(t, err)

	sends := f.sender.sent()
	require.Len(t, sends, 1)
	assert.Equal(t, "573001234567", sends[0].To)
	assert.Equal(t, "¿En qué puedo ayudarte?", sends[0].Text)

	got, _ := f.store.Get(conv.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, model.MessageTypeOperator, got.Messages[0].Type)
	assert.Equal(t, "Laura", got.Messages[0].Sender)

	err = f.router.SendOperatorMessage(context.Background(), "missing", "op-1", "hola")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReleaseToBotResumesEngine(t *testing.T) {
	f := newFixture(&mockDirectory{})
	f.router.RegisterOperator("op-1", "Laura")
	conv := f.store.GetOrCreate("573001234567")
	_, err := f.router.TakeConversation(conv.ID, "op-1")
	require.NoError(t, err)

	require.NoError(t, f.router.ReleaseToBot(conv.ID))
	assert.Contains(t, f.notifier.broadcastTypes(), model.EventConversationReleased)

	got, _ := f.store.Get(conv.ID)
	assert.Equal(t, model.StatusBotHandling, got.Status)

	// The next greeting goes back through the engine.
	err = f.router.HandleInbound(context.Background(), Inbound{
		PhoneNumber: "573001234567",
		Text:        "hola",
	})
	require.NoError(t, err)
	require.Len(t, f.sender.sent(), 1)
}

func TestRegisterOperatorPushesWaitingQueue(t *testing.T) {
	f := newFixture(&mockDirectory{})
	f.store.GetOrCreate("573001110000")
	f.store.GetOrCreate("573002220000")

	f.router.RegisterOperator("op-1", "Laura")

	var pushed int
	for _, n := range f.notifier.notified {
		if n.OperatorID == "op-1" && n.Event.Type == model.EventConversationWaiting {
			pushed++
		}
	}
	assert.Equal(t, 2, pushed)
}

func TestDeregisterOperatorBroadcastsReleased(t *testing.T) {
	f := newFixture(&mockDirectory{})
	f.router.RegisterOperator("op-1", "Laura")
	conv := f.store.GetOrCreate("573001234567")
	_, err := f.router.TakeConversation(conv.ID, "op-1")
	require.NoError(t, err)

	f.router.DeregisterOperator("op-1")

	got, _ := f.store.Get(conv.ID)
	assert.Equal(t, model.StatusWaiting, got.Status)
	assert.Empty(t, got.AssignedOperator)
	assert.Contains(t, f.notifier.broadcastTypes(), model.EventConversationWaiting)
}

func TestHandleInboundMediaPlaceholder(t *testing.T) {
	f := newFixture(&mockDirectory{})

	err := f.router.HandleInbound(context.Background(), Inbound{
		PhoneNumber:      "573001234567",
		Text:             "📷 Imagen recibida",
		ChannelMessageID: "wamid.abc",
		MediaURL:         "media-123",
		MediaType:        "image/jpeg",
	})
	require.NoError(t, err)

	conv := f.store.GetOrCreate("573001234567")
	require.NotEmpty(t, conv.Messages)
	first := conv.Messages[0]
	assert.Equal(t, "wamid.abc", first.ChannelMessageID)
	assert.Equal(t, "media-123", first.MediaURL)
	assert.Equal(t, "image/jpeg", first.MediaType)
}
