package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andescare/careline/internal/directory"
	"github.com/andescare/careline/internal/model"
	"github.com/andescare/careline/internal/video"
	"github.com/andescare/careline/pkg/logger"
)

type mockDirectory struct {
	patient      *directory.Patient
	lookupErr    error
	appointments []directory.Appointment
	apptErr      error
	createErr    error

	lookupCalls int
	created     []directory.ClinicalRecord
}

func (m *mockDirectory) LookupPatient(ctx context.Context, documentID string) (*directory.Patient, error) {
	m.lookupCalls++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.patient, nil
}

func (m *mockDirectory) LookupAppointments(ctx context.Context, documentID string) ([]directory.Appointment, error) {
	if m.apptErr != nil {
		return nil, m.apptErr
	}
	return m.appointments, nil
}

func (m *mockDirectory) CreateClinicalRecord(ctx context.Context, rec directory.ClinicalRecord) error {
	m.created = append(m.created, rec)
	return m.createErr
}

func newTestEngine(dir *mockDirectory) *Engine {
	links := video.NewLinkBuilder("https://meet.example.com", "Consulta de Salud")
	e := NewEngine(dir, links, logger.NewNop())
	e.now = func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) }
	return e
}

func TestProcessIdle(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantHandled bool
		wantReply   string
		wantPhase   model.FlowPhase
	}{
		{name: "greeting shows menu", text: "Hola", wantHandled: true, wantReply: msgMainMenu, wantPhase: model.PhaseMenu},
		{name: "greeting embedded in sentence", text: "buenos días doctor", wantHandled: true, wantReply: msgMainMenu, wantPhase: model.PhaseMenu},
		{name: "escalation keyword hands off", text: "quiero un agente", wantHandled: false, wantReply: msgTransfer},
		{name: "complaint hands off", text: "tengo una queja", wantHandled: false, wantReply: msgTransfer},
		{name: "anything else prompts greeting", text: "asdf", wantHandled: true, wantReply: msgGreetPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(&mockDirectory{})
			res := e.Process(context.Background(), "573001234567", "Cliente 4567", tt.text, nil)

			assert.Equal(t, tt.wantHandled, res.Handled)
			require.Len(t, res.Replies, 1)
			assert.Equal(t, tt.wantReply, res.Replies[0])
			if tt.wantPhase != "" {
				require.NotNil(t, res.Flow)
				assert.Equal(t, tt.wantPhase, res.Flow.Phase)
			} else {
				assert.Nil(t, res.Flow)
			}
		})
	}
}

func TestProcessMenu(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantHandled bool
		wantFlow    model.FlowKind
		wantReply   string
	}{
		{name: "option 1 video call", text: "1", wantHandled: true, wantFlow: model.FlowVideoCall, wantReply: msgAskDocumentVideoCall},
		{name: "option 2 history", text: "2", wantHandled: true, wantFlow: model.FlowHistory, wantReply: msgAskDocumentHistory},
		{name: "option 3 appointments", text: "3", wantHandled: true, wantFlow: model.FlowAppointments, wantReply: msgAskDocumentAppointments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(&mockDirectory{})
			res := e.Process(context.Background(), "573001234567", "Cliente 4567", tt.text, &model.FlowState{Phase: model.PhaseMenu})

			assert.True(t, res.Handled)
			require.Len(t, res.Replies, 1)
			assert.Equal(t, tt.wantReply, res.Replies[0])
			require.NotNil(t, res.Flow)
			assert.Equal(t, model.PhaseDocument, res.Flow.Phase)
			assert.Equal(t, tt.wantFlow, res.Flow.Flow)
		})
	}

	t.Run("option 4 escalates and clears flow", func(t *testing.T) {
		e := newTestEngine(&mockDirectory{})
		res := e.Process(context.Background(), "573001234567", "Cliente 4567", "4", &model.FlowState{Phase: model.PhaseMenu})

		assert.False(t, res.Handled)
		require.Len(t, res.Replies, 1)
		assert.Equal(t, msgTransfer, res.Replies[0])
		assert.Nil(t, res.Flow)
	})

	t.Run("invalid option re-prompts and keeps phase", func(t *testing.T) {
		e := newTestEngine(&mockDirectory{})
		res := e.Process(context.Background(), "573001234567", "Cliente 4567", "9", &model.FlowState{Phase: model.PhaseMenu})

		assert.True(t, res.Handled)
		require.Len(t, res.Replies, 1)
		assert.Equal(t, msgInvalidOption, res.Replies[0])
		require.NotNil(t, res.Flow)
		assert.Equal(t, model.PhaseMenu, res.Flow.Phase)
	})
}

func TestProcessDocumentVideoCall(t *testing.T) {
	dir := &mockDirectory{
		patient: &directory.Patient{CaseID: "C-99", DocumentID: "12345678", FirstName: "Ana", LastName: "Rojas"},
	}
	e := newTestEngine(dir)

	flow := &model.FlowState{Phase: model.PhaseDocument, Flow: model.FlowVideoCall}
	res := e.Process(context.Background(), "573001234567", "Cliente 4567", "12345678", flow)

	assert.True(t, res.Handled)
	require.Len(t, res.Replies, 2)
	assert.Contains(t, res.Replies[0], "Ana Rojas")
	assert.Contains(t, res.Replies[1], "https://meet.example.com/careline-")
	assert.Nil(t, res.Flow)
	assert.Equal(t, 1, dir.lookupCalls)
}

func TestProcessDocumentHistoryFound(t *testing.T) {
	dir := &mockDirectory{
		patient: &directory.Patient{CaseID: "C-42", DocumentID: "12345678", FirstName: "Ana", LastName: "Rojas"},
	}
	e := newTestEngine(dir)

	flow := &model.FlowState{Phase: model.PhaseDocument, Flow: model.FlowHistory}
	res := e.Process(context.Background(), "573001234567", "Cliente 4567", "12345678", flow)

	assert.True(t, res.Handled)
	require.Len(t, res.Replies, 1)
	assert.Contains(t, res.Replies[0], "Ana Rojas")
	assert.Contains(t, res.Replies[0], "C-42")
	require.NotNil(t, res.Flow)
	assert.Equal(t, model.PhaseUpdateChoice, res.Flow.Phase)
	assert.Equal(t, "12345678", res.Flow.Document)
}

func TestProcessDocumentHistoryNotFoundStartsCapture(t *testing.T) {
	dir := &mockDirectory{lookupErr: directory.ErrNotFound}
	e := newTestEngine(dir)

	flow := &model.FlowState{Phase: model.PhaseDocument, Flow: model.FlowHistory}
	res := e.Process(context.Background(), "573001234567", "Cliente 4567", "87654321", flow)

	assert.True(t, res.Handled)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, msgCaptureStart, res.Replies[0])
	require.NotNil(t, res.Flow)
	assert.Equal(t, model.PhaseCapture, res.Flow.Phase)
	assert.Equal(t, model.StepName, res.Flow.Step)
	assert.Equal(t, "87654321", res.Flow.Document)
}

func TestProcessDocumentNotFoundOtherFlows(t *testing.T) {
	for _, kind := range []model.FlowKind{model.FlowVideoCall, model.FlowAppointments} {
		t.Run(string(kind), func(t *testing.T) {
			dir := &mockDirectory{lookupErr: directory.ErrNotFound}
			e := newTestEngine(dir)

			flow := &model.FlowState{Phase: model.PhaseDocument, Flow: kind}
			res := e.Process(context.Background(), "573001234567", "Cliente 4567", "87654321", flow)

			assert.True(t, res.Handled)
			require.Len(t, res.Replies, 1)
			assert.Equal(t, msgPatientNotFound, res.Replies[0])
			assert.Nil(t, res.Flow)
		})
	}
}

func TestProcessDocumentCollaboratorFailure(t *testing.T) {
	dir := &mockDirectory{lookupErr: errors.New("directory: 500")}
	e := newTestEngine(dir)

	flow := &model.FlowState{Phase: model.PhaseDocument, Flow: model.FlowHistory}
	res := e.Process(context.Background(), "573001234567", "Cliente 4567", "12345678", flow)

	assert.True(t, res.Handled)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, msgCollaboratorDown, res.Replies[0])
	assert.Nil(t, res.Flow)
}

func TestProcessAppointments(t *testing.T) {
	t.Run("renders at most five", func(t *testing.T) {
		dir := &mockDirectory{
			patient: &directory.Patient{CaseID: "C-1", DocumentID: "12345678"},
			appointments: []directory.Appointment{
				{Date: "01/09/2026", Time: "08:00", Doctor: "Dra. Pérez", Location: "Sede Norte"},
				{Date: "02/09/2026", Time: "09:00", Doctor: "Dr. Gómez", Location: "Sede Centro", Note: "ayunas"},
				{Date: "03/09/2026", Time: "10:00", Doctor: "Dra. Pérez", Location: "Sede Norte"},
				{Date: "04/09/2026", Time: "11:00", Doctor: "Dr. Gómez", Location: "Sede Centro"},
				{Date: "05/09/2026", Time: "12:00", Doctor: "Dra. Pérez", Location: "Sede Norte"},
				{Date: "06/09/2026", Time: "13:00", Doctor: "Dr. Gómez", Location: "Sede Centro"},
			},
		}
		e := newTestEngine(dir)

		flow := &model.FlowState{Phase: model.PhaseDocument, Flow: model.FlowAppointments}
		res := e.Process(context.Background(), "573001234567", "Cliente 4567", "12345678", flow)

		assert.True(t, res.Handled)
		require.Len(t, res.Replies, 1)
		assert.Contains(t, res.Replies[0], "05/09/2026")
		assert.NotContains(t, res.Replies[0], "06/09/2026")
		assert.Contains(t, res.Replies[0], "(ayunas)")
		assert.Nil(t, res.Flow)
	})

	t.Run("no appointments", func(t *testing.T) {
		dir := &mockDirectory{patient: &directory.Patient{CaseID: "C-1", DocumentID: "12345678"}}
		e := newTestEngine(dir)

		flow := &model.FlowState{Phase: model.PhaseDocument, Flow: model.FlowAppointments}
		res := e.Process(context.Background(), "573001234567", "Cliente 4567", "12345678", flow)

		assert.True(t, res.Handled)
		require.Len(t, res.Replies, 1)
		assert.Equal(t, msgNoAppointments, res.Replies[0])
		assert.Nil(t, res.Flow)
	})

	t.Run("lookup failure", func(t *testing.T) {
		dir := &mockDirectory{
			patient: &directory.Patient{CaseID: "C-1", DocumentID: "12345678"},
			apptErr: errors.New("directory: timeout"),
		}
		e := newTestEngine(dir)

		flow := &model.FlowState{Phase: model.PhaseDocument, Flow: model.FlowAppointments}
		res := e.Process(context.Background(), "573001234567", "Cliente 4567", "12345678", flow)

		assert.True(t, res.Handled)
		require.Len(t, res.Replies, 1)
		assert.Equal(t, msgCollaboratorDown, res.Replies[0])
		assert.Nil(t, res.Flow)
	})
}

func TestProcessUpdateChoice(t *testing.T) {
	base := &model.FlowState{Phase: model.PhaseUpdateChoice, Flow: model.FlowHistory, Document: "12345678"}

	t.Run("yes starts capture with document preserved", func(t *testing.T) {
		e := newTestEngine(&mockDirectory{})
		res := e.Process(context.Background(), "573001234567", "Cliente 4567", "sí", base)

		assert.True(t, res.Handled)
		require.Len(t, res.Replies, 1)
		assert.Equal(t, msgCaptureUpdateStart, res.Replies[0])
		require.NotNil(t, res.Flow)
		assert.Equal(t, model.PhaseCapture, res.Flow.Phase)
		assert.Equal(t, model.StepName, res.Flow.Step)
		assert.Equal(t, "12345678", res.Flow.Document)
	})

	t.Run("no keeps the record", func(t *testing.T) {
		e := newTestEngine(&mockDirectory{})
		res := e.Process(context.Background(), "573001234567", "Cliente 4567", "no", base)

		assert.True(t, res.Handled)
		require.Len(t, res.Replies, 1)
		assert.Equal(t, msgHistoryKept, res.Replies[0])
		assert.Nil(t, res.Flow)
	})

	t.Run("cancel exits", func(t *testing.T) {
		e := newTestEngine(&mockDirectory{})
		res := e.Process(context.Background(), "573001234567", "Cliente 4567", "cancelar", base)

		assert.True(t, res.Handled)
		assert.Equal(t, msgCaptureCancelled, res.Replies[0])
		assert.Nil(t, res.Flow)
	})
}

func TestCaptureHappyPath(t *testing.T) {
	dir := &mockDirectory{lookupErr: directory.ErrNotFound}
	e := newTestEngine(dir)
	ctx := context.Background()

	flow := &model.FlowState{Phase: model.PhaseCapture, Step: model.StepName, Document: "87654321"}

	steps := []struct {
		input     string
		wantReply string
		wantStep  model.CaptureStep
	}{
		{input: "Ana María Rojas", wantReply: msgAskBirthDate, wantStep: model.StepBirthDate},
		{input: "15/03/1990", wantReply: msgAskAddress, wantStep: model.StepAddress},
		{input: "Calle 10 # 5-23", wantReply: msgAskPhone, wantStep: model.StepPhone},
		{input: "300 123 4567", wantReply: msgAskEmail, wantStep: model.StepEmail},
	}

	for _, st := range steps {
		res := e.Process(ctx, "573001234567", "Cliente 4567", st.input, flow)
		assert.True(t, res.Handled)
		require.Len(t, res.Replies, 1)
		assert.Equal(t, st.wantReply, res.Replies[0])
		require.NotNil(t, res.Flow)
		assert.Equal(t, st.wantStep, res.Flow.Step)
		flow = res.Flow
	}

	res := e.Process(ctx, "573001234567", "Cliente 4567", "ana@example.com", flow)
	assert.True(t, res.Handled)
	require.NotNil(t, res.Flow)
	assert.Equal(t, model.StepConfirmation, res.Flow.Step)
	assert.Contains(t, res.Replies[0], "Ana María Rojas")
	assert.Contains(t, res.Replies[0], "3001234567")
	flow = res.Flow

	res = e.Process(ctx, "573001234567", "Cliente 4567", "confirmar", flow)
	assert.True(t, res.Handled)
	assert.Equal(t, msgRecordCreated, res.Replies[0])
	assert.Nil(t, res.Flow)

	require.Len(t, dir.created, 1)
	rec := dir.created[0]
	assert.Equal(t, "87654321", rec.DocumentID)
	assert.Equal(t, "Ana María Rojas", rec.Name)
	assert.Equal(t, "15/03/1990", rec.BirthDate)
	assert.Equal(t, "Calle 10 # 5-23", rec.Address)
	assert.Equal(t, "3001234567", rec.Phone)
	assert.Equal(t, "ana@example.com", rec.Email)
}

func TestCaptureInvalidInputReprompts(t *testing.T) {
	tests := []struct {
		name      string
		step      model.CaptureStep
		input     string
		wantReply string
	}{
		{name: "empty name", step: model.StepName, input: "", wantReply: msgReemptyName},
		{name: "bad birth date", step: model.StepBirthDate, input: "99/99/9999", wantReply: msgInvalidBirthDate},
		{name: "empty address", step: model.StepAddress, input: "", wantReply: msgEmptyAddress},
		{name: "bad phone", step: model.StepPhone, input: "12", wantReply: msgInvalidPhone},
		{name: "bad email", step: model.StepEmail, input: "no-es-correo", wantReply: msgInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(&mockDirectory{})
			flow := &model.FlowState{Phase: model.PhaseCapture, Step: tt.step, Document: "87654321"}
			res := e.Process(context.Background(), "573001234567", "Cliente 4567", tt.input, flow)

			assert.True(t, res.Handled)
			require.Len(t, res.Replies, 1)
			assert.Equal(t, tt.wantReply, res.Replies[0])
			require.NotNil(t, res.Flow)
			assert.Equal(t, tt.step, res.Flow.Step, "invalid input must not advance the step")
		})
	}
}

func TestCaptureCancelAtEveryStep(t *testing.T) {
	steps := []model.CaptureStep{
		model.StepName, model.StepBirthDate, model.StepAddress,
		model.StepPhone, model.StepEmail, model.StepConfirmation,
	}

	for _, step := range steps {
		t.Run(string(step), func(t *testing.T) {
			dir := &mockDirectory{}
			e := newTestEngine(dir)
			flow := &model.FlowState{Phase: model.PhaseCapture, Step: step, Document: "87654321"}
			res := e.Process(context.Background(), "573001234567", "Cliente 4567", "cancelar", flow)

			assert.True(t, res.Handled)
			assert.Equal(t, msgCaptureCancelled, res.Replies[0])
			assert.Nil(t, res.Flow)
			assert.Empty(t, dir.created)
		})
	}
}

func TestCaptureConfirmation(t *testing.T) {
	flow := &model.FlowState{
		Phase:     model.PhaseCapture,
		Step:      model.StepConfirmation,
		Document:  "87654321",
		Name:      "Ana Rojas",
		BirthDate: "15/03/1990",
		Address:   "Calle 10",
		Phone:     "3001234567",
		Email:     "ana@example.com",
	}

	t.Run("anything but a confirm word cancels", func(t *testing.T) {
		dir := &mockDirectory{}
		e := newTestEngine(dir)
		res := e.Process(context.Background(), "573001234567", "Cliente 4567", "mejor no", flow)

		assert.True(t, res.Handled)
		assert.Equal(t, msgCaptureCancelled, res.Replies[0])
		assert.Nil(t, res.Flow)
		assert.Empty(t, dir.created)
	})

	t.Run("creation failure clears the flow", func(t *testing.T) {
		dir := &mockDirectory{createErr: errors.New("directory: 503")}
		e := newTestEngine(dir)
		res := e.Process(context.Background(), "573001234567", "Cliente 4567", "confirmar", flow)

		assert.True(t, res.Handled)
		assert.Equal(t, msgRecordFailed, res.Replies[0])
		assert.Nil(t, res.Flow)
	})
}
