// Package dialogue implements the per-conversation state machine that
// produces bot replies and flow transitions for the guided menu, document
// lookup, appointment lookup and clinical-record capture flows.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/andescare/careline/internal/directory"
	"github.com/andescare/careline/internal/model"
	"github.com/andescare/careline/internal/video"
	"github.com/andescare/careline/pkg/logger"
)

// maxAppointmentsShown caps how many appointments are rendered in one reply.
const maxAppointmentsShown = 5

// Result is the outcome of one engine turn. Handled reports whether the
// automated agent fully owns this turn; when false the conversation needs a
// human. Flow is the next dialogue state (nil means idle) and replaces the
// conversation's current state wholesale.
type Result struct {
	Handled bool
	Replies []string
	Flow    *model.FlowState
}

// Engine advances conversations through the guided flows. It holds no
// per-conversation state of its own; the caller passes the current flow
// state in and applies the returned one.
type Engine struct {
	directory directory.Service
	video     *video.LinkBuilder
	logger    *logger.Logger
	now       func() time.Time
}

// NewEngine creates a dialogue engine.
func NewEngine(dir directory.Service, links *video.LinkBuilder, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		directory: dir,
		video:     links,
		logger:    log,
		now:       time.Now,
	}
}

// Process runs one turn. flow is the conversation's current state; the
// engine never mutates it, it returns the successor state in the Result.
// Collaborator calls happen here, so the caller must not hold the store lock.
func (e *Engine) Process(ctx context.Context, phoneNumber, customerName, text string, flow *model.FlowState) Result {
	normalized := strings.ToLower(strings.TrimSpace(text))

	if flow == nil {
		return e.processIdle(normalized)
	}

	switch flow.Phase {
	case model.PhaseMenu:
		return e.processMenu(normalized)
	case model.PhaseDocument:
		return e.processDocument(ctx, customerName, strings.TrimSpace(text), flow)
	case model.PhaseUpdateChoice:
		return e.processUpdateChoice(normalized, flow)
	case model.PhaseCapture:
		return e.processCapture(ctx, strings.TrimSpace(text), normalized, flow)
	default:
		// Unknown phase from an older revision: reset to idle.
		e.logger.Warn("unknown dialogue phase, resetting", zap.String("phase", string(flow.Phase)))
		return e.processIdle(normalized)
	}
}

func (e *Engine) processIdle(normalized string) Result {
	if matchesAny(normalized, greetingKeywords) {
		return Result{
			Handled: true,
			Replies: []string{msgMainMenu},
			Flow:    &model.FlowState{Phase: model.PhaseMenu},
		}
	}
	if matchesAny(normalized, escalationKeywords) {
		return Result{
			Handled: false,
			Replies: []string{msgTransfer},
		}
	}
	return Result{
		Handled: true,
		Replies: []string{msgGreetPrompt},
	}
}

func (e *Engine) processMenu(normalized string) Result {
	switch normalized {
	case "1":
		return Result{
			Handled: true,
			Replies: []string{msgAskDocumentVideoCall},
			Flow:    &model.FlowState{Phase: model.PhaseDocument, Flow: model.FlowVideoCall},
		}
	case "2":
		return Result{
			Handled: true,
			Replies: []string{msgAskDocumentHistory},
			Flow:    &model.FlowState{Phase: model.PhaseDocument, Flow: model.FlowHistory},
		}
	case "3":
		return Result{
			Handled: true,
			Replies: []string{msgAskDocumentAppointments},
			Flow:    &model.FlowState{Phase: model.PhaseDocument, Flow: model.FlowAppointments},
		}
	case "4":
		return Result{
			Handled: false,
			Replies: []string{msgTransfer},
			Flow:    nil,
		}
	default:
		return Result{
			Handled: true,
			Replies: []string{msgInvalidOption},
			Flow:    &model.FlowState{Phase: model.PhaseMenu},
		}
	}
}

func (e *Engine) processDocument(ctx context.Context, customerName, document string, flow *model.FlowState) Result {
	patient, err := e.directory.LookupPatient(ctx, document)
	switch {
	case err == nil:
		return e.patientFound(ctx, customerName, document, patient, flow)
	case errors.Is(err, directory.ErrNotFound):
		return e.patientNotFound(document, flow)
	default:
		e.logger.Error("patient lookup failed", zap.Error(err))
		return Result{
			Handled: true,
			Replies: []string{msgCollaboratorDown},
			Flow:    nil,
		}
	}
}

func (e *Engine) patientFound(ctx context.Context, customerName, document string, patient *directory.Patient, flow *model.FlowState) Result {
	switch flow.Flow {
	case model.FlowVideoCall:
		name := patient.FullName()
		if name == "" {
			name = customerName
		}
		link := e.video.Link(name)
		return Result{
			Handled: true,
			Replies: []string{
				fmt.Sprintf(msgVideoCallReady, name),
				fmt.Sprintf(msgVideoCallLink, link),
			},
			Flow: nil,
		}
	case model.FlowHistory:
		return Result{
			Handled: true,
			Replies: []string{fmt.Sprintf(msgHistoryFound, patient.FullName(), patient.CaseID)},
			Flow: &model.FlowState{
				Phase:    model.PhaseUpdateChoice,
				Flow:     model.FlowHistory,
				Document: document,
			},
		}
	case model.FlowAppointments:
		return e.renderAppointments(ctx, document)
	default:
		return Result{
			Handled: true,
			Replies: []string{msgPatientNotFound},
			Flow:    nil,
		}
	}
}

func (e *Engine) patientNotFound(document string, flow *model.FlowState) Result {
	if flow.Flow == model.FlowHistory {
		return Result{
			Handled: true,
			Replies: []string{msgCaptureStart},
			Flow: &model.FlowState{
				Phase:    model.PhaseCapture,
				Step:     model.StepName,
				Document: document,
			},
		}
	}
	return Result{
		Handled: true,
		Replies: []string{msgPatientNotFound},
		Flow:    nil,
	}
}

func (e *Engine) renderAppointments(ctx context.Context, document string) Result {
	appointments, err := e.directory.LookupAppointments(ctx, document)
	if err != nil {
		e.logger.Error("appointment lookup failed", zap.Error(err))
		return Result{
			Handled: true,
			Replies: []string{msgCollaboratorDown},
			Flow:    nil,
		}
	}
	if len(appointments) == 0 {
		return Result{
			Handled: true,
			Replies: []string{msgNoAppointments},
			Flow:    nil,
		}
	}

	var b strings.Builder
	b.WriteString("📅 Tus próximas citas:\n")
	for i, appt := range appointments {
		if i == maxAppointmentsShown {
			break
		}
		fmt.Fprintf(&b, "\n%d. %s a las %s con %s en %s", i+1, appt.Date, appt.Time, appt.Doctor, appt.Location)
		if appt.Note != "" {
			fmt.Fprintf(&b, " (%s)", appt.Note)
		}
	}
	return Result{
		Handled: true,
		Replies: []string{b.String()},
		Flow:    nil,
	}
}

func (e *Engine) processUpdateChoice(normalized string, flow *model.FlowState) Result {
	if equalsAny(normalized, cancelWords) {
		return Result{
			Handled: true,
			Replies: []string{msgCaptureCancelled},
			Flow:    nil,
		}
	}
	if equalsAny(normalized, updateYesWords) {
		return Result{
			Handled: true,
			Replies: []string{msgCaptureUpdateStart},
			Flow: &model.FlowState{
				Phase:    model.PhaseCapture,
				Step:     model.StepName,
				Document: flow.Document,
			},
		}
	}
	return Result{
		Handled: true,
		Replies: []string{msgHistoryKept},
		Flow:    nil,
	}
}

func (e *Engine) processCapture(ctx context.Context, raw, normalized string, flow *model.FlowState) Result {
	if equalsAny(normalized, cancelWords) {
		return Result{
			Handled: true,
			Replies: []string{msgCaptureCancelled},
			Flow:    nil,
		}
	}

	next := *flow

	switch flow.Step {
	case model.StepName:
		if raw == "" {
			return reprompt(flow, msgReemptyName)
		}
		next.Name = raw
		next.Step = model.StepBirthDate
		return advance(&next, msgAskBirthDate)

	case model.StepBirthDate:
		if !ValidBirthDate(raw, e.now()) {
			return reprompt(flow, msgInvalidBirthDate)
		}
		next.BirthDate = strings.TrimSpace(raw)
		next.Step = model.StepAddress
		return advance(&next, msgAskAddress)

	case model.StepAddress:
		if raw == "" {
			return reprompt(flow, msgEmptyAddress)
		}
		next.Address = raw
		next.Step = model.StepPhone
		return advance(&next, msgAskPhone)

	case model.StepPhone:
		cleaned, ok := ValidPhone(raw)
		if !ok {
			return reprompt(flow, msgInvalidPhone)
		}
		next.Phone = cleaned
		next.Step = model.StepEmail
		return advance(&next, msgAskEmail)

	case model.StepEmail:
		if !ValidEmail(raw) {
			return reprompt(flow, msgInvalidEmail)
		}
		next.Email = strings.TrimSpace(raw)
		next.Step = model.StepConfirmation
		summary := fmt.Sprintf(msgCaptureSummary,
			next.Document, next.Name, next.BirthDate, next.Address, next.Phone, next.Email)
		return advance(&next, summary)

	case model.StepConfirmation:
		// Terminal either way: the flow is cleared regardless of outcome.
		if !equalsAny(normalized, confirmWords) {
			return Result{
				Handled: true,
				Replies: []string{msgCaptureCancelled},
				Flow:    nil,
			}
		}
		rec := directory.ClinicalRecord{
			DocumentID: flow.Document,
			Name:       flow.Name,
			BirthDate:  flow.BirthDate,
			Address:    flow.Address,
			Phone:      flow.Phone,
			Email:      flow.Email,
		}
		if err := e.directory.CreateClinicalRecord(ctx, rec); err != nil {
			e.logger.Error("clinical record creation failed", zap.Error(err))
			return Result{
				Handled: true,
				Replies: []string{msgRecordFailed},
				Flow:    nil,
			}
		}
		return Result{
			Handled: true,
			Replies: []string{msgRecordCreated},
			Flow:    nil,
		}

	default:
		e.logger.Warn("unknown capture step, cancelling", zap.String("step", string(flow.Step)))
		return Result{
			Handled: true,
			Replies: []string{msgCaptureCancelled},
			Flow:    nil,
		}
	}
}

func reprompt(flow *model.FlowState, message string) Result {
	kept := *flow
	return Result{Handled: true, Replies: []string{message}, Flow: &kept}
}

func advance(next *model.FlowState, message string) Result {
	return Result{Handled: true, Replies: []string{message}, Flow: next}
}
