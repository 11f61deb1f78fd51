package model

// FlowPhase is the dialogue engine's current phase for a conversation. A nil
// FlowState on the conversation means the engine is idle.
type FlowPhase string

const (
	// PhaseMenu means the customer was shown the main menu and the engine is
	// waiting for a numeric choice.
	PhaseMenu FlowPhase = "menu"
	// PhaseDocument means the engine asked for an identification number on
	// behalf of the flow named in FlowState.Flow.
	PhaseDocument FlowPhase = "document"
	// PhaseUpdateChoice means a clinical record was found and the engine
	// asked whether it should be updated.
	PhaseUpdateChoice FlowPhase = "update_choice"
	// PhaseCapture means the engine is collecting clinical record fields one
	// sub-step at a time.
	PhaseCapture FlowPhase = "capture"
)

// FlowKind names the multi-step flow the customer selected from the menu.
type FlowKind string

const (
	FlowVideoCall    FlowKind = "videollamada"
	FlowHistory      FlowKind = "historia"
	FlowAppointments FlowKind = "consultar_citas"
)

// CaptureStep is the current sub-step of the structured capture flow. The
// order is fixed: nombre, fecha_nacimiento, direccion, telefono, email,
// confirmacion.
type CaptureStep string

const (
	StepName         CaptureStep = "nombre"
	StepBirthDate    CaptureStep = "fecha_nacimiento"
	StepAddress      CaptureStep = "direccion"
	StepPhone        CaptureStep = "telefono"
	StepEmail        CaptureStep = "email"
	StepConfirmation CaptureStep = "confirmacion"
)

// FlowState is the per-conversation dialogue state. It replaces the ad-hoc
// string-keyed context map of earlier revisions with one tagged value: the
// phase says which fields are meaningful.
type FlowState struct {
	Phase FlowPhase `json:"phase"`

	// Flow is set in PhaseDocument and PhaseUpdateChoice.
	Flow FlowKind `json:"flow,omitempty"`

	// Document is the identification number the customer entered. Set in
	// PhaseUpdateChoice and PhaseCapture.
	Document string `json:"document,omitempty"`

	// Capture fields, filled one per sub-step while Phase == PhaseCapture.
	Step      CaptureStep `json:"step,omitempty"`
	Name      string      `json:"name,omitempty"`
	BirthDate string      `json:"birth_date,omitempty"`
	Address   string      `json:"address,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Email     string      `json:"email,omitempty"`
}

// contextView renders the state under the key names the operator console has
// always displayed.
func (f *FlowState) contextView() map[string]string {
	ctx := map[string]string{}
	switch f.Phase {
	case PhaseMenu:
		ctx["esperando_opcion"] = "true"
	case PhaseDocument:
		ctx["solicitando_documento"] = string(f.Flow)
	case PhaseUpdateChoice:
		ctx["actualizar_historia"] = f.Document
	case PhaseCapture:
		ctx["registrando_historia"] = string(f.Step)
		ctx["documento_nuevo"] = f.Document
	}
	return ctx
}
