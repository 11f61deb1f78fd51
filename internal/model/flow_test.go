package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationContext(t *testing.T) {
	tests := []struct {
		name string
		flow *FlowState
		want map[string]string
	}{
		{
			name: "idle",
			flow: nil,
			want: map[string]string{},
		},
		{
			name: "menu",
			flow: &FlowState{Phase: PhaseMenu},
			want: map[string]string{"esperando_opcion": "true"},
		},
		{
			name: "document request carries flow kind",
			flow: &FlowState{Phase: PhaseDocument, Flow: FlowHistory},
			want: map[string]string{"solicitando_documento": "historia"},
		},
		{
			name: "update choice carries document",
			flow: &FlowState{Phase: PhaseUpdateChoice, Flow: FlowHistory, Document: "12345678"},
			want: map[string]string{"actualizar_historia": "12345678"},
		},
		{
			name: "capture carries step and document",
			flow: &FlowState{Phase: PhaseCapture, Step: StepPhone, Document: "12345678"},
			want: map[string]string{
				"registrando_historia": "telefono",
				"documento_nuevo":      "12345678",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &Conversation{Flow: tt.flow}
			assert.Equal(t, tt.want, conv.Context())
		})
	}
}

func TestConversationSnapshot(t *testing.T) {
	conv := &Conversation{
		ID:       "c-1",
		Messages: []Message{{Content: "hola"}},
		Flow:     &FlowState{Phase: PhaseMenu},
	}

	snap := conv.Snapshot()
	snap.Messages[0].Content = "mutado"
	snap.Flow.Phase = PhaseCapture

	assert.Equal(t, "hola", conv.Messages[0].Content)
	assert.Equal(t, PhaseMenu, conv.Flow.Phase)
}
