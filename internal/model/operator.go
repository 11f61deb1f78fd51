package model

// Operator is a human agent registered by the surrounding connection layer.
type Operator struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsAvailable bool   `json:"is_available"`
	// ActiveConversations holds ids of conversations currently assigned to
	// this operator, bounded by the assignment cap.
	ActiveConversations []string `json:"active_conversations"`
}

// ActiveCount returns the number of conversations assigned to the operator.
func (o *Operator) ActiveCount() int {
	return len(o.ActiveConversations)
}
