package details

import "time"

// History es un antecedente o condición médica del paciente.
type History struct {
	Condition   string     `json:"condition" bson:"condition"`
	DiagnosedAt *time.Time `json:"diagnosed_at,omitempty" bson:"diagnosed_at,omitempty"`
	Resolved    bool       `json:"resolved" bson:"resolved"`
}
