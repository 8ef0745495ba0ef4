package carelogs

import (
	"time"

	"patient-care/internal/domain/carelogs/details"
)

type Actor struct {
	Type ActorType
	ID   string
}

// Detail lleva exactamente un campo según el Kind de la entrada.
type Detail struct {
	History *details.History `json:"history,omitempty" bson:"history,omitempty"`
	Note    *details.Note    `json:"note,omitempty" bson:"note,omitempty"`
	Vital   *details.Vital   `json:"vital,omitempty" bson:"vital,omitempty"`
}

// LogEntry es un evento de cuidado del paciente (historia, nota o signo vital).
type LogEntry struct {
	ID        string
	PatientID string

	Kind Kind

	OccurredAt time.Time
	RecordedAt time.Time

	Title string
	Notes string

	Actor  Actor
	Status Status

	VoidedAt *time.Time

	Detail Detail
}
