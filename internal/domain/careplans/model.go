package careplans

import "time"

type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// CarePlan es un diagnóstico/tratamiento asociado a un paciente.
// Las medicaciones pueden colgar de un care plan.
type CarePlan struct {
	ID        string
	PatientID string

	Diagnosis string
	Treatment string

	StartDate time.Time
	EndDate   *time.Time

	Notes  string
	Status Status

	CreatedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}
