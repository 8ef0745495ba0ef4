package medications

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, m Medication) error
	Update(ctx context.Context, m Medication) error
	GetByID(ctx context.Context, id string) (Medication, error)
	ListByPatient(ctx context.Context, patientID string, filter ListFilter) ([]Medication, error)
	Delete(ctx context.Context, id string) error
}

// ListFilter para medicaciones de un paciente (orden: created_at asc).
type ListFilter struct {
	CarePlanID string
	ActiveOnly bool
}

type DoseRepository interface {
	CreateDoses(ctx context.Context, doses []Dose) error
	UpdateDose(ctx context.Context, d Dose) error
	GetDose(ctx context.Context, id string) (Dose, error)
	ListDoses(ctx context.Context, filter DoseFilter) ([]Dose, error)
	DeleteByMedication(ctx context.Context, medicationID string) error
	// DeleteScheduledAfter borra tomas aún agendadas con scheduled_at > t.
	DeleteScheduledAfter(ctx context.Context, medicationID string, t time.Time) error
}

// DoseFilter: al menos PatientID o MedicationID. Orden: scheduled_at asc.
type DoseFilter struct {
	PatientID    string
	MedicationID string
	Statuses     []DoseStatus
	From         *time.Time
	To           *time.Time
	Limit        int
}
