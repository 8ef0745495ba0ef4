package carelogs

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, e LogEntry) error
	GetByID(ctx context.Context, id string) (LogEntry, error)
	ListByPatient(ctx context.Context, patientID string, filter ListFilter) ([]LogEntry, error)
	Void(ctx context.Context, id string, at time.Time) error
	// DeleteByPatient borra el registro de un paciente eliminado.
	DeleteByPatient(ctx context.Context, patientID string) error
}

// ListFilter: orden occurred_at desc. Query busca en título, notas y el texto
// del detalle (nota, condición).
type ListFilter struct {
	Kinds []Kind
	From  *time.Time
	To    *time.Time
	Query string
	Limit int
}
