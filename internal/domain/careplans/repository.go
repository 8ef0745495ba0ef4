package careplans

import "context"

type Repository interface {
	Create(ctx context.Context, cp CarePlan) error
	Update(ctx context.Context, cp CarePlan) error
	GetByID(ctx context.Context, id string) (CarePlan, error)
	// ListByPatient ordena por start_date desc.
	ListByPatient(ctx context.Context, patientID string) ([]CarePlan, error)
	Delete(ctx context.Context, id string) error
}
