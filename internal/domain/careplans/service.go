package careplans

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("care plan not found")
	ErrBadState     = errors.New("invalid state")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Diagnosis string
	Treatment string
	StartDate *time.Time // default: hoy
	EndDate   *time.Time
	Notes     string
}

func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Diagnosis) == "" {
		return fmt.Errorf("%w: diagnosis required", ErrInvalidInput)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return fmt.Errorf("%w: end_date before start_date", ErrInvalidInput)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, patientID, actorID string, in CreateInput) (CarePlan, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return CarePlan{}, fmt.Errorf("%w: patient required", ErrInvalidInput)
	}
	if err := in.Validate(); err != nil {
		return CarePlan{}, err
	}

	now := s.now()
	start := now
	if in.StartDate != nil {
		start = *in.StartDate
	}
	if in.EndDate != nil && in.EndDate.Before(start) {
		return CarePlan{}, fmt.Errorf("%w: end_date before start_date", ErrInvalidInput)
	}

	cp := CarePlan{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Diagnosis: strings.TrimSpace(in.Diagnosis),
		Treatment: strings.TrimSpace(in.Treatment),
		StartDate: start,
		EndDate:   in.EndDate,
		Notes:     strings.TrimSpace(in.Notes),
		Status:    StatusActive,
		CreatedBy: strings.TrimSpace(actorID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, cp); err != nil {
		return CarePlan{}, err
	}
	return cp, nil
}

// GetForPatient devuelve el plan solo si pertenece al paciente.
func (s *Service) GetForPatient(ctx context.Context, patientID, id string) (CarePlan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return CarePlan{}, ErrNotFound
	}
	cp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return CarePlan{}, err
	}
	if cp.PatientID != patientID {
		return CarePlan{}, ErrNotFound
	}
	return cp, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]CarePlan, error) {
	return s.repo.ListByPatient(ctx, strings.TrimSpace(patientID))
}

type UpdateInput struct {
	Diagnosis *string
	Treatment *string
	Notes     *string
	StartDate *time.Time
	EndDate   *time.Time
}

func (s *Service) Update(ctx context.Context, patientID, id string, in UpdateInput) (CarePlan, error) {
	cp, err := s.GetForPatient(ctx, patientID, id)
	if err != nil {
		return CarePlan{}, err
	}
	if cp.Status == StatusClosed {
		return CarePlan{}, fmt.Errorf("%w: care plan closed", ErrBadState)
	}

	if in.Diagnosis != nil {
		v := strings.TrimSpace(*in.Diagnosis)
		if v == "" {
			return CarePlan{}, fmt.Errorf("%w: diagnosis cannot be blank", ErrInvalidInput)
		}
		cp.Diagnosis = v
	}
	if in.Treatment != nil {
		cp.Treatment = strings.TrimSpace(*in.Treatment)
	}
	if in.Notes != nil {
		cp.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.StartDate != nil {
		cp.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		cp.EndDate = in.EndDate
	}
	if cp.EndDate != nil && cp.EndDate.Before(cp.StartDate) {
		return CarePlan{}, fmt.Errorf("%w: end_date before start_date", ErrInvalidInput)
	}

	cp.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, cp); err != nil {
		return CarePlan{}, err
	}
	return cp, nil
}

// Close marca el plan como cerrado. Idempotente.
func (s *Service) Close(ctx context.Context, patientID, id string) (CarePlan, error) {
	cp, err := s.GetForPatient(ctx, patientID, id)
	if err != nil {
		return CarePlan{}, err
	}
	if cp.Status == StatusClosed {
		return cp, nil
	}

	now := s.now()
	cp.Status = StatusClosed
	if cp.EndDate == nil || cp.EndDate.After(now) {
		cp.EndDate = &now
	}
	cp.UpdatedAt = now
	if err := s.repo.Update(ctx, cp); err != nil {
		return CarePlan{}, err
	}
	return cp, nil
}

func (s *Service) Delete(ctx context.Context, patientID, id string) error {
	cp, err := s.GetForPatient(ctx, patientID, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, cp.ID)
}

func (s *Service) DeleteByPatient(ctx context.Context, patientID string) error {
	plans, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	for _, cp := range plans {
		if err := s.repo.Delete(ctx, cp.ID); err != nil {
			return err
		}
	}
	return nil
}
