package medications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"patient-care/internal/domain/careplans"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("medication not found")
	ErrDoseNotFound = errors.New("dose not found")
	ErrBadState     = errors.New("invalid state")
)

// CarePlanLookup valida que un care plan pertenezca al paciente.
type CarePlanLookup interface {
	GetForPatient(ctx context.Context, patientID, id string) (careplans.CarePlan, error)
}

type Service struct {
	repo  Repository
	doses DoseRepository
	plans CarePlanLookup
	now   func() time.Time
}

func NewService(repo Repository, doses DoseRepository, plans CarePlanLookup) *Service {
	return &Service{
		repo:  repo,
		doses: doses,
		plans: plans,
		now:   time.Now,
	}
}

type CreateInput struct {
	CarePlanID    string
	Name          string
	Dosage        string
	Unit          string
	Route         string
	IntervalHours int
	StartDate     *time.Time // default: ahora
	EndDate       *time.Time
	Instructions  string
}

// Validate cubre las reglas de campo (no las de pertenencia del care plan).
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Dosage) == "" {
		return fmt.Errorf("%w: dosage required", ErrInvalidInput)
	}
	if in.IntervalHours < 0 || in.IntervalHours > MaxIntervalHours {
		return fmt.Errorf("%w: interval_hours must be between 0 and %d", ErrInvalidInput, MaxIntervalHours)
	}
	if r := strings.TrimSpace(in.Route); r != "" && !Route(strings.ToLower(r)).Valid() {
		return fmt.Errorf("%w: unknown route %q", ErrInvalidInput, r)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return fmt.Errorf("%w: end_date before start_date", ErrInvalidInput)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, patientID, actorID string, in CreateInput) (Medication, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return Medication{}, fmt.Errorf("%w: patient required", ErrInvalidInput)
	}
	if err := in.Validate(); err != nil {
		return Medication{}, err
	}

	planID := strings.TrimSpace(in.CarePlanID)
	if planID != "" {
		if err := s.checkCarePlan(ctx, patientID, planID); err != nil {
			return Medication{}, err
		}
	}

	now := s.now()
	start := now
	if in.StartDate != nil {
		start = *in.StartDate
	}
	if in.EndDate != nil && in.EndDate.Before(start) {
		return Medication{}, fmt.Errorf("%w: end_date before start_date", ErrInvalidInput)
	}

	route := Route(strings.ToLower(strings.TrimSpace(in.Route)))
	if route == "" {
		route = RouteOral
	}

	m := Medication{
		ID:            uuid.NewString(),
		PatientID:     patientID,
		CarePlanID:    planID,
		Name:          strings.TrimSpace(in.Name),
		Dosage:        strings.TrimSpace(in.Dosage),
		Unit:          strings.TrimSpace(in.Unit),
		Route:         route,
		IntervalHours: in.IntervalHours,
		StartDate:     start,
		EndDate:       in.EndDate,
		Instructions:  strings.TrimSpace(in.Instructions),
		Active:        true,
		CreatedBy:     strings.TrimSpace(actorID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

// GetForPatient devuelve la medicación solo si pertenece al paciente.
func (s *Service) GetForPatient(ctx context.Context, patientID, id string) (Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medication{}, ErrNotFound
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Medication{}, err
	}
	if m.PatientID != patientID {
		return Medication{}, ErrNotFound
	}
	return m, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, filter ListFilter) ([]Medication, error) {
	return s.repo.ListByPatient(ctx, strings.TrimSpace(patientID), filter)
}

type UpdateInput struct {
	CarePlanID   *string // "" desliga del care plan
	Name         *string
	Dosage       *string
	Unit         *string
	Route        *string
	Instructions *string
	EndDate      *time.Time
}

func (s *Service) Update(ctx context.Context, patientID, id string, in UpdateInput) (Medication, error) {
	m, err := s.GetForPatient(ctx, patientID, id)
	if err != nil {
		return Medication{}, err
	}

	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		if v == "" {
			return Medication{}, fmt.Errorf("%w: name cannot be blank", ErrInvalidInput)
		}
		m.Name = v
	}
	if in.Dosage != nil {
		v := strings.TrimSpace(*in.Dosage)
		if v == "" {
			return Medication{}, fmt.Errorf("%w: dosage cannot be blank", ErrInvalidInput)
		}
		m.Dosage = v
	}
	if in.Unit != nil {
		m.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.Route != nil {
		v := Route(strings.ToLower(strings.TrimSpace(*in.Route)))
		if !v.Valid() {
			return Medication{}, fmt.Errorf("%w: unknown route %q", ErrInvalidInput, *in.Route)
		}
		m.Route = v
	}
	if in.Instructions != nil {
		m.Instructions = strings.TrimSpace(*in.Instructions)
	}
	if in.CarePlanID != nil {
		planID := strings.TrimSpace(*in.CarePlanID)
		if planID != "" {
			if err := s.checkCarePlan(ctx, patientID, planID); err != nil {
				return Medication{}, err
			}
		}
		m.CarePlanID = planID
	}
	if in.EndDate != nil {
		if in.EndDate.Before(m.StartDate) {
			return Medication{}, fmt.Errorf("%w: end_date before start_date", ErrInvalidInput)
		}
		m.EndDate = in.EndDate
	}

	m.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

// Discontinue desactiva la medicación y descarta las tomas futuras aún agendadas.
func (s *Service) Discontinue(ctx context.Context, patientID, id string) (Medication, error) {
	m, err := s.GetForPatient(ctx, patientID, id)
	if err != nil {
		return Medication{}, err
	}
	if !m.Active {
		return m, nil
	}

	now := s.now()
	m.Active = false
	if m.EndDate == nil || m.EndDate.After(now) {
		end := now
		m.EndDate = &end
	}
	m.UpdatedAt = now

	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}
	if err := s.doses.DeleteScheduledAfter(ctx, m.ID, now); err != nil {
		return Medication{}, fmt.Errorf("drop future doses: %w", err)
	}
	return m, nil
}

// Delete borra la medicación y todas sus tomas.
func (s *Service) Delete(ctx context.Context, patientID, id string) error {
	m, err := s.GetForPatient(ctx, patientID, id)
	if err != nil {
		return err
	}
	if err := s.doses.DeleteByMedication(ctx, m.ID); err != nil {
		return fmt.Errorf("delete doses: %w", err)
	}
	return s.repo.Delete(ctx, m.ID)
}

// DeleteByPatient borra medicaciones y tomas de un paciente eliminado.
func (s *Service) DeleteByPatient(ctx context.Context, patientID string) error {
	meds, err := s.repo.ListByPatient(ctx, patientID, ListFilter{})
	if err != nil {
		return err
	}
	for _, m := range meds {
		if err := s.doses.DeleteByMedication(ctx, m.ID); err != nil {
			return fmt.Errorf("delete doses: %w", err)
		}
		if err := s.repo.Delete(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkCarePlan(ctx context.Context, patientID, planID string) error {
	if s.plans == nil {
		return nil
	}
	if _, err := s.plans.GetForPatient(ctx, patientID, planID); err != nil {
		if errors.Is(err, careplans.ErrNotFound) {
			return fmt.Errorf("%w: care plan does not belong to patient", ErrInvalidInput)
		}
		return err
	}
	return nil
}
