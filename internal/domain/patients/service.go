package patients

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
	ErrNotFound     = errors.New("patient not found")
	ErrForbidden    = errors.New("forbidden")
)

type Service struct {
	repo     Repository
	now      func() time.Time
	onDelete []DeleteHook
}

// DeleteHook limpia lo que cuelga de un paciente (grants, medicación,
// registro) antes de borrarlo.
type DeleteHook func(ctx context.Context, patientID string) error

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	FirstName        string
	LastName         string
	BirthDate        *time.Time
	Sex              string
	Phone            string
	Address          string
	EmergencyContact string
	Allergies        string
	Notes            string
}

// Validate aplica las reglas del paso "datos del paciente" sin escribir nada.
func (in CreateInput) Validate(now time.Time) error {
	if strings.TrimSpace(in.FirstName) == "" {
		return fmt.Errorf("%w: first_name required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.LastName) == "" {
		return fmt.Errorf("%w: last_name required", ErrInvalidInput)
	}
	if sex := strings.TrimSpace(in.Sex); sex != "" && !Sex(strings.ToLower(sex)).Valid() {
		return fmt.Errorf("%w: sex must be male, female, other or unknown", ErrInvalidInput)
	}
	if in.BirthDate != nil && in.BirthDate.After(now) {
		return fmt.Errorf("%w: birth_date in the future", ErrInvalidInput)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Patient, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return Patient{}, fmt.Errorf("%w: owner required", ErrInvalidInput)
	}

	now := s.now()
	if err := in.Validate(now); err != nil {
		return Patient{}, err
	}

	sex := Sex(strings.ToLower(strings.TrimSpace(in.Sex)))
	if sex == "" {
		sex = SexUnknown
	}

	p := Patient{
		ID:               uuid.NewString(),
		OwnerUserID:      ownerUserID,
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		BirthDate:        in.BirthDate,
		Sex:              sex,
		Phone:            strings.TrimSpace(in.Phone),
		Address:          strings.TrimSpace(in.Address),
		EmergencyContact: strings.TrimSpace(in.EmergencyContact),
		Allergies:        strings.TrimSpace(in.Allergies),
		Notes:            strings.TrimSpace(in.Notes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Patient{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Patient{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Patient, error) {
	return s.repo.ListByOwner(ctx, strings.TrimSpace(ownerUserID))
}

// UpdateProfileInput: nil = no tocar. BirthDate usa Present para permitir limpiar.
type UpdateProfileInput struct {
	FirstName        *string
	LastName         *string
	Sex              *string
	Phone            *string
	Address          *string
	EmergencyContact *string
	Allergies        *string
	Notes            *string

	BirthDate BirthDatePatch
}

type BirthDatePatch struct {
	Present bool
	Value   *time.Time
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (Patient, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return Patient{}, err
	}

	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if v == "" {
			return Patient{}, fmt.Errorf("%w: first_name cannot be blank", ErrInvalidInput)
		}
		p.FirstName = v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			return Patient{}, fmt.Errorf("%w: last_name cannot be blank", ErrInvalidInput)
		}
		p.LastName = v
	}
	if in.Sex != nil {
		v := Sex(strings.ToLower(strings.TrimSpace(*in.Sex)))
		if !v.Valid() {
			return Patient{}, fmt.Errorf("%w: sex must be male, female, other or unknown", ErrInvalidInput)
		}
		p.Sex = v
	}

	now := s.now()
	if in.BirthDate.Present {
		if in.BirthDate.Value != nil && in.BirthDate.Value.After(now) {
			return Patient{}, fmt.Errorf("%w: birth_date in the future", ErrInvalidInput)
		}
		p.BirthDate = in.BirthDate.Value
	}

	setTrimmed(&p.Phone, in.Phone)
	setTrimmed(&p.Address, in.Address)
	setTrimmed(&p.EmergencyContact, in.EmergencyContact)
	setTrimmed(&p.Allergies, in.Allergies)
	setTrimmed(&p.Notes, in.Notes)

	p.UpdatedAt = now
	if err := s.repo.Update(ctx, p); err != nil {
		return Patient{}, err
	}
	return p, nil
}

// OnDelete registra hooks que Delete corre en orden. Postgres ya borra en
// cascada; los stores en memoria y Mongo dependen de estos hooks.
func (s *Service) OnDelete(hooks ...DeleteHook) {
	s.onDelete = append(s.onDelete, hooks...)
}

// Delete solo lo puede hacer el dueño. Si un hook falla el paciente no se
// borra y el Delete se puede reintentar.
func (s *Service) Delete(ctx context.Context, id, requesterUserID string) error {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.OwnerUserID != strings.TrimSpace(requesterUserID) {
		return ErrForbidden
	}
	for _, h := range s.onDelete {
		if err := h(ctx, p.ID); err != nil {
			return fmt.Errorf("delete patient %s: %w", p.ID, err)
		}
	}
	return s.repo.Delete(ctx, p.ID)
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
