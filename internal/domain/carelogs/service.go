package carelogs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"patient-care/internal/domain/carelogs/details"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("log entry not found")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200

	// tolerancia de reloj entre el dispositivo y el servidor
	futureSkew = 5 * time.Minute
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
	Kind       Kind
	OccurredAt time.Time // default: ahora
	Title      string
	Notes      string

	History *details.History
	Note    *details.Note
	Vital   *details.Vital
}

func (s *Service) Create(ctx context.Context, patientID string, actor Actor, in CreateInput) (LogEntry, error) {
	if strings.TrimSpace(patientID) == "" {
		return LogEntry{}, fmt.Errorf("%w: patient required", ErrInvalidInput)
	}
	if actor.Type == "" || strings.TrimSpace(actor.ID) == "" {
		return LogEntry{}, fmt.Errorf("%w: actor required", ErrInvalidInput)
	}

	now := s.now()
	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	if occurred.After(now.Add(futureSkew)) {
		return LogEntry{}, fmt.Errorf("%w: occurred_at in the future", ErrInvalidInput)
	}

	detail, title, err := buildDetail(in, now)
	if err != nil {
		return LogEntry{}, err
	}
	if t := strings.TrimSpace(in.Title); t != "" {
		title = t
	}

	e := LogEntry{
		ID:         uuid.NewString(),
		PatientID:  patientID,
		Kind:       in.Kind,
		OccurredAt: occurred,
		RecordedAt: now,
		Title:      title,
		Notes:      strings.TrimSpace(in.Notes),
		Actor:      actor,
		Status:     StatusActive,
		Detail:     detail,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return LogEntry{}, err
	}
	return e, nil
}

// buildDetail valida que venga solo el detalle del Kind y propone un título.
func buildDetail(in CreateInput, now time.Time) (Detail, string, error) {
	present := 0
	for _, ok := range []bool{in.History != nil, in.Note != nil, in.Vital != nil} {
		if ok {
			present++
		}
	}
	if present > 1 {
		return Detail{}, "", fmt.Errorf("%w: only one detail allowed", ErrInvalidInput)
	}

	switch in.Kind {
	case KindHistory:
		if in.History == nil {
			return Detail{}, "", fmt.Errorf("%w: history detail required", ErrInvalidInput)
		}
		h := *in.History
		h.Condition = strings.TrimSpace(h.Condition)
		if h.Condition == "" {
			return Detail{}, "", fmt.Errorf("%w: condition required", ErrInvalidInput)
		}
		if h.DiagnosedAt != nil && h.DiagnosedAt.After(now) {
			return Detail{}, "", fmt.Errorf("%w: diagnosed_at in the future", ErrInvalidInput)
		}
		return Detail{History: &h}, h.Condition, nil

	case KindNote:
		if in.Note == nil {
			return Detail{}, "", fmt.Errorf("%w: note detail required", ErrInvalidInput)
		}
		n := details.Note{Text: strings.TrimSpace(in.Note.Text)}
		if n.Text == "" {
			return Detail{}, "", fmt.Errorf("%w: note text required", ErrInvalidInput)
		}
		return Detail{Note: &n}, "Note", nil

	case KindVital:
		if in.Vital == nil {
			return Detail{}, "", fmt.Errorf("%w: vital detail required", ErrInvalidInput)
		}
		v, err := in.Vital.Normalize()
		if err != nil {
			return Detail{}, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return Detail{Vital: &v}, v.Label(), nil

	default:
		return Detail{}, "", fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, in.Kind)
	}
}

// GetForPatient devuelve la entrada solo si pertenece al paciente.
func (s *Service) GetForPatient(ctx context.Context, patientID, id string) (LogEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return LogEntry{}, ErrNotFound
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return LogEntry{}, err
	}
	if e.PatientID != patientID {
		return LogEntry{}, ErrNotFound
	}
	return e, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, filter ListFilter) ([]LogEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	for _, k := range filter.Kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, k)
		}
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: to before from", ErrInvalidInput)
	}
	filter.Query = strings.TrimSpace(filter.Query)
	return s.repo.ListByPatient(ctx, patientID, filter)
}

// Void marca la entrada como voided (no se borra). Es idempotente.
func (s *Service) Void(ctx context.Context, patientID, id string) (LogEntry, error) {
	e, err := s.GetForPatient(ctx, patientID, id)
	if err != nil {
		return LogEntry{}, err
	}
	if e.Status == StatusVoided {
		return e, nil
	}

	now := s.now()
	if err := s.repo.Void(ctx, e.ID, now); err != nil {
		return LogEntry{}, err
	}
	e.Status = StatusVoided
	e.VoidedAt = &now
	return e, nil
}

// DeleteByPatient se usa al borrar el paciente; fuera de eso el registro
// solo se anula con Void.
func (s *Service) DeleteByPatient(ctx context.Context, patientID string) error {
	return s.repo.DeleteByPatient(ctx, patientID)
}
