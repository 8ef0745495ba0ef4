package medications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// takenAtSkew tolera relojes de cliente algo adelantados.
const takenAtSkew = 5 * time.Minute

type RecordDoseInput struct {
	TakenAt *time.Time // default: ahora
	Amount  string     // default: dosage + unit
	Notes   string
}

// RecordDose registra una toma no agendada (p.ej. medicación según necesidad).
func (s *Service) RecordDose(ctx context.Context, patientID, medicationID, actorID string, in RecordDoseInput) (Dose, error) {
	m, err := s.GetForPatient(ctx, patientID, medicationID)
	if err != nil {
		return Dose{}, err
	}
	if !m.Active {
		return Dose{}, fmt.Errorf("%w: medication discontinued", ErrBadState)
	}

	now := s.now()
	at := now
	if in.TakenAt != nil {
		at = *in.TakenAt
	}
	if at.After(now.Add(takenAtSkew)) {
		return Dose{}, fmt.Errorf("%w: taken_at in the future", ErrInvalidInput)
	}

	amount := strings.TrimSpace(in.Amount)
	if amount == "" {
		amount = strings.TrimSpace(m.Dosage + " " + m.Unit)
	}

	d := Dose{
		ID:           uuid.NewString(),
		MedicationID: m.ID,
		PatientID:    m.PatientID,
		ScheduledAt:  at,
		TakenAt:      &at,
		Status:       DoseTaken,
		Amount:       amount,
		Notes:        strings.TrimSpace(in.Notes),
		RecordedBy:   strings.TrimSpace(actorID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.doses.CreateDoses(ctx, []Dose{d}); err != nil {
		return Dose{}, err
	}
	return d, nil
}

// MarkTaken pasa una toma agendada a taken.
func (s *Service) MarkTaken(ctx context.Context, patientID, doseID, actorID string, takenAt *time.Time, notes string) (Dose, error) {
	return s.transition(ctx, patientID, doseID, actorID, DoseTaken, takenAt, notes)
}

// MarkSkipped pasa una toma agendada a skipped.
func (s *Service) MarkSkipped(ctx context.Context, patientID, doseID, actorID, notes string) (Dose, error) {
	return s.transition(ctx, patientID, doseID, actorID, DoseSkipped, nil, notes)
}

func (s *Service) transition(ctx context.Context, patientID, doseID, actorID string, to DoseStatus, takenAt *time.Time, notes string) (Dose, error) {
	d, err := s.GetDoseForPatient(ctx, patientID, doseID)
	if err != nil {
		return Dose{}, err
	}
	if d.Status != DoseScheduled {
		return Dose{}, fmt.Errorf("%w: dose already %s", ErrBadState, d.Status)
	}

	now := s.now()
	d.Status = to
	if to == DoseTaken {
		at := now
		if takenAt != nil {
			at = *takenAt
		}
		if at.After(now.Add(takenAtSkew)) {
			return Dose{}, fmt.Errorf("%w: taken_at in the future", ErrInvalidInput)
		}
		d.TakenAt = &at
	}
	if n := strings.TrimSpace(notes); n != "" {
		d.Notes = n
	}
	d.RecordedBy = strings.TrimSpace(actorID)
	d.UpdatedAt = now

	if err := s.doses.UpdateDose(ctx, d); err != nil {
		return Dose{}, err
	}
	return d, nil
}

func (s *Service) GetDoseForPatient(ctx context.Context, patientID, doseID string) (Dose, error) {
	doseID = strings.TrimSpace(doseID)
	if doseID == "" {
		return Dose{}, ErrDoseNotFound
	}
	d, err := s.doses.GetDose(ctx, doseID)
	if err != nil {
		return Dose{}, err
	}
	if d.PatientID != patientID {
		return Dose{}, ErrDoseNotFound
	}
	return d, nil
}

// ListDoses acepta DoseOverdue como filtro derivado (scheduled vencidas).
func (s *Service) ListDoses(ctx context.Context, filter DoseFilter) ([]Dose, error) {
	if filter.PatientID == "" && filter.MedicationID == "" {
		return nil, fmt.Errorf("%w: patient or medication required", ErrInvalidInput)
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 200
	}

	overdue, scheduled := false, false
	statuses := make([]DoseStatus, 0, len(filter.Statuses)+1)
	for _, st := range filter.Statuses {
		switch st {
		case DoseOverdue:
			overdue = true
			continue
		case DoseScheduled:
			scheduled = true
		}
		statuses = append(statuses, st)
	}
	// overdue se guarda como scheduled
	if overdue && !scheduled {
		statuses = append(statuses, DoseScheduled)
	}
	filter.Statuses = statuses

	now := s.now()
	if overdue && len(statuses) == 1 {
		cutoff := now.Add(-OverdueGrace)
		if filter.To == nil || filter.To.After(cutoff) {
			filter.To = &cutoff
		}
	}

	doses, err := s.doses.ListDoses(ctx, filter)
	if err != nil || !overdue || scheduled {
		return doses, err
	}
	out := doses[:0]
	for _, d := range doses {
		if d.Status == DoseScheduled && d.EffectiveStatus(now) != DoseOverdue {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Now expone el reloj del servicio (los handlers lo usan para EffectiveStatus).
func (s *Service) Now() time.Time {
	return s.now()
}
