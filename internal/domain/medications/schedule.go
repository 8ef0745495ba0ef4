package medications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxDosesPerSchedule acota cuántas tomas genera una sola llamada.
const MaxDosesPerSchedule = 500

// ScheduleDoses genera tomas cada IntervalHours desde StartDate, dentro de
// [from, to] y sin pasar EndDate. Los instantes ya agendados no se duplican.
func (s *Service) ScheduleDoses(ctx context.Context, patientID, medicationID string, from, to time.Time) ([]Dose, error) {
	m, err := s.GetForPatient(ctx, patientID, medicationID)
	if err != nil {
		return nil, err
	}
	if !m.Active {
		return nil, fmt.Errorf("%w: medication discontinued", ErrBadState)
	}
	if !m.Scheduled() {
		return nil, fmt.Errorf("%w: medication is as-needed (interval_hours = 0)", ErrBadState)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to before from", ErrInvalidInput)
	}

	instants := scheduleInstants(m, from, to)
	if len(instants) == 0 {
		return []Dose{}, nil
	}

	existing, err := s.doses.ListDoses(ctx, DoseFilter{
		MedicationID: m.ID,
		From:         &instants[0],
		To:           &instants[len(instants)-1],
	})
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]struct{}, len(existing))
	for _, d := range existing {
		taken[d.ScheduledAt.Unix()] = struct{}{}
	}

	now := s.now()
	out := make([]Dose, 0, len(instants))
	for _, at := range instants {
		if _, dup := taken[at.Unix()]; dup {
			continue
		}
		out = append(out, Dose{
			ID:           uuid.NewString(),
			MedicationID: m.ID,
			PatientID:    m.PatientID,
			ScheduledAt:  at,
			Status:       DoseScheduled,
			Amount:       strings.TrimSpace(m.Dosage + " " + m.Unit),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if len(out) == 0 {
		return out, nil
	}
	if err := s.doses.CreateDoses(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// scheduleInstants alinea los instantes a StartDate + k*interval.
func scheduleInstants(m Medication, from, to time.Time) []time.Time {
	interval := time.Duration(m.IntervalHours) * time.Hour

	start := from
	if start.Before(m.StartDate) {
		start = m.StartDate
	}
	end := to
	if m.EndDate != nil && m.EndDate.Before(end) {
		end = *m.EndDate
	}
	if end.Before(start) {
		return nil
	}

	k := start.Sub(m.StartDate) / interval
	t := m.StartDate.Add(k * interval)
	if t.Before(start) {
		t = t.Add(interval)
	}

	out := make([]time.Time, 0)
	for !t.After(end) && len(out) < MaxDosesPerSchedule {
		out = append(out, t)
		t = t.Add(interval)
	}
	return out
}
