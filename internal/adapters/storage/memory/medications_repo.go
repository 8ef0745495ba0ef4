package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"patient-care/internal/domain/medications"
)

type medicationRepo struct {
	mu   sync.RWMutex
	byID map[string]medications.Medication
}

func NewMedicationRepo() medications.Repository {
	return &medicationRepo{
		byID: make(map[string]medications.Medication),
	}
}

func (r *medicationRepo) Create(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		return errIDRequired
	}
	if _, exists := r.byID[m.ID]; exists {
		return errExists
	}
	r.byID[m.ID] = m
	return nil
}

func (r *medicationRepo) Update(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID]; !exists {
		return medications.ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *medicationRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return medications.Medication{}, medications.ErrNotFound
	}
	return m, nil
}

func (r *medicationRepo) ListByPatient(ctx context.Context, patientID string, filter medications.ListFilter) ([]medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.Medication, 0)
	for _, m := range r.byID {
		if m.PatientID != patientID {
			continue
		}
		if filter.CarePlanID != "" && m.CarePlanID != filter.CarePlanID {
			continue
		}
		if filter.ActiveOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *medicationRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return medications.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type doseRepo struct {
	mu   sync.RWMutex
	byID map[string]medications.Dose
}

func NewDoseRepo() medications.DoseRepository {
	return &doseRepo{
		byID: make(map[string]medications.Dose),
	}
}

// CreateDoses es todo o nada.
func (r *doseRepo) CreateDoses(ctx context.Context, doses []medications.Dose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range doses {
		if d.ID == "" {
			return errIDRequired
		}
		if _, exists := r.byID[d.ID]; exists {
			return errExists
		}
	}
	for _, d := range doses {
		r.byID[d.ID] = d
	}
	return nil
}

func (r *doseRepo) UpdateDose(ctx context.Context, d medications.Dose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[d.ID]; !exists {
		return medications.ErrDoseNotFound
	}
	r.byID[d.ID] = d
	return nil
}

func (r *doseRepo) GetDose(ctx context.Context, id string) (medications.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return medications.Dose{}, medications.ErrDoseNotFound
	}
	return d, nil
}

func (r *doseRepo) ListDoses(ctx context.Context, filter medications.DoseFilter) ([]medications.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.Dose, 0)
	for _, d := range r.byID {
		if filter.PatientID != "" && d.PatientID != filter.PatientID {
			continue
		}
		if filter.MedicationID != "" && d.MedicationID != filter.MedicationID {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, d.Status) {
			continue
		}
		if filter.From != nil && d.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && d.ScheduledAt.After(*filter.To) {
			continue
		}
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *doseRepo) DeleteByMedication(ctx context.Context, medicationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, d := range r.byID {
		if d.MedicationID == medicationID {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *doseRepo) DeleteScheduledAfter(ctx context.Context, medicationID string, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, d := range r.byID {
		if d.MedicationID == medicationID && d.Status == medications.DoseScheduled && d.ScheduledAt.After(t) {
			delete(r.byID, id)
		}
	}
	return nil
}

func hasStatus(list []medications.DoseStatus, st medications.DoseStatus) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}
