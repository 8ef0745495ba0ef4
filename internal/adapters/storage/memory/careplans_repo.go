package memory

import (
	"context"
	"sort"
	"sync"

	"patient-care/internal/domain/careplans"
)

type carePlanRepo struct {
	mu   sync.RWMutex
	byID map[string]careplans.CarePlan
}

func NewCarePlanRepo() careplans.Repository {
	return &carePlanRepo{
		byID: make(map[string]careplans.CarePlan),
	}
}

func (r *carePlanRepo) Create(ctx context.Context, cp careplans.CarePlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cp.ID == "" {
		return errIDRequired
	}
	if _, exists := r.byID[cp.ID]; exists {
		return errExists
	}
	r.byID[cp.ID] = cp
	return nil
}

func (r *carePlanRepo) Update(ctx context.Context, cp careplans.CarePlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[cp.ID]; !exists {
		return careplans.ErrNotFound
	}
	r.byID[cp.ID] = cp
	return nil
}

func (r *carePlanRepo) GetByID(ctx context.Context, id string) (careplans.CarePlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp, ok := r.byID[id]
	if !ok {
		return careplans.CarePlan{}, careplans.ErrNotFound
	}
	return cp, nil
}

func (r *carePlanRepo) ListByPatient(ctx context.Context, patientID string) ([]careplans.CarePlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]careplans.CarePlan, 0)
	for _, cp := range r.byID {
		if cp.PatientID == patientID {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out, nil
}

// Delete no toca las medicaciones que apuntan al plan (quedan con el id colgado).
func (r *carePlanRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return careplans.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
