package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"patient-care/internal/domain/carelogs"
)

type careLogRepo struct {
	mu   sync.RWMutex
	byID map[string]carelogs.LogEntry
}

func NewCareLogRepo() carelogs.Repository {
	return &careLogRepo{
		byID: make(map[string]carelogs.LogEntry),
	}
}

func (r *careLogRepo) Create(ctx context.Context, e carelogs.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		return errIDRequired
	}
	if _, exists := r.byID[e.ID]; exists {
		return errExists
	}
	r.byID[e.ID] = e
	return nil
}

func (r *careLogRepo) GetByID(ctx context.Context, id string) (carelogs.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return carelogs.LogEntry{}, carelogs.ErrNotFound
	}
	return e, nil
}

func (r *careLogRepo) ListByPatient(ctx context.Context, patientID string, filter carelogs.ListFilter) ([]carelogs.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = carelogs.DefaultListLimit
	}
	q := strings.ToLower(strings.TrimSpace(filter.Query))

	out := make([]carelogs.LogEntry, 0)
	for _, e := range r.byID {
		if e.PatientID != patientID {
			continue
		}
		if len(filter.Kinds) > 0 && !hasKind(filter.Kinds, e.Kind) {
			continue
		}
		if filter.From != nil && e.OccurredAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.OccurredAt.After(*filter.To) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(searchText(e)), q) {
			continue
		}
		out = append(out, e)
	}

	// occurred_at desc (más reciente primero)
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *careLogRepo) DeleteByPatient(ctx context.Context, patientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.byID {
		if e.PatientID == patientID {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *careLogRepo) Void(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return carelogs.ErrNotFound
	}
	e.Status = carelogs.StatusVoided
	e.VoidedAt = &at
	r.byID[id] = e
	return nil
}

func hasKind(list []carelogs.Kind, k carelogs.Kind) bool {
	for _, x := range list {
		if x == k {
			return true
		}
	}
	return false
}

// searchText junta lo que q puede encontrar: título, notas, texto de la nota
// y condición del antecedente.
func searchText(e carelogs.LogEntry) string {
	parts := []string{e.Title, e.Notes}
	if n := e.Detail.Note; n != nil {
		parts = append(parts, n.Text)
	}
	if h := e.Detail.History; h != nil {
		parts = append(parts, h.Condition)
	}
	return strings.Join(parts, " ")
}
