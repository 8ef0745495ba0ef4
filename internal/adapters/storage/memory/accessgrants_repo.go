package memory

import (
	"context"
	"sort"
	"sync"

	"patient-care/internal/domain/accessgrants"
)

type grantRepo struct {
	mu   sync.RWMutex
	byID map[string]accessgrants.Grant
}

func NewAccessGrantsRepo() accessgrants.Repository {
	return &grantRepo{
		byID: make(map[string]accessgrants.Grant),
	}
}

func (r *grantRepo) Create(ctx context.Context, g accessgrants.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.ID == "" {
		return errIDRequired
	}
	if _, exists := r.byID[g.ID]; exists {
		return errExists
	}
	g.Scopes = append([]accessgrants.Scope(nil), g.Scopes...)
	r.byID[g.ID] = g
	return nil
}

func (r *grantRepo) Update(ctx context.Context, g accessgrants.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[g.ID]; !exists {
		return accessgrants.ErrNotFound
	}
	g.Scopes = append([]accessgrants.Scope(nil), g.Scopes...)
	r.byID[g.ID] = g
	return nil
}

func (r *grantRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byID[id]
	if !ok {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return g, nil
}

func (r *grantRepo) ListByPatient(ctx context.Context, patientID string) ([]accessgrants.Grant, error) {
	return r.filter(func(g accessgrants.Grant) bool { return g.PatientID == patientID }), nil
}

func (r *grantRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]accessgrants.Grant, error) {
	return r.filter(func(g accessgrants.Grant) bool { return g.GranteeUserID == granteeUserID }), nil
}

// GetActiveGrant: si por datos sucios hubiera varios activos gana el más
// reciente por UpdatedAt y luego CreatedAt.
func (r *grantRepo) GetActiveGrant(ctx context.Context, patientID, granteeUserID string) (accessgrants.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var winner accessgrants.Grant
	has := false
	for _, g := range r.byID {
		if g.PatientID != patientID || g.GranteeUserID != granteeUserID || g.Status != accessgrants.StatusActive {
			continue
		}
		if !has || g.UpdatedAt.After(winner.UpdatedAt) ||
			(g.UpdatedAt.Equal(winner.UpdatedAt) && g.CreatedAt.After(winner.CreatedAt)) {
			winner = g
			has = true
		}
	}
	if !has {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return winner, nil
}

// filter ordena por created_at asc.
func (r *grantRepo) filter(keep func(accessgrants.Grant) bool) []accessgrants.Grant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accessgrants.Grant, 0)
	for _, g := range r.byID {
		if keep(g) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
