package memory

import (
	"context"
	"sort"
	"sync"

	"patient-care/internal/domain/registration"
)

// outboxRepo sirve para tests del flujo offline; en producción el outbox
// vive en el cache local SQLite.
type outboxRepo struct {
	mu   sync.RWMutex
	byID map[string]registration.Submission
}

func NewOutbox() registration.Outbox {
	return &outboxRepo{
		byID: make(map[string]registration.Submission),
	}
}

func (r *outboxRepo) Enqueue(ctx context.Context, s registration.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == "" {
		return errIDRequired
	}
	if _, exists := r.byID[s.ID]; exists {
		return errExists
	}
	s.Payload = append([]byte(nil), s.Payload...)
	r.byID[s.ID] = s
	return nil
}

func (r *outboxRepo) Update(ctx context.Context, s registration.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[s.ID]; !exists {
		return registration.ErrNotFound
	}
	r.byID[s.ID] = s
	return nil
}

func (r *outboxRepo) GetByID(ctx context.Context, id string) (registration.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return registration.Submission{}, registration.ErrNotFound
	}
	return s, nil
}

func (r *outboxRepo) ListPending(ctx context.Context, ownerUserID string, limit int) ([]registration.Submission, error) {
	out := r.list(func(s registration.Submission) bool {
		return s.Status == registration.SubmissionPending && (ownerUserID == "" || s.OwnerUserID == ownerUserID)
	}, false)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]registration.Submission, error) {
	return r.list(func(s registration.Submission) bool { return s.OwnerUserID == ownerUserID }, true), nil
}

func (r *outboxRepo) Claim(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return false, registration.ErrNotFound
	}
	if s.Status != registration.SubmissionPending {
		return false, nil
	}
	s.Status = registration.SubmissionSyncing
	r.byID[id] = s
	return true, nil
}

func (r *outboxRepo) ReleaseClaims(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.byID {
		if s.Status == registration.SubmissionSyncing {
			s.Status = registration.SubmissionPending
			r.byID[id] = s
			n++
		}
	}
	return n, nil
}

func (r *outboxRepo) list(keep func(registration.Submission) bool, newestFirst bool) []registration.Submission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]registration.Submission, 0)
	for _, s := range r.byID {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
