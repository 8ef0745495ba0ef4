package accessgrants

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadState     = errors.New("invalid state")
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

type InviteInput struct {
	PatientID     string
	OwnerUserID   string
	GranteeUserID string
	Scopes        []Scope
}

// Invite crea la invitación de un caregiver sobre un paciente. Si el caregiver
// ya tiene un grant vivo (invited o active) se le cambian los scopes.
func (s *Service) Invite(ctx context.Context, in InviteInput) (Grant, error) {
	patientID := strings.TrimSpace(in.PatientID)
	ownerID := strings.TrimSpace(in.OwnerUserID)
	granteeID := strings.TrimSpace(in.GranteeUserID)
	if patientID == "" || ownerID == "" || granteeID == "" || ownerID == granteeID {
		return Grant{}, ErrInvalidInput
	}

	scopes := append([]Scope(nil), DefaultScopes...)
	if len(in.Scopes) > 0 {
		var err error
		if scopes, err = normalizeScopesStrict(in.Scopes); err != nil {
			return Grant{}, err
		}
		if len(scopes) == 0 {
			return Grant{}, ErrInvalidInput
		}
	}

	live, err := s.liveGrants(ctx, patientID, granteeID)
	if err != nil {
		return Grant{}, err
	}
	now := s.now()

	if len(live) > 0 {
		g := live[0]
		s.revoke(ctx, live[1:], now)
		g.Scopes = scopes
		g.UpdatedAt = now
		if err := s.repo.Update(ctx, g); err != nil {
			return Grant{}, err
		}
		return g, nil
	}

	g := Grant{
		ID:            uuid.NewString(),
		PatientID:     patientID,
		OwnerUserID:   ownerID,
		GranteeUserID: granteeID,
		Scopes:        scopes,
		Status:        StatusInvited,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// Accept activa el grant y revoca cualquier otro vivo del mismo
// (paciente, grantee).
func (s *Service) Accept(ctx context.Context, grantID, granteeUserID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	granteeUserID = strings.TrimSpace(granteeUserID)
	if grantID == "" || granteeUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	if g.GranteeUserID != granteeUserID {
		return Grant{}, ErrForbidden
	}
	if g.Status == StatusActive {
		return g, nil
	}
	if g.Status != StatusInvited {
		return Grant{}, ErrBadState
	}

	live, err := s.liveGrants(ctx, g.PatientID, g.GranteeUserID)
	if err != nil {
		return Grant{}, err
	}
	now := s.now()
	others := make([]Grant, 0, len(live))
	for _, o := range live {
		if o.ID != g.ID {
			others = append(others, o)
		}
	}
	s.revoke(ctx, others, now)

	g.Status = StatusActive
	g.UpdatedAt = now
	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

func (s *Service) Revoke(ctx context.Context, grantID, ownerUserID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	ownerUserID = strings.TrimSpace(ownerUserID)
	if grantID == "" || ownerUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	if g.OwnerUserID != ownerUserID {
		return Grant{}, ErrForbidden
	}
	if g.Status == StatusRevoked {
		return g, nil
	}

	revokeAt(&g, s.now())
	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// RevokeByPatient revoca todos los grants vivos de un paciente que se borra.
func (s *Service) RevokeByPatient(ctx context.Context, patientID string) error {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	now := s.now()
	for _, g := range items {
		if g.Status == StatusRevoked {
			continue
		}
		revokeAt(&g, now)
		if err := s.repo.Update(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Grant, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListByGrantee(ctx context.Context, granteeUserID string) ([]Grant, error) {
	granteeUserID = strings.TrimSpace(granteeUserID)
	if granteeUserID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByGrantee(ctx, granteeUserID)
}

func (s *Service) GetActiveGrant(ctx context.Context, patientID, granteeUserID string) (Grant, error) {
	patientID = strings.TrimSpace(patientID)
	granteeUserID = strings.TrimSpace(granteeUserID)
	if patientID == "" || granteeUserID == "" {
		return Grant{}, ErrInvalidInput
	}
	g, err := s.repo.GetActiveGrant(ctx, patientID, granteeUserID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	return g, nil
}

// HasScope valida si el grant incluye un scope.
func HasScope(g Grant, scope Scope) bool {
	for _, s := range g.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// liveGrants devuelve los grants no revocados del grantee sobre el paciente,
// el más recientemente actualizado primero.
func (s *Service) liveGrants(ctx context.Context, patientID, granteeID string) ([]Grant, error) {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	live := make([]Grant, 0, len(items))
	for _, g := range items {
		if g.GranteeUserID == granteeID && g.Status != StatusRevoked {
			live = append(live, g)
		}
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].UpdatedAt.After(live[j].UpdatedAt) })
	return live, nil
}

// revoke es best-effort: un fallo no invalida la operación que lo pidió.
func (s *Service) revoke(ctx context.Context, grants []Grant, now time.Time) {
	for _, g := range grants {
		revokeAt(&g, now)
		_ = s.repo.Update(ctx, g)
	}
}

func revokeAt(g *Grant, now time.Time) {
	g.Status = StatusRevoked
	g.UpdatedAt = now
	g.RevokedAt = &now
}

func normalizeScopesStrict(in []Scope) ([]Scope, error) {
	allowed := make(map[Scope]struct{}, len(AllScopes))
	for _, s := range AllScopes {
		allowed[s] = struct{}{}
	}

	seen := map[Scope]struct{}{}
	out := make([]Scope, 0, len(in))

	for _, raw := range in {
		s := Scope(strings.TrimSpace(string(raw)))
		if s == "" {
			continue
		}
		if _, ok := allowed[s]; !ok {
			return nil, ErrInvalidInput
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out, nil
}
