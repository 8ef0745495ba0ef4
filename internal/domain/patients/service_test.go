package patients

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testRepo struct {
	byID map[string]Patient
}

func (r *testRepo) Create(ctx context.Context, p Patient) error { r.byID[p.ID] = p; return nil }
func (r *testRepo) Update(ctx context.Context, p Patient) error { r.byID[p.ID] = p; return nil }
func (r *testRepo) Delete(ctx context.Context, id string) error { delete(r.byID, id); return nil }

func (r *testRepo) GetByID(ctx context.Context, id string) (Patient, error) {
	p, ok := r.byID[id]
	if !ok {
		return Patient{}, ErrNotFound
	}
	return p, nil
}

func (r *testRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]Patient, error) {
	out := make([]Patient, 0)
	for _, p := range r.byID {
		if p.OwnerUserID == ownerUserID {
			out = append(out, p)
		}
	}
	return out, nil
}

func newTestService(now time.Time) *Service {
	svc := NewService(&testRepo{byID: map[string]Patient{}})
	svc.now = func() time.Time { return now }
	return svc
}

func TestService_Create_Validation(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()
	future := now.Add(24 * time.Hour)

	cases := []struct {
		name  string
		owner string
		in    CreateInput
	}{
		{"missing owner", "", CreateInput{FirstName: "Rosa", LastName: "Pérez"}},
		{"blank first name", "owner-1", CreateInput{FirstName: " ", LastName: "Pérez"}},
		{"blank last name", "owner-1", CreateInput{FirstName: "Rosa"}},
		{"unknown sex", "owner-1", CreateInput{FirstName: "Rosa", LastName: "Pérez", Sex: "x"}},
		{"birth date in the future", "owner-1", CreateInput{FirstName: "Rosa", LastName: "Pérez", BirthDate: &future}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.owner, tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	p, err := svc.Create(ctx, "owner-1", CreateInput{FirstName: " Rosa ", LastName: "Pérez", Sex: "FEMALE"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if p.FirstName != "Rosa" || p.Sex != SexFemale || !p.CreatedAt.Equal(now) {
		t.Fatalf("unexpected patient %#v", p)
	}

	p2, _ := svc.Create(ctx, "owner-1", CreateInput{FirstName: "Luis", LastName: "Gómez"})
	if p2.Sex != SexUnknown {
		t.Fatalf("expected default sex unknown, got %s", p2.Sex)
	}
}

func TestService_UpdateProfile_ClearsBirthDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()

	born := time.Date(1941, 3, 12, 0, 0, 0, 0, time.UTC)
	p, _ := svc.Create(ctx, "owner-1", CreateInput{FirstName: "Rosa", LastName: "Pérez", BirthDate: &born})

	phone := " 555-0101 "
	updated, err := svc.UpdateProfile(ctx, p.ID, UpdateProfileInput{
		Phone:     &phone,
		BirthDate: BirthDatePatch{Present: true, Value: nil},
	})
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	if updated.BirthDate != nil || updated.Phone != "555-0101" {
		t.Fatalf("unexpected update %#v", updated)
	}

	blank := ""
	if _, err := svc.UpdateProfile(ctx, p.ID, UpdateProfileInput{LastName: &blank}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank last name, got %v", err)
	}
}

func TestService_Delete_OnlyOwner(t *testing.T) {
	svc := newTestService(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	p, _ := svc.Create(ctx, "owner-1", CreateInput{FirstName: "Rosa", LastName: "Pérez"})

	if err := svc.Delete(ctx, p.ID, "delegate-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	owner, err := svc.OwnerOf(ctx, p.ID)
	if err != nil || owner != "owner-1" {
		t.Fatalf("unexpected owner %q %v", owner, err)
	}
	if err := svc.Delete(ctx, p.ID, "owner-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := svc.OwnerOf(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestService_Delete_RunsHooksBeforeRemoving(t *testing.T) {
	svc := newTestService(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	p, _ := svc.Create(ctx, "owner-1", CreateInput{FirstName: "Rosa", LastName: "Pérez"})

	var calls []string
	failing := true
	svc.OnDelete(
		func(ctx context.Context, id string) error { calls = append(calls, "meds:"+id); return nil },
		func(ctx context.Context, id string) error {
			calls = append(calls, "logs:"+id)
			if failing {
				return errors.New("store down")
			}
			return nil
		},
	)

	if err := svc.Delete(ctx, p.ID, "delegate-1"); !errors.Is(err, ErrForbidden) || len(calls) != 0 {
		t.Fatalf("hooks must not run for a forbidden delete, got %v %v", err, calls)
	}

	if err := svc.Delete(ctx, p.ID, "owner-1"); err == nil {
		t.Fatalf("expected hook error")
	}
	if _, err := svc.OwnerOf(ctx, p.ID); err != nil {
		t.Fatalf("patient must survive a failed cleanup, got %v", err)
	}

	failing = false
	calls = nil
	if err := svc.Delete(ctx, p.ID, "owner-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if len(calls) != 2 || calls[0] != "meds:"+p.ID || calls[1] != "logs:"+p.ID {
		t.Fatalf("unexpected hook calls %v", calls)
	}
	if _, err := svc.OwnerOf(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
