package careplans

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testRepo struct {
	byID map[string]CarePlan
}

func (r *testRepo) Create(ctx context.Context, cp CarePlan) error { r.byID[cp.ID] = cp; return nil }
func (r *testRepo) Update(ctx context.Context, cp CarePlan) error { r.byID[cp.ID] = cp; return nil }
func (r *testRepo) Delete(ctx context.Context, id string) error   { delete(r.byID, id); return nil }

func (r *testRepo) GetByID(ctx context.Context, id string) (CarePlan, error) {
	cp, ok := r.byID[id]
	if !ok {
		return CarePlan{}, ErrNotFound
	}
	return cp, nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientID string) ([]CarePlan, error) {
	out := make([]CarePlan, 0)
	for _, cp := range r.byID {
		if cp.PatientID == patientID {
			out = append(out, cp)
		}
	}
	return out, nil
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestService_Create_DefaultsAndValidation(t *testing.T) {
	svc := NewService(&testRepo{byID: map[string]CarePlan{}})
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := svc.Create(ctx, "patient-1", "owner-1", CreateInput{Diagnosis: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank diagnosis, got %v", err)
	}
	if _, err := svc.Create(ctx, "patient-1", "owner-1", CreateInput{
		Diagnosis: "Hypertension",
		StartDate: date(2026, 2, 10),
		EndDate:   date(2026, 2, 1),
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for end before start, got %v", err)
	}

	cp, err := svc.Create(ctx, "patient-1", "owner-1", CreateInput{Diagnosis: " Hypertension ", Treatment: "Low sodium diet"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if cp.Diagnosis != "Hypertension" || cp.Status != StatusActive || !cp.StartDate.Equal(now) {
		t.Fatalf("unexpected care plan %#v", cp)
	}
}

func TestService_Close_IsIdempotent_AndBlocksUpdates(t *testing.T) {
	svc := NewService(&testRepo{byID: map[string]CarePlan{}})
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	cp, _ := svc.Create(ctx, "patient-1", "owner-1", CreateInput{Diagnosis: "Diabetes type 2"})

	if _, err := svc.GetForPatient(ctx, "patient-2", cp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign patient, got %v", err)
	}

	closed, err := svc.Close(ctx, "patient-1", cp.ID)
	if err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if closed.Status != StatusClosed || closed.EndDate == nil || !closed.EndDate.Equal(now) {
		t.Fatalf("unexpected closed plan %#v", closed)
	}

	again, err := svc.Close(ctx, "patient-1", cp.ID)
	if err != nil || again.Status != StatusClosed {
		t.Fatalf("expected idempotent close, got %#v %v", again, err)
	}

	notes := "new notes"
	if _, err := svc.Update(ctx, "patient-1", cp.ID, UpdateInput{Notes: &notes}); !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState updating closed plan, got %v", err)
	}
}

func TestService_Delete_ScopedToPatient(t *testing.T) {
	repo := &testRepo{byID: map[string]CarePlan{}}
	svc := NewService(repo)
	ctx := context.Background()

	cp, err := svc.Create(ctx, "patient-1", "owner-1", CreateInput{Diagnosis: "COPD"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := svc.Delete(ctx, "patient-2", cp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting from another patient, got %v", err)
	}
	if _, ok := repo.byID[cp.ID]; !ok {
		t.Fatalf("plan must survive a foreign delete")
	}

	if err := svc.Delete(ctx, "patient-1", cp.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := svc.GetForPatient(ctx, "patient-1", cp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, "patient-1", cp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestService_DeleteByPatient(t *testing.T) {
	repo := &testRepo{byID: map[string]CarePlan{}}
	svc := NewService(repo)
	ctx := context.Background()

	_, _ = svc.Create(ctx, "patient-1", "owner-1", CreateInput{Diagnosis: "COPD"})
	_, _ = svc.Create(ctx, "patient-1", "owner-1", CreateInput{Diagnosis: "Hypertension"})
	keep, _ := svc.Create(ctx, "patient-2", "owner-2", CreateInput{Diagnosis: "Asthma"})

	if err := svc.DeleteByPatient(ctx, "patient-1"); err != nil {
		t.Fatalf("DeleteByPatient error: %v", err)
	}
	if len(repo.byID) != 1 || repo.byID[keep.ID].ID != keep.ID {
		t.Fatalf("expected only patient-2's plan left, got %d", len(repo.byID))
	}
}
