package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"patient-care/internal/domain/accessgrants"
	"patient-care/internal/domain/carelogs"
	"patient-care/internal/domain/carelogs/details"
	"patient-care/internal/domain/medications"
	"patient-care/internal/domain/registration"
	"patient-care/internal/domain/users"
)

func TestDoseRepo_CreateDoses_AllOrNothing(t *testing.T) {
	repo := NewDoseRepo()
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	if err := repo.CreateDoses(ctx, []medications.Dose{{ID: "d-1", MedicationID: "m-1", ScheduledAt: at}}); err != nil {
		t.Fatalf("CreateDoses error: %v", err)
	}

	err := repo.CreateDoses(ctx, []medications.Dose{
		{ID: "d-2", MedicationID: "m-1", ScheduledAt: at.Add(time.Hour)},
		{ID: "d-1", MedicationID: "m-1", ScheduledAt: at.Add(2 * time.Hour)},
	})
	if err == nil {
		t.Fatalf("expected error on duplicate id")
	}
	if _, err := repo.GetDose(ctx, "d-2"); !errors.Is(err, medications.ErrDoseNotFound) {
		t.Fatalf("expected d-2 not stored after failed batch, got %v", err)
	}
}

func TestDoseRepo_DeleteScheduledAfter_KeepsRecorded(t *testing.T) {
	repo := NewDoseRepo()
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	_ = repo.CreateDoses(ctx, []medications.Dose{
		{ID: "past", MedicationID: "m-1", ScheduledAt: at.Add(-time.Hour), Status: medications.DoseScheduled},
		{ID: "future", MedicationID: "m-1", ScheduledAt: at.Add(time.Hour), Status: medications.DoseScheduled},
		{ID: "future-taken", MedicationID: "m-1", ScheduledAt: at.Add(2 * time.Hour), Status: medications.DoseTaken},
		{ID: "other-med", MedicationID: "m-2", ScheduledAt: at.Add(time.Hour), Status: medications.DoseScheduled},
	})

	if err := repo.DeleteScheduledAfter(ctx, "m-1", at); err != nil {
		t.Fatalf("DeleteScheduledAfter error: %v", err)
	}

	left, _ := repo.ListDoses(ctx, medications.DoseFilter{MedicationID: "m-1"})
	if len(left) != 2 || left[0].ID != "past" || left[1].ID != "future-taken" {
		t.Fatalf("unexpected remaining doses %#v", left)
	}
	if _, err := repo.GetDose(ctx, "other-med"); err != nil {
		t.Fatalf("other medication's dose must survive: %v", err)
	}
}

func TestGrantRepo_GetActiveGrant_PicksMostRecent(t *testing.T) {
	repo := NewAccessGrantsRepo()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	_ = repo.Create(ctx, accessgrants.Grant{ID: "g-old", PatientID: "p-1", GranteeUserID: "d-1", Status: accessgrants.StatusActive, CreatedAt: base, UpdatedAt: base})
	_ = repo.Create(ctx, accessgrants.Grant{ID: "g-new", PatientID: "p-1", GranteeUserID: "d-1", Status: accessgrants.StatusActive, CreatedAt: base, UpdatedAt: base.Add(time.Minute)})
	_ = repo.Create(ctx, accessgrants.Grant{ID: "g-revoked", PatientID: "p-1", GranteeUserID: "d-1", Status: accessgrants.StatusRevoked, CreatedAt: base, UpdatedAt: base.Add(time.Hour)})

	g, err := repo.GetActiveGrant(ctx, "p-1", "d-1")
	if err != nil || g.ID != "g-new" {
		t.Fatalf("expected g-new, got %#v %v", g, err)
	}
	if _, err := repo.GetActiveGrant(ctx, "p-1", "d-2"); !errors.Is(err, accessgrants.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepo_EmailIsUnique(t *testing.T) {
	repo := NewUserRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, users.User{ID: "u-1", Email: "carer@example.com"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.Create(ctx, users.User{ID: "u-2", Email: "carer@example.com"}); !errors.Is(err, users.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	u, err := repo.GetByEmail(ctx, "carer@example.com")
	if err != nil || u.ID != "u-1" {
		t.Fatalf("unexpected user %#v %v", u, err)
	}
}

func TestOutbox_ClaimIsExclusive(t *testing.T) {
	repo := NewOutbox()
	ctx := context.Background()
	_ = repo.Enqueue(ctx, registration.Submission{ID: "s-1", Status: registration.SubmissionPending})

	wins := make(chan bool, 8)
	for i := 0; i < cap(wins); i++ {
		go func() {
			ok, _ := repo.Claim(ctx, "s-1")
			wins <- ok
		}()
	}
	won := 0
	for i := 0; i < cap(wins); i++ {
		if <-wins {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one claim, got %d", won)
	}

	if n, _ := repo.ReleaseClaims(ctx); n != 1 {
		t.Fatalf("expected 1 released claim, got %d", n)
	}
	if pending, _ := repo.ListPending(ctx, "", 0); len(pending) != 1 {
		t.Fatalf("expected submission back in pending")
	}
}

func TestCareLogRepo_QuerySearchesDetailText(t *testing.T) {
	svc := carelogs.NewService(NewCareLogRepo())
	ctx := context.Background()
	actor := carelogs.Actor{Type: carelogs.ActorTypeOwnerUser, ID: "owner-1"}

	note, err := svc.Create(ctx, "patient-1", actor, carelogs.CreateInput{
		Kind: carelogs.KindNote,
		Note: &details.Note{Text: "refused lunch, nauseous"},
	})
	if err != nil {
		t.Fatalf("Create note error: %v", err)
	}
	hist, err := svc.Create(ctx, "patient-1", actor, carelogs.CreateInput{
		Kind:    carelogs.KindHistory,
		Title:   "Old chart",
		History: &details.History{Condition: "Hypertension"},
	})
	if err != nil {
		t.Fatalf("Create history error: %v", err)
	}

	tests := []struct {
		q    string
		want string
	}{
		{"LUNCH", note.ID},
		{"hypertension", hist.ID},
	}
	for _, tt := range tests {
		got, err := svc.ListByPatient(ctx, "patient-1", carelogs.ListFilter{Query: tt.q})
		if err != nil {
			t.Fatalf("ListByPatient(%q) error: %v", tt.q, err)
		}
		if len(got) != 1 || got[0].ID != tt.want {
			t.Fatalf("q=%q: expected 1 match, got %d", tt.q, len(got))
		}
	}
}
