package localcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"patient-care/internal/domain/registration"
)

func openTestDB(t *testing.T) *OutboxRepo {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewOutboxRepo(db)
}

func TestOutboxRepo_PendingOldestFirst(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	subs := []registration.Submission{
		{ID: "s-2", OwnerUserID: "owner-1", Payload: []byte(`{}`), Status: registration.SubmissionPending, CreatedAt: base.Add(2 * time.Minute), UpdatedAt: base},
		{ID: "s-1", OwnerUserID: "owner-1", Payload: []byte(`{}`), Status: registration.SubmissionPending, CreatedAt: base.Add(time.Minute), UpdatedAt: base},
		{ID: "s-3", OwnerUserID: "owner-2", Payload: []byte(`{}`), Status: registration.SubmissionPending, CreatedAt: base.Add(3 * time.Minute), UpdatedAt: base},
	}
	for _, s := range subs {
		if err := repo.Enqueue(ctx, s); err != nil {
			t.Fatalf("Enqueue error: %v", err)
		}
	}

	all, err := repo.ListPending(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListPending error: %v", err)
	}
	if len(all) != 3 || all[0].ID != "s-1" || all[2].ID != "s-3" {
		t.Fatalf("unexpected order %v", ids(all))
	}

	mine, _ := repo.ListPending(ctx, "owner-1", 1)
	if len(mine) != 1 || mine[0].ID != "s-1" {
		t.Fatalf("unexpected owner filter %v", ids(mine))
	}

	s1 := all[0]
	s1.Status = registration.SubmissionSynced
	s1.PatientID = "patient-9"
	s1.Attempts = 1
	if err := repo.Update(ctx, s1); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	got, err := repo.GetByID(ctx, "s-1")
	if err != nil || got.Status != registration.SubmissionSynced || got.PatientID != "patient-9" || !got.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected submission %#v %v", got, err)
	}

	pending, _ := repo.ListPending(ctx, "owner-1", 0)
	if len(pending) != 1 || pending[0].ID != "s-2" {
		t.Fatalf("expected only s-2 pending, got %v", ids(pending))
	}

	byOwner, _ := repo.ListByOwner(ctx, "owner-1")
	if len(byOwner) != 2 || byOwner[0].ID != "s-2" {
		t.Fatalf("expected newest first, got %v", ids(byOwner))
	}
}

func TestOutboxRepo_NotFound(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, registration.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Update(ctx, registration.Submission{ID: "missing"}); !errors.Is(err, registration.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestOutboxRepo_ClaimOnce(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	sub := registration.Submission{ID: "s-1", OwnerUserID: "owner-1", Payload: []byte(`{}`), Status: registration.SubmissionPending, CreatedAt: now, UpdatedAt: now}
	if err := repo.Enqueue(ctx, sub); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}

	ok, err := repo.Claim(ctx, "s-1")
	if err != nil || !ok {
		t.Fatalf("expected first claim to win, got %v %v", ok, err)
	}
	ok, err = repo.Claim(ctx, "s-1")
	if err != nil || ok {
		t.Fatalf("expected second claim to lose, got %v %v", ok, err)
	}
	if pending, _ := repo.ListPending(ctx, "", 0); len(pending) != 0 {
		t.Fatalf("claimed submission still listed as pending: %v", ids(pending))
	}
	if _, err := repo.Claim(ctx, "missing"); !errors.Is(err, registration.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, err := repo.ReleaseClaims(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 released claim, got %d %v", n, err)
	}
	got, _ := repo.GetByID(ctx, "s-1")
	if got.Status != registration.SubmissionPending {
		t.Fatalf("expected pending after release, got %s", got.Status)
	}
}

func ids(subs []registration.Submission) []string {
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.ID)
	}
	return out
}
