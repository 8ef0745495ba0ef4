package carelogs

import (
	"context"
	"errors"
	"testing"
	"time"

	"patient-care/internal/domain/carelogs/details"
)

type testRepo struct {
	byID map[string]LogEntry
}

func (r *testRepo) Create(ctx context.Context, e LogEntry) error { r.byID[e.ID] = e; return nil }

func (r *testRepo) GetByID(ctx context.Context, id string) (LogEntry, error) {
	e, ok := r.byID[id]
	if !ok {
		return LogEntry{}, ErrNotFound
	}
	return e, nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientID string, f ListFilter) ([]LogEntry, error) {
	out := make([]LogEntry, 0)
	for _, e := range r.byID {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *testRepo) DeleteByPatient(ctx context.Context, patientID string) error {
	for id, e := range r.byID {
		if e.PatientID == patientID {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *testRepo) Void(ctx context.Context, id string, at time.Time) error {
	e, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = StatusVoided
	e.VoidedAt = &at
	r.byID[id] = e
	return nil
}

var owner = Actor{Type: ActorTypeOwnerUser, ID: "owner-1"}

func f64(v float64) *float64 { return &v }

func newTestService(now time.Time) *Service {
	svc := NewService(&testRepo{byID: map[string]LogEntry{}})
	svc.now = func() time.Time { return now }
	return svc
}

func TestService_Create_Vitals(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()

	e, err := svc.Create(ctx, "patient-1", owner, CreateInput{
		Kind:  KindVital,
		Vital: &details.Vital{Type: "blood_pressure", Value: 120, Secondary: f64(80)},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if e.Detail.Vital == nil || e.Detail.Vital.Unit != "mmHg" {
		t.Fatalf("expected default unit mmHg, got %#v", e.Detail.Vital)
	}
	if e.Title != "blood_pressure 120/80 mmHg" || !e.OccurredAt.Equal(now) || e.Status != StatusActive {
		t.Fatalf("unexpected entry %#v", e)
	}

	bad := []struct {
		name  string
		vital details.Vital
	}{
		{"unknown type", details.Vital{Type: "pain", Value: 3}},
		{"bp without diastolic", details.Vital{Type: details.VitalBloodPressure, Value: 120}},
		{"diastolic above systolic", details.Vital{Type: details.VitalBloodPressure, Value: 90, Secondary: f64(95)}},
		{"secondary on heart rate", details.Vital{Type: details.VitalHeartRate, Value: 70, Secondary: f64(1)}},
		{"saturation above 100", details.Vital{Type: details.VitalOxygenSaturation, Value: 101}},
		{"wrong unit", details.Vital{Type: details.VitalTemperature, Value: 37, Unit: "K"}},
		{"celsius range on fahrenheit", details.Vital{Type: details.VitalTemperature, Value: 37, Unit: "F"}},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			v := tc.vital
			if _, err := svc.Create(ctx, "patient-1", owner, CreateInput{Kind: KindVital, Vital: &v}); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	f, err := svc.Create(ctx, "patient-1", owner, CreateInput{
		Kind:  KindVital,
		Vital: &details.Vital{Type: details.VitalTemperature, Value: 99.5, Unit: "f"},
	})
	if err != nil || f.Detail.Vital.Unit != "F" {
		t.Fatalf("expected fahrenheit accepted, got %#v %v", f.Detail.Vital, err)
	}
}

func TestService_Create_KindDetailMismatch(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"unknown kind", CreateInput{Kind: "MOOD", Note: &details.Note{Text: "ok"}}},
		{"note without detail", CreateInput{Kind: KindNote}},
		{"blank note", CreateInput{Kind: KindNote, Note: &details.Note{Text: "  "}}},
		{"history without condition", CreateInput{Kind: KindHistory, History: &details.History{}}},
		{"two details", CreateInput{Kind: KindNote, Note: &details.Note{Text: "x"}, Vital: &details.Vital{Type: "weight", Value: 70}}},
		{"future occurred_at", CreateInput{Kind: KindNote, Note: &details.Note{Text: "x"}, OccurredAt: now.Add(time.Hour)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, "patient-1", owner, tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if _, err := svc.Create(ctx, "patient-1", Actor{}, CreateInput{Kind: KindNote, Note: &details.Note{Text: "x"}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without actor, got %v", err)
	}

	h, err := svc.Create(ctx, "patient-1", owner, CreateInput{
		Kind:    KindHistory,
		History: &details.History{Condition: " Asthma "},
		Title:   "Childhood asthma",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if h.Detail.History.Condition != "Asthma" || h.Title != "Childhood asthma" {
		t.Fatalf("unexpected entry %#v", h)
	}
}

func TestService_Void_IsIdempotent(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()

	e, _ := svc.Create(ctx, "patient-1", owner, CreateInput{Kind: KindNote, Note: &details.Note{Text: "Slept well"}})

	if _, err := svc.Void(ctx, "patient-2", e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign patient, got %v", err)
	}

	voided, err := svc.Void(ctx, "patient-1", e.ID)
	if err != nil {
		t.Fatalf("Void error: %v", err)
	}
	if voided.Status != StatusVoided || voided.VoidedAt == nil {
		t.Fatalf("unexpected entry %#v", voided)
	}

	again, err := svc.Void(ctx, "patient-1", e.ID)
	if err != nil || again.Status != StatusVoided {
		t.Fatalf("expected idempotent void, got %#v %v", again, err)
	}
}

func TestService_ListByPatient_NormalizesFilter(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, "patient-1", owner, CreateInput{Kind: KindNote, Note: &details.Note{Text: "entry"}}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	items, err := svc.ListByPatient(ctx, "patient-1", ListFilter{Limit: 500})
	if err != nil || len(items) != 3 {
		t.Fatalf("expected 3 items, got %d %v", len(items), err)
	}

	if _, err := svc.ListByPatient(ctx, "patient-1", ListFilter{Kinds: []Kind{"BAD"}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown kind, got %v", err)
	}
	from := now
	to := now.Add(-time.Hour)
	if _, err := svc.ListByPatient(ctx, "patient-1", ListFilter{From: &from, To: &to}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for inverted range, got %v", err)
	}
}
