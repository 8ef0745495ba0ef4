package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"patient-care/internal/middleware"
	"patient-care/internal/ports/auth"
)

func TestParseTime(t *testing.T) {
	if got, err := ParseTime("  "); err != nil || got != nil {
		t.Fatalf("expected nil for blank, got %v %v", got, err)
	}

	got, err := ParseTime("2026-04-02T08:30:00Z")
	if err != nil || !got.Equal(time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected RFC3339 parse %v %v", got, err)
	}

	got, err = ParseTime("2026-04-02")
	if err != nil || !got.Equal(time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date parse %v %v", got, err)
	}

	if _, err := ParseTime("02/04/2026"); err == nil {
		t.Fatalf("expected error for unknown layout")
	}
}

func TestNullableString(t *testing.T) {
	var req struct {
		BirthDate NullableString `json:"birth_date"`
	}

	_ = json.Unmarshal([]byte(`{}`), &req)
	if req.BirthDate.Present {
		t.Fatalf("absent field must not be present")
	}

	_ = json.Unmarshal([]byte(`{"birth_date":null}`), &req)
	if !req.BirthDate.Present || req.BirthDate.Value != nil {
		t.Fatalf("null must be present with nil value: %#v", req.BirthDate)
	}

	_ = json.Unmarshal([]byte(`{"birth_date":"1941-03-12"}`), &req)
	if req.BirthDate.Value == nil || *req.BirthDate.Value != "1941-03-12" {
		t.Fatalf("unexpected value %#v", req.BirthDate)
	}
}

func TestDecodeJSON_EmptyBody(t *testing.T) {
	var v map[string]any
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(r, &v); err == nil {
		t.Fatalf("expected error for empty body")
	}
}

func TestRequireUser(t *testing.T) {
	rec := httptest.NewRecorder()
	if _, ok := RequireUser(rec, httptest.NewRequest(http.MethodGet, "/", nil)); ok || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without claims, got %d", rec.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(middleware.WithClaims(r.Context(), auth.Claims{UserID: "owner-1"}))
	uid, ok := RequireUser(httptest.NewRecorder(), r)
	if !ok || uid != "owner-1" {
		t.Fatalf("expected owner-1, got %q", uid)
	}
}
