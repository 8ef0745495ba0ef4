package jwtauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"patient-care/internal/ports/auth"
)

func TestManager_IssueThenVerify(t *testing.T) {
	m := New(Config{Secret: "s3cret", TTL: time.Hour})

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	tok, err := m.Issue(auth.Claims{UserID: "user-1", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !tok.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", tok.ExpiresAt)
	}

	c, err := m.Verify(context.Background(), tok.AccessToken)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if c.UserID != "user-1" || c.Email != "ana@example.com" {
		t.Fatalf("unexpected claims %#v", c)
	}
}

func TestManager_Verify_RejectsExpired(t *testing.T) {
	m := New(Config{Secret: "s3cret", TTL: time.Minute})

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	tok, err := m.Issue(auth.Claims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := m.Verify(context.Background(), tok.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestManager_Verify_RejectsOtherSecret(t *testing.T) {
	a := New(Config{Secret: "a"})
	b := New(Config{Secret: "b"})

	tok, err := a.Issue(auth.Claims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := b.Verify(context.Background(), tok.AccessToken); err == nil {
		t.Fatalf("expected error verifying with another secret")
	}
	if _, err := b.Verify(context.Background(), "  "); !errors.Is(err, ErrTokenEmpty) {
		t.Fatalf("expected ErrTokenEmpty, got %v", err)
	}
}
