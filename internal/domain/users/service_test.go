package users

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"patient-care/internal/ports/auth"
)

type testRepo struct {
	byID map[string]User
}

func newTestRepo() *testRepo { return &testRepo{byID: map[string]User{}} }

func (r *testRepo) Create(ctx context.Context, u User) error {
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	r.byID[u.ID] = u
	return nil
}

func (r *testRepo) Update(ctx context.Context, u User) error {
	if _, ok := r.byID[u.ID]; !ok {
		return ErrNotFound
	}
	r.byID[u.ID] = u
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (User, error) {
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *testRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(c auth.Claims) (auth.Token, error) {
	return auth.Token{AccessToken: "token-for-" + c.UserID, ExpiresAt: time.Unix(0, 0)}, nil
}

type fakeTOTP struct{}

func (fakeTOTP) Generate(account string) (string, string, error) {
	return "SECRET", "otpauth://totp/patient-care:" + account, nil
}

func (fakeTOTP) Validate(code, secret string, at time.Time) bool {
	return secret == "SECRET" && code == "123456"
}

func newTestService() (*Service, *testRepo) {
	repo := newTestRepo()
	svc := NewService(repo, fakeIssuer{})
	svc.totp = fakeTOTP{}
	return svc, repo
}

func TestService_Register_ValidatesAndNormalizes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	bad := []RegisterInput{
		{Email: "", Password: "longenough", DisplayName: "Ana"},
		{Email: "no-at-sign", Password: "longenough", DisplayName: "Ana"},
		{Email: "ana@example.com", Password: "short", DisplayName: "Ana"},
		{Email: "ana@example.com", Password: "longenough", DisplayName: "  "},
		{Email: "ana@example.com", Password: strings.Repeat("x", 73), DisplayName: "Ana"},
	}
	for _, in := range bad {
		if _, err := svc.Register(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %#v, got %v", in, err)
		}
	}

	u, err := svc.Register(ctx, RegisterInput{Email: "  Ana@Example.COM ", Password: "longenough", DisplayName: "Ana"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if u.Email != "ana@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if u.PasswordHash == "" || u.PasswordHash == "longenough" {
		t.Fatalf("expected bcrypt hash")
	}

	if _, err := svc.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "longenough", DisplayName: "Ana 2"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestService_Login(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "longenough", DisplayName: "Ana"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if _, _, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "longenough"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	got, tok, err := svc.Login(ctx, LoginInput{Email: "ANA@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if got.ID != u.ID || tok.AccessToken != "token-for-"+u.ID {
		t.Fatalf("unexpected login result %#v %#v", got, tok)
	}
}

func TestService_Login_WithoutTokenIssuer(t *testing.T) {
	svc := NewService(newTestRepo(), nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "ana@example.com", Password: strings.Repeat("x", 72), DisplayName: "Ana"}); err != nil {
		t.Fatalf("expected 72-byte password accepted, got %v", err)
	}
	if _, _, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: strings.Repeat("x", 72)}); !errors.Is(err, ErrTokensUnavailable) {
		t.Fatalf("expected ErrTokensUnavailable, got %v", err)
	}
}

func TestService_MFA_EnrollConfirmAndLogin(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	u, _ := svc.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "longenough", DisplayName: "Ana"})

	if _, err := svc.ConfirmMFA(ctx, u.ID, "123456"); !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState confirming before enroll, got %v", err)
	}

	e, err := svc.EnrollMFA(ctx, u.ID)
	if err != nil {
		t.Fatalf("EnrollMFA error: %v", err)
	}
	if e.Secret != "SECRET" || e.ProvisioningURI == "" {
		t.Fatalf("unexpected enrollment %#v", e)
	}
	if repo.byID[u.ID].MFAEnabled {
		t.Fatalf("mfa must stay disabled until confirmed")
	}

	if _, err := svc.ConfirmMFA(ctx, u.ID, "000000"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong code, got %v", err)
	}
	confirmed, err := svc.ConfirmMFA(ctx, u.ID, "123456")
	if err != nil || !confirmed.MFAEnabled {
		t.Fatalf("expected mfa enabled, got %#v %v", confirmed, err)
	}

	if _, _, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "longenough"}); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected ErrMFARequired, got %v", err)
	}
	if _, _, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "longenough", OTPCode: "999999"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad otp, got %v", err)
	}
	if _, _, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "longenough", OTPCode: "123456"}); err != nil {
		t.Fatalf("expected login with otp to succeed, got %v", err)
	}

	if _, err := svc.EnrollMFA(ctx, u.ID); !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState re-enrolling, got %v", err)
	}
}

func TestPquernaTOTP_RoundTrip(t *testing.T) {
	p := pquernaTOTP{issuer: "patient-care"}
	secret, uri, err := p.Generate("ana@example.com")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if secret == "" || uri == "" {
		t.Fatalf("expected secret and uri")
	}
	if p.Validate("not-a-code", secret, time.Now()) {
		t.Fatalf("expected garbage code to be rejected")
	}
}
