package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"patient-care/internal/ports/auth"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMFARequired        = errors.New("mfa code required")
	ErrBadState           = errors.New("invalid state")
	ErrTokensUnavailable  = errors.New("token issuer not configured")
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt no acepta más bytes
)

type Service struct {
	repo   Repository
	tokens auth.TokenIssuer
	totp   TOTP
	now    func() time.Time
}

func NewService(repo Repository, tokens auth.TokenIssuer) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		totp:   pquernaTOTP{issuer: "patient-care"},
		now:    time.Now,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email required", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return User{}, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	if len(in.Password) > maxPasswordLen {
		return User{}, fmt.Errorf("%w: password must have at most %d bytes", ErrInvalidInput, maxPasswordLen)
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return User{}, fmt.Errorf("%w: display_name required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

type LoginInput struct {
	Email    string
	Password string
	OTPCode  string
}

// Login valida credenciales (y TOTP si está activo) y emite un token.
// Nunca distingue "email inexistente" de "password incorrecto".
func (s *Service) Login(ctx context.Context, in LoginInput) (User, auth.Token, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, auth.Token{}, ErrInvalidCredentials
		}
		return User{}, auth.Token{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return User{}, auth.Token{}, ErrInvalidCredentials
	}

	if u.MFAEnabled {
		code := strings.TrimSpace(in.OTPCode)
		if code == "" {
			return User{}, auth.Token{}, ErrMFARequired
		}
		if !s.totp.Validate(code, u.MFASecret, s.now()) {
			return User{}, auth.Token{}, ErrInvalidCredentials
		}
	}

	if s.tokens == nil {
		return User{}, auth.Token{}, ErrTokensUnavailable
	}
	tok, err := s.tokens.Issue(auth.Claims{UserID: u.ID, Email: u.Email})
	if err != nil {
		return User{}, auth.Token{}, err
	}
	return u, tok, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id string, displayName *string) (User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if displayName != nil {
		name := strings.TrimSpace(*displayName)
		if name == "" {
			return User{}, fmt.Errorf("%w: display_name cannot be blank", ErrInvalidInput)
		}
		u.DisplayName = name
	}
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
