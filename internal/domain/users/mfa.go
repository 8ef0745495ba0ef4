package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// TOTP abstrae generación/validación de códigos (tests usan un fake).
type TOTP interface {
	Generate(accountName string) (secret, uri string, err error)
	Validate(code, secret string, at time.Time) bool
}

type pquernaTOTP struct {
	issuer string
}

func (p pquernaTOTP) Generate(accountName string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func (p pquernaTOTP) Validate(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: 6,
	})
	return err == nil && ok
}

// Enrollment es lo que necesita la app para configurar el autenticador.
type Enrollment struct {
	Secret          string
	ProvisioningURI string
}

// EnrollMFA genera un secreto nuevo (pendiente hasta ConfirmMFA).
func (s *Service) EnrollMFA(ctx context.Context, userID string) (Enrollment, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return Enrollment{}, err
	}
	if u.MFAEnabled {
		return Enrollment{}, fmt.Errorf("%w: mfa already enabled", ErrBadState)
	}

	secret, uri, err := s.totp.Generate(u.Email)
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate totp: %w", err)
	}

	u.MFASecret = secret
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return Enrollment{}, err
	}
	return Enrollment{Secret: secret, ProvisioningURI: uri}, nil
}

// ConfirmMFA activa TOTP si el código corresponde al secreto enrolado.
func (s *Service) ConfirmMFA(ctx context.Context, userID, code string) (User, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if u.MFASecret == "" {
		return User{}, fmt.Errorf("%w: enroll first", ErrBadState)
	}
	if u.MFAEnabled {
		return u, nil
	}
	if !s.totp.Validate(strings.TrimSpace(code), u.MFASecret, s.now()) {
		return User{}, ErrInvalidCredentials
	}

	u.MFAEnabled = true
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}
