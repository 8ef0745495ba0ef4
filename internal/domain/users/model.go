package users

import "time"

// User es una cuenta de caregiver.
type User struct {
	ID          string
	Email       string
	DisplayName string

	PasswordHash string

	// TOTP (opcional). MFASecret se guarda al enrolar; MFAEnabled al confirmar.
	MFASecret  string
	MFAEnabled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
