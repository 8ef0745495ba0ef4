package auth

import "time"

// Claims representa la identidad autenticada del caregiver.
type Claims struct {
	UserID string
	Email  string
}

// Token es un bearer token emitido para un usuario.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}
