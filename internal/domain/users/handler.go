package users

import (
	"errors"
	"net/http"
	"time"

	"patient-care/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/auth/register", registerHandler(svc))
	r.Post("/auth/login", loginHandler(svc))

	r.Get("/me", meHandler(svc))
	r.Patch("/me", updateMeHandler(svc))
	r.Post("/me/mfa/enroll", enrollMFAHandler(svc))
	r.Post("/me/mfa/confirm", confirmMFAHandler(svc))
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	MFAEnabled  bool      `json:"mfa_enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

type updateMeRequest struct {
	DisplayName *string `json:"display_name"`
}

type enrollMFAResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

type confirmMFARequest struct {
	Code string `json:"code"`
}

// registerHandler godoc
// @Summary Crear cuenta de caregiver
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerRequest true "Credenciales"
// @Success 201 {object} userResponse
// @Failure 400 {string} string "validación"
// @Failure 409 {string} string "email already registered"
// @Router /auth/register [post]
func registerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		u, err := svc.Register(r.Context(), RegisterInput{
			Email:       req.Email,
			Password:    req.Password,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
	}
}

// loginHandler godoc
// @Summary Login
// @Description Devuelve un bearer token. Si la cuenta tiene MFA, otp_code es obligatorio.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginRequest true "Credenciales"
// @Success 200 {object} loginResponse
// @Failure 401 {string} string "invalid credentials / mfa code required"
// @Router /auth/login [post]
func loginHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		u, tok, err := svc.Login(r.Context(), LoginInput{
			Email:    req.Email,
			Password: req.Password,
			OTPCode:  req.OTPCode,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, loginResponse{
			AccessToken: tok.AccessToken,
			TokenType:   "Bearer",
			ExpiresAt:   tok.ExpiresAt,
			User:        toUserResponse(u),
		})
	}
}

// meHandler godoc
// @Summary Perfil del usuario autenticado
// @Tags auth
// @Produce json
// @Success 200 {object} userResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me [get]
func meHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}
		u, err := svc.GetByID(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// updateMeHandler godoc
// @Summary Actualizar perfil
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body updateMeRequest true "Campos"
// @Success 200 {object} userResponse
// @Router /me [patch]
func updateMeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}
		var req updateMeRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		u, err := svc.UpdateProfile(r.Context(), userID, req.DisplayName)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// enrollMFAHandler godoc
// @Summary Enrolar TOTP
// @Tags auth
// @Produce json
// @Success 200 {object} enrollMFAResponse
// @Failure 409 {string} string "mfa already enabled"
// @Router /me/mfa/enroll [post]
func enrollMFAHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}
		e, err := svc.EnrollMFA(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, enrollMFAResponse{
			Secret:          e.Secret,
			ProvisioningURI: e.ProvisioningURI,
		})
	}
}

// confirmMFAHandler godoc
// @Summary Confirmar TOTP
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body confirmMFARequest true "Código de 6 dígitos"
// @Success 200 {object} userResponse
// @Failure 401 {string} string "invalid credentials"
// @Router /me/mfa/confirm [post]
func confirmMFAHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}
		var req confirmMFARequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		u, err := svc.ConfirmMFA(r.Context(), userID, req.Code)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrEmailTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrMFARequired):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	case errors.Is(err, ErrBadState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		MFAEnabled:  u.MFAEnabled,
		CreatedAt:   u.CreatedAt,
	}
}
