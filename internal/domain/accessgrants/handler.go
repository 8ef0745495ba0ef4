package accessgrants

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"patient-care/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, owners PatientOwnerLookup) {
	// Owner: compartir paciente
	r.Route("/patients/{patientID}/grants", func(gr chi.Router) {
		gr.Post("/", inviteGrantHandler(svc, owners))
		gr.Get("/", listGrantsByPatientHandler(svc, owners))
	})

	r.Route("/grants/{grantID}", func(gr chi.Router) {
		gr.Post("/accept", acceptGrantHandler(svc))
		gr.Post("/revoke", revokeGrantHandler(svc))
	})

	// Delegado: mis invitaciones / grants
	r.Get("/me/grants", listMyGrantsHandler(svc))
}

type inviteGrantRequest struct {
	GranteeUserID string  `json:"grantee_user_id"`
	Scopes        []Scope `json:"scopes"`
}

type grantResponse struct {
	ID            string     `json:"id"`
	PatientID     string     `json:"patient_id"`
	OwnerUserID   string     `json:"owner_user_id"`
	GranteeUserID string     `json:"grantee_user_id"`
	Scopes        []Scope    `json:"scopes"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

// inviteGrantHandler godoc
// @Summary Compartir paciente con otro caregiver
// @Description Solo el dueño del paciente. Sin scopes se aplica acceso de solo lectura. Re-invitar actualiza scopes del grant existente.
// @Tags grants
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param payload body inviteGrantRequest true "Delegado y scopes"
// @Success 201 {object} grantResponse
// @Failure 400 {string} string "invalid json / scope desconocido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID}/grants [post]
func inviteGrantHandler(svc *Service, owners PatientOwnerLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if !requireOwner(w, r, owners, patientID, userID) {
			return
		}

		var req inviteGrantRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.GranteeUserID) == "" {
			http.Error(w, "grantee_user_id required", http.StatusBadRequest)
			return
		}

		g, err := svc.Invite(r.Context(), InviteInput{
			PatientID:     patientID,
			OwnerUserID:   userID,
			GranteeUserID: req.GranteeUserID,
			Scopes:        req.Scopes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusCreated, toGrantResponse(g))
	}
}

// listGrantsByPatientHandler godoc
// @Summary Listar grants de un paciente
// @Tags grants
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Success 200 {array} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID}/grants [get]
func listGrantsByPatientHandler(svc *Service, owners PatientOwnerLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if !requireOwner(w, r, owners, patientID, userID) {
			return
		}

		items, err := svc.ListByPatient(r.Context(), patientID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toGrantResponses(items))
	}
}

// acceptGrantHandler godoc
// @Summary Aceptar invitación
// @Tags grants
// @Produce json
// @Param grantID path string true "ID del grant"
// @Success 200 {object} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "grant not found"
// @Failure 409 {string} string "invalid state"
// @Router /grants/{grantID}/accept [post]
func acceptGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		g, err := svc.Accept(r.Context(), chi.URLParam(r, "grantID"), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

// revokeGrantHandler godoc
// @Summary Revocar grant
// @Tags grants
// @Produce json
// @Param grantID path string true "ID del grant"
// @Success 200 {object} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "grant not found"
// @Router /grants/{grantID}/revoke [post]
func revokeGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		g, err := svc.Revoke(r.Context(), chi.URLParam(r, "grantID"), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

// listMyGrantsHandler godoc
// @Summary Mis grants como delegado
// @Tags grants
// @Produce json
// @Success 200 {array} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/grants [get]
func listMyGrantsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		items, err := svc.ListByGrantee(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toGrantResponses(items))
	}
}

func requireOwner(w http.ResponseWriter, r *http.Request, owners PatientOwnerLookup, patientID, userID string) bool {
	ownerID, err := owners.OwnerOf(r.Context(), patientID)
	if err != nil || strings.TrimSpace(ownerID) == "" {
		http.Error(w, "patient not found", http.StatusNotFound)
		return false
	}
	if ownerID != userID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

// WriteAccessError traduce errores de Authorize a HTTP.
func WriteAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPatientNotFound):
		http.Error(w, "patient not found", http.StatusNotFound)
	default:
		http.Error(w, "forbidden", http.StatusForbidden)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "grant not found", http.StatusNotFound)
	case errors.Is(err, ErrBadState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toGrantResponses(items []Grant) []grantResponse {
	out := make([]grantResponse, 0, len(items))
	for _, g := range items {
		out = append(out, toGrantResponse(g))
	}
	return out
}

func toGrantResponse(g Grant) grantResponse {
	scopes := g.Scopes
	if scopes == nil {
		scopes = []Scope{}
	}
	return grantResponse{
		ID:            g.ID,
		PatientID:     g.PatientID,
		OwnerUserID:   g.OwnerUserID,
		GranteeUserID: g.GranteeUserID,
		Scopes:        scopes,
		Status:        g.Status,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
		RevokedAt:     g.RevokedAt,
	}
}
