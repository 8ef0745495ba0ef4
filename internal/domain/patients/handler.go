package patients

import (
	"errors"
	"net/http"
	"time"

	"patient-care/internal/domain/accessgrants"
	"patient-care/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, grantsSvc *accessgrants.Service) {
	authz := accessgrants.NewAuthorizer(grantsSvc, svc)

	r.Route("/patients", func(pr chi.Router) {
		pr.Post("/", createPatientHandler(svc))
		pr.Get("/", listPatientsHandler(svc))

		pr.Get("/{patientID}", getPatientHandler(svc, authz))
		pr.Patch("/{patientID}", updatePatientHandler(svc, authz))
		pr.Delete("/{patientID}", deletePatientHandler(svc))
	})

	// Pacientes compartidos conmigo (delegado)
	r.Get("/me/patients", listSharedPatientsHandler(svc, grantsSvc))
}

type CreateRequest struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	BirthDate        string `json:"birth_date"` // YYYY-MM-DD opcional
	Sex              string `json:"sex" enums:"male,female,other,unknown"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	EmergencyContact string `json:"emergency_contact"`
	Allergies        string `json:"allergies"`
	Notes            string `json:"notes"`
}

// Input convierte el request al input del servicio. Lo reutiliza registration.
func (req CreateRequest) Input() (CreateInput, error) {
	bd, err := httpx.ParseDate(req.BirthDate)
	if err != nil {
		return CreateInput{}, errors.New("birth_date must be YYYY-MM-DD")
	}
	return CreateInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		BirthDate:        bd,
		Sex:              req.Sex,
		Phone:            req.Phone,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
		Allergies:        req.Allergies,
		Notes:            req.Notes,
	}, nil
}

type updatePatientRequest struct {
	FirstName        *string              `json:"first_name"`
	LastName         *string              `json:"last_name"`
	Sex              *string              `json:"sex"`
	Phone            *string              `json:"phone"`
	Address          *string              `json:"address"`
	EmergencyContact *string              `json:"emergency_contact"`
	Allergies        *string              `json:"allergies"`
	Notes            *string              `json:"notes"`
	BirthDate        httpx.NullableString `json:"birth_date" swaggertype:"string"` // null = limpiar
}

type Response struct {
	ID               string     `json:"id"`
	OwnerUserID      string     `json:"owner_user_id"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	BirthDate        *time.Time `json:"birth_date,omitempty"`
	Sex              Sex        `json:"sex"`
	Phone            string     `json:"phone"`
	Address          string     `json:"address"`
	EmergencyContact string     `json:"emergency_contact"`
	Allergies        string     `json:"allergies"`
	Notes            string     `json:"notes"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type sharedPatientResponse struct {
	Patient Response             `json:"patient"`
	GrantID string               `json:"grant_id"`
	Scopes  []accessgrants.Scope `json:"scopes"`
}

// createPatientHandler godoc
// @Summary Registrar paciente
// @Description Crea un paciente cuyo dueño es el caregiver autenticado.
// @Tags patients
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param Authorization header string false "Bearer token"
// @Param payload body CreateRequest true "Datos del paciente"
// @Success 201 {object} Response
// @Failure 400 {string} string "invalid json / validación"
// @Failure 401 {string} string "unauthorized"
// @Router /patients [post]
func createPatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		var req CreateRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		in, err := req.Input()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		p, err := svc.Create(r.Context(), userID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusCreated, ToResponse(p))
	}
}

// listPatientsHandler godoc
// @Summary Listar mis pacientes
// @Description Solo pacientes propios; los compartidos están en /me/patients.
// @Tags patients
// @Produce json
// @Success 200 {array} Response
// @Failure 401 {string} string "unauthorized"
// @Router /patients [get]
func listPatientsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		items, err := svc.ListByOwner(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]Response, 0, len(items))
		for _, p := range items {
			out = append(out, ToResponse(p))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// getPatientHandler godoc
// @Summary Perfil del paciente
// @Description Dueño o delegado con scope patient:read.
// @Tags patients
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Success 200 {object} Response
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID} [get]
func getPatientHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if _, err := authz.Authorize(r.Context(), patientID, userID, accessgrants.ScopePatientRead); err != nil {
			accessgrants.WriteAccessError(w, err)
			return
		}

		p, err := svc.GetByID(r.Context(), patientID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(p))
	}
}

// updatePatientHandler godoc
// @Summary Actualizar paciente (PATCH)
// @Description Dueño o delegado con scope patient:edit. Campos ausentes no se tocan; birth_date null limpia la fecha.
// @Tags patients
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param payload body updatePatientRequest true "Campos a actualizar"
// @Success 200 {object} Response
// @Failure 400 {string} string "invalid json / validación"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID} [patch]
func updatePatientHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if _, err := authz.Authorize(r.Context(), patientID, userID, accessgrants.ScopePatientEdit); err != nil {
			accessgrants.WriteAccessError(w, err)
			return
		}

		var req updatePatientRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateProfileInput{
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			Sex:              req.Sex,
			Phone:            req.Phone,
			Address:          req.Address,
			EmergencyContact: req.EmergencyContact,
			Allergies:        req.Allergies,
			Notes:            req.Notes,
		}
		if req.BirthDate.Present {
			in.BirthDate.Present = true
			if req.BirthDate.Value != nil {
				bd, err := httpx.ParseDate(*req.BirthDate.Value)
				if err != nil {
					http.Error(w, "birth_date must be YYYY-MM-DD or null", http.StatusBadRequest)
					return
				}
				in.BirthDate.Value = bd
			}
		}

		updated, err := svc.UpdateProfile(r.Context(), patientID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(updated))
	}
}

// deletePatientHandler godoc
// @Summary Eliminar paciente
// @Description Solo el dueño.
// @Tags patients
// @Param patientID path string true "ID del paciente"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID} [delete]
func deletePatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "patientID"), userID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listSharedPatientsHandler godoc
// @Summary Pacientes compartidos conmigo
// @Description Grants activos con scope patient:read.
// @Tags patients
// @Produce json
// @Success 200 {array} sharedPatientResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/patients [get]
func listSharedPatientsHandler(svc *Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		grants, err := grantsSvc.ListByGrantee(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		seen := map[string]struct{}{}
		out := make([]sharedPatientResponse, 0)

		for _, g := range grants {
			if g.Status != accessgrants.StatusActive || !accessgrants.HasScope(g, accessgrants.ScopePatientRead) {
				continue
			}
			if _, dup := seen[g.PatientID]; dup {
				continue
			}
			seen[g.PatientID] = struct{}{}

			p, err := svc.GetByID(r.Context(), g.PatientID)
			if err != nil {
				// grant huérfano (paciente borrado)
				continue
			}

			out = append(out, sharedPatientResponse{
				Patient: ToResponse(p),
				GrantID: g.ID,
				Scopes:  g.Scopes,
			})
		}

		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "patient not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// ToResponse es exportado para que registration devuelva el mismo shape.
func ToResponse(p Patient) Response {
	return Response{
		ID:               p.ID,
		OwnerUserID:      p.OwnerUserID,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		BirthDate:        p.BirthDate,
		Sex:              p.Sex,
		Phone:            p.Phone,
		Address:          p.Address,
		EmergencyContact: p.EmergencyContact,
		Allergies:        p.Allergies,
		Notes:            p.Notes,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
