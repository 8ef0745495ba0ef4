package careplans

import (
	"errors"
	"net/http"
	"time"

	"patient-care/internal/domain/accessgrants"
	"patient-care/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, authz *accessgrants.Authorizer) {
	r.Route("/patients/{patientID}/careplans", func(cr chi.Router) {
		cr.Post("/", createCarePlanHandler(svc, authz))
		cr.Get("/", listCarePlansHandler(svc, authz))
		cr.Get("/{planID}", getCarePlanHandler(svc, authz))
		cr.Patch("/{planID}", updateCarePlanHandler(svc, authz))
		cr.Post("/{planID}/close", closeCarePlanHandler(svc, authz))
		cr.Delete("/{planID}", deleteCarePlanHandler(svc, authz))
	})
}

type CreateRequest struct {
	Diagnosis string `json:"diagnosis"`
	Treatment string `json:"treatment"`
	StartDate string `json:"start_date"` // YYYY-MM-DD, default hoy
	EndDate   string `json:"end_date"`
	Notes     string `json:"notes"`
}

func (req CreateRequest) Input() (CreateInput, error) {
	start, err := httpx.ParseDate(req.StartDate)
	if err != nil {
		return CreateInput{}, errors.New("start_date must be YYYY-MM-DD")
	}
	end, err := httpx.ParseDate(req.EndDate)
	if err != nil {
		return CreateInput{}, errors.New("end_date must be YYYY-MM-DD")
	}
	return CreateInput{
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
		StartDate: start,
		EndDate:   end,
		Notes:     req.Notes,
	}, nil
}

type updateCarePlanRequest struct {
	Diagnosis *string `json:"diagnosis"`
	Treatment *string `json:"treatment"`
	Notes     *string `json:"notes"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

type Response struct {
	ID        string     `json:"id"`
	PatientID string     `json:"patient_id"`
	Diagnosis string     `json:"diagnosis"`
	Treatment string     `json:"treatment"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Notes     string     `json:"notes"`
	Status    Status     `json:"status"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// createCarePlanHandler godoc
// @Summary Crear care plan
// @Description Dueño o delegado con scope careplans:write.
// @Tags careplans
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param payload body CreateRequest true "Diagnóstico y tratamiento"
// @Success 201 {object} Response
// @Failure 400 {string} string "validación"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID}/careplans [post]
func createCarePlanHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, patientID, ok := authorize(w, r, authz, accessgrants.ScopeCarePlansWrite)
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

		cp, err := svc.Create(r.Context(), patientID, userID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, ToResponse(cp))
	}
}

// listCarePlansHandler godoc
// @Summary Listar care plans del paciente
// @Tags careplans
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Success 200 {array} Response
// @Router /patients/{patientID}/careplans [get]
func listCarePlansHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeCarePlansRead)
		if !ok {
			return
		}

		items, err := svc.ListByPatient(r.Context(), patientID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]Response, 0, len(items))
		for _, cp := range items {
			out = append(out, ToResponse(cp))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// getCarePlanHandler godoc
// @Summary Obtener care plan
// @Tags careplans
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param planID path string true "ID del care plan"
// @Success 200 {object} Response
// @Failure 404 {string} string "care plan not found"
// @Router /patients/{patientID}/careplans/{planID} [get]
func getCarePlanHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeCarePlansRead)
		if !ok {
			return
		}

		cp, err := svc.GetForPatient(r.Context(), patientID, chi.URLParam(r, "planID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(cp))
	}
}

// updateCarePlanHandler godoc
// @Summary Actualizar care plan (PATCH)
// @Tags careplans
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param planID path string true "ID del care plan"
// @Param payload body updateCarePlanRequest true "Campos"
// @Success 200 {object} Response
// @Failure 409 {string} string "care plan closed"
// @Router /patients/{patientID}/careplans/{planID} [patch]
func updateCarePlanHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeCarePlansWrite)
		if !ok {
			return
		}

		var req updateCarePlanRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			Diagnosis: req.Diagnosis,
			Treatment: req.Treatment,
			Notes:     req.Notes,
		}
		if req.StartDate != nil {
			t, err := httpx.ParseDate(*req.StartDate)
			if err != nil || t == nil {
				http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.StartDate = t
		}
		if req.EndDate != nil {
			t, err := httpx.ParseDate(*req.EndDate)
			if err != nil || t == nil {
				http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.EndDate = t
		}

		cp, err := svc.Update(r.Context(), patientID, chi.URLParam(r, "planID"), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(cp))
	}
}

// closeCarePlanHandler godoc
// @Summary Cerrar care plan
// @Tags careplans
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param planID path string true "ID del care plan"
// @Success 200 {object} Response
// @Router /patients/{patientID}/careplans/{planID}/close [post]
func closeCarePlanHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeCarePlansWrite)
		if !ok {
			return
		}

		cp, err := svc.Close(r.Context(), patientID, chi.URLParam(r, "planID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(cp))
	}
}

// deleteCarePlanHandler godoc
// @Summary Eliminar care plan
// @Tags careplans
// @Param patientID path string true "ID del paciente"
// @Param planID path string true "ID del care plan"
// @Success 204
// @Router /patients/{patientID}/careplans/{planID} [delete]
func deleteCarePlanHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeCarePlansWrite)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), patientID, chi.URLParam(r, "planID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func authorize(w http.ResponseWriter, r *http.Request, authz *accessgrants.Authorizer, scope accessgrants.Scope) (string, string, bool) {
	userID, ok := httpx.RequireUser(w, r)
	if !ok {
		return "", "", false
	}
	patientID := chi.URLParam(r, "patientID")
	if _, err := authz.Authorize(r.Context(), patientID, userID, scope); err != nil {
		accessgrants.WriteAccessError(w, err)
		return "", "", false
	}
	return userID, patientID, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "care plan not found", http.StatusNotFound)
	case errors.Is(err, ErrBadState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func ToResponse(cp CarePlan) Response {
	return Response{
		ID:        cp.ID,
		PatientID: cp.PatientID,
		Diagnosis: cp.Diagnosis,
		Treatment: cp.Treatment,
		StartDate: cp.StartDate,
		EndDate:   cp.EndDate,
		Notes:     cp.Notes,
		Status:    cp.Status,
		CreatedBy: cp.CreatedBy,
		CreatedAt: cp.CreatedAt,
		UpdatedAt: cp.UpdatedAt,
	}
}
