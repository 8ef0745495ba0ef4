package registration

import (
	"errors"
	"net/http"
	"time"

	"patient-care/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/registrations", func(rr chi.Router) {
		rr.Post("/", submitHandler(svc))
		rr.Get("/", listSubmissionsHandler(svc))
		rr.Post("/sync", syncHandler(svc))
		rr.Get("/{submissionID}", getSubmissionHandler(svc))
	})
}

type resultResponse struct {
	Outcome       Outcome  `json:"outcome"`
	SubmissionID  string   `json:"submission_id,omitempty"`
	PatientID     string   `json:"patient_id,omitempty"`
	CarePlanID    string   `json:"care_plan_id,omitempty"`
	MedicationIDs []string `json:"medication_ids,omitempty"`
	DosesCreated  int      `json:"doses_created"`
}

type validationResponse struct {
	Error  string      `json:"error"`
	Errors []StepError `json:"errors"`
}

type submissionResponse struct {
	ID        string           `json:"id"`
	Status    SubmissionStatus `json:"status"`
	Attempts  int              `json:"attempts"`
	LastError string           `json:"last_error,omitempty"`
	PatientID string           `json:"patient_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// submitHandler godoc
// @Summary Enviar wizard de alta de paciente
// @Description Valida todos los pasos. Online crea paciente, care plan, medicaciones y tomas (201). Sin conexión encola el envío en el cache local (202).
// @Tags registrations
// @Accept json
// @Produce json
// @Param payload body Input true "Paciente, care plan opcional y medicaciones borrador"
// @Success 201 {object} resultResponse
// @Success 202 {object} resultResponse
// @Failure 400 {object} validationResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "offline y sin cache local"
// @Router /registrations [post]
func submitHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		var in Input
		if err := httpx.DecodeJSON(r, &in); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.Submit(r.Context(), userID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		status := http.StatusCreated
		if res.Outcome == OutcomeQueued {
			status = http.StatusAccepted
		}
		httpx.WriteJSON(w, status, resultResponse{
			Outcome:       res.Outcome,
			SubmissionID:  res.SubmissionID,
			PatientID:     res.PatientID,
			CarePlanID:    res.CarePlanID,
			MedicationIDs: res.MedicationIDs,
			DosesCreated:  res.DosesCreated,
		})
	}
}

// listSubmissionsHandler godoc
// @Summary Listar mis envíos encolados
// @Tags registrations
// @Produce json
// @Success 200 {array} submissionResponse
// @Router /registrations [get]
func listSubmissionsHandler(svc *Service) http.HandlerFunc {
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
		out := make([]submissionResponse, 0, len(items))
		for _, s := range items {
			out = append(out, toSubmissionResponse(s))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// getSubmissionHandler godoc
// @Summary Obtener un envío encolado
// @Tags registrations
// @Produce json
// @Param submissionID path string true "ID del envío"
// @Success 200 {object} submissionResponse
// @Failure 404 {string} string "submission not found"
// @Router /registrations/{submissionID} [get]
func getSubmissionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		s, err := svc.GetForOwner(r.Context(), userID, chi.URLParam(r, "submissionID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toSubmissionResponse(s))
	}
}

// syncHandler godoc
// @Summary Sincronizar mis envíos pendientes
// @Tags registrations
// @Produce json
// @Success 200 {object} SyncReport
// @Failure 503 {string} string "primary store unreachable"
// @Router /registrations/sync [post]
func syncHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}

		rep, err := svc.Sync(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, rep)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteJSON(w, http.StatusBadRequest, validationResponse{Error: "invalid input", Errors: verr.Errors})
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "submission not found", http.StatusNotFound)
	case errors.Is(err, ErrOffline):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toSubmissionResponse(s Submission) submissionResponse {
	return submissionResponse{
		ID:        s.ID,
		Status:    s.Status,
		Attempts:  s.Attempts,
		LastError: s.LastError,
		PatientID: s.PatientID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
