package medications

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"patient-care/internal/domain/accessgrants"
	"patient-care/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, authz *accessgrants.Authorizer) {
	r.Route("/patients/{patientID}/medications", func(mr chi.Router) {
		mr.Post("/", createMedicationHandler(svc, authz))
		mr.Get("/", listMedicationsHandler(svc, authz))
		mr.Get("/{medicationID}", getMedicationHandler(svc, authz))
		mr.Patch("/{medicationID}", updateMedicationHandler(svc, authz))
		mr.Post("/{medicationID}/discontinue", discontinueMedicationHandler(svc, authz))
		mr.Delete("/{medicationID}", deleteMedicationHandler(svc, authz))
		mr.Post("/{medicationID}/schedule", scheduleDosesHandler(svc, authz))
		mr.Post("/{medicationID}/doses", recordDoseHandler(svc, authz))
	})
	r.Route("/patients/{patientID}/doses", func(dr chi.Router) {
		dr.Get("/", listDosesHandler(svc, authz))
		dr.Post("/{doseID}/taken", markTakenHandler(svc, authz))
		dr.Post("/{doseID}/skipped", markSkippedHandler(svc, authz))
	})
}

type CreateRequest struct {
	CarePlanID    string `json:"care_plan_id"`
	Name          string `json:"name"`
	Dosage        string `json:"dosage"`
	Unit          string `json:"unit"`
	Route         string `json:"route"`
	IntervalHours int    `json:"interval_hours"` // 0 = según necesidad
	StartDate     string `json:"start_date"`     // RFC3339 o YYYY-MM-DD
	EndDate       string `json:"end_date"`
	Instructions  string `json:"instructions"`
}

func (req CreateRequest) Input() (CreateInput, error) {
	start, err := httpx.ParseTime(req.StartDate)
	if err != nil {
		return CreateInput{}, errors.New("start_date must be RFC3339 or YYYY-MM-DD")
	}
	end, err := httpx.ParseTime(req.EndDate)
	if err != nil {
		return CreateInput{}, errors.New("end_date must be RFC3339 or YYYY-MM-DD")
	}
	return CreateInput{
		CarePlanID:    req.CarePlanID,
		Name:          req.Name,
		Dosage:        req.Dosage,
		Unit:          req.Unit,
		Route:         req.Route,
		IntervalHours: req.IntervalHours,
		StartDate:     start,
		EndDate:       end,
		Instructions:  req.Instructions,
	}, nil
}

type updateMedicationRequest struct {
	CarePlanID   *string `json:"care_plan_id"`
	Name         *string `json:"name"`
	Dosage       *string `json:"dosage"`
	Unit         *string `json:"unit"`
	Route        *string `json:"route"`
	Instructions *string `json:"instructions"`
	EndDate      *string `json:"end_date"`
}

type scheduleRequest struct {
	From string `json:"from"` // RFC3339, default ahora
	To   string `json:"to"`   // RFC3339, default from + 7 días
}

type recordDoseRequest struct {
	TakenAt string `json:"taken_at"`
	Amount  string `json:"amount"`
	Notes   string `json:"notes"`
}

type doseTransitionRequest struct {
	TakenAt string `json:"taken_at"`
	Notes   string `json:"notes"`
}

type Response struct {
	ID            string     `json:"id"`
	PatientID     string     `json:"patient_id"`
	CarePlanID    string     `json:"care_plan_id,omitempty"`
	Name          string     `json:"name"`
	Dosage        string     `json:"dosage"`
	Unit          string     `json:"unit"`
	Route         Route      `json:"route"`
	IntervalHours int        `json:"interval_hours"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Instructions  string     `json:"instructions"`
	Active        bool       `json:"active"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type DoseResponse struct {
	ID           string     `json:"id"`
	MedicationID string     `json:"medication_id"`
	PatientID    string     `json:"patient_id"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	TakenAt      *time.Time `json:"taken_at,omitempty"`
	Status       DoseStatus `json:"status"`
	Amount       string     `json:"amount"`
	Notes        string     `json:"notes,omitempty"`
	RecordedBy   string     `json:"recorded_by,omitempty"`
}

// createMedicationHandler godoc
// @Summary Crear medicación
// @Description Dueño o delegado con scope medications:write. interval_hours 0 = según necesidad.
// @Tags medications
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param payload body CreateRequest true "Medicación"
// @Success 201 {object} Response
// @Failure 400 {string} string "validación"
// @Failure 403 {string} string "forbidden"
// @Router /patients/{patientID}/medications [post]
func createMedicationHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, patientID, ok := authorize(w, r, authz, accessgrants.ScopeMedicationsWrite)
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

		m, err := svc.Create(r.Context(), patientID, userID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, ToResponse(m))
	}
}

// listMedicationsHandler godoc
// @Summary Listar medicaciones
// @Tags medications
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param care_plan_id query string false "Filtrar por care plan"
// @Param active query bool false "Solo activas"
// @Success 200 {array} Response
// @Router /patients/{patientID}/medications [get]
func listMedicationsHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeMedicationsRead)
		if !ok {
			return
		}

		q := r.URL.Query()
		filter := ListFilter{CarePlanID: strings.TrimSpace(q.Get("care_plan_id"))}
		if v := q.Get("active"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				http.Error(w, "active must be a boolean", http.StatusBadRequest)
				return
			}
			filter.ActiveOnly = b
		}

		items, err := svc.ListByPatient(r.Context(), patientID, filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]Response, 0, len(items))
		for _, m := range items {
			out = append(out, ToResponse(m))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// getMedicationHandler godoc
// @Summary Obtener medicación
// @Tags medications
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param medicationID path string true "ID de la medicación"
// @Success 200 {object} Response
// @Failure 404 {string} string "medication not found"
// @Router /patients/{patientID}/medications/{medicationID} [get]
func getMedicationHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeMedicationsRead)
		if !ok {
			return
		}

		m, err := svc.GetForPatient(r.Context(), patientID, chi.URLParam(r, "medicationID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(m))
	}
}

// updateMedicationHandler godoc
// @Summary Actualizar medicación (PATCH)
// @Tags medications
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param medicationID path string true "ID de la medicación"
// @Param payload body updateMedicationRequest true "Campos"
// @Success 200 {object} Response
// @Router /patients/{patientID}/medications/{medicationID} [patch]
func updateMedicationHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeMedicationsWrite)
		if !ok {
			return
		}

		var req updateMedicationRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			CarePlanID:   req.CarePlanID,
			Name:         req.Name,
			Dosage:       req.Dosage,
			Unit:         req.Unit,
			Route:        req.Route,
			Instructions: req.Instructions,
		}
		if req.EndDate != nil {
			t, err := httpx.ParseTime(*req.EndDate)
			if err != nil || t == nil {
				http.Error(w, "end_date must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.EndDate = t
		}

		m, err := svc.Update(r.Context(), patientID, chi.URLParam(r, "medicationID"), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(m))
	}
}

// discontinueMedicationHandler godoc
// @Summary Suspender medicación
// @Description Marca inactiva y descarta tomas futuras agendadas.
// @Tags medications
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param medicationID path string true "ID de la medicación"
// @Success 200 {object} Response
// @Router /patients/{patientID}/medications/{medicationID}/discontinue [post]
func discontinueMedicationHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeMedicationsWrite)
		if !ok {
			return
		}

		m, err := svc.Discontinue(r.Context(), patientID, chi.URLParam(r, "medicationID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(m))
	}
}

// deleteMedicationHandler godoc
// @Summary Eliminar medicación y sus tomas
// @Tags medications
// @Param patientID path string true "ID del paciente"
// @Param medicationID path string true "ID de la medicación"
// @Success 204
// @Router /patients/{patientID}/medications/{medicationID} [delete]
func deleteMedicationHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeMedicationsWrite)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), patientID, chi.URLParam(r, "medicationID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// scheduleDosesHandler godoc
// @Summary Generar agenda de tomas
// @Tags medications
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param medicationID path string true "ID de la medicación"
// @Param payload body scheduleRequest false "Ventana"
// @Success 201 {array} DoseResponse
// @Failure 409 {string} string "medicación suspendida o según necesidad"
// @Router /patients/{patientID}/medications/{medicationID}/schedule [post]
func scheduleDosesHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeMedicationsWrite)
		if !ok {
			return
		}

		var req scheduleRequest
		if r.ContentLength > 0 {
			if err := httpx.DecodeJSON(r, &req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		from := svc.Now()
		if t, err := httpx.ParseTime(req.From); err != nil {
			http.Error(w, "from must be RFC3339", http.StatusBadRequest)
			return
		} else if t != nil {
			from = *t
		}
		to := from.Add(7 * 24 * time.Hour)
		if t, err := httpx.ParseTime(req.To); err != nil {
			http.Error(w, "to must be RFC3339", http.StatusBadRequest)
			return
		} else if t != nil {
			to = *t
		}

		doses, err := svc.ScheduleDoses(r.Context(), patientID, chi.URLParam(r, "medicationID"), from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toDoseResponses(doses, svc.Now()))
	}
}

// recordDoseHandler godoc
// @Summary Registrar toma
// @Description Toma ad-hoc (scope doses:record).
// @Tags doses
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param medicationID path string true "ID de la medicación"
// @Param payload body recordDoseRequest false "Toma"
// @Success 201 {object} DoseResponse
// @Router /patients/{patientID}/medications/{medicationID}/doses [post]
func recordDoseHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, patientID, ok := authorize(w, r, authz, accessgrants.ScopeDosesRecord)
		if !ok {
			return
		}

		var req recordDoseRequest
		if r.ContentLength > 0 {
			if err := httpx.DecodeJSON(r, &req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}
		takenAt, err := httpx.ParseTime(req.TakenAt)
		if err != nil {
			http.Error(w, "taken_at must be RFC3339", http.StatusBadRequest)
			return
		}

		d, err := svc.RecordDose(r.Context(), patientID, chi.URLParam(r, "medicationID"), userID, RecordDoseInput{
			TakenAt: takenAt,
			Amount:  req.Amount,
			Notes:   req.Notes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toDoseResponse(d, svc.Now()))
	}
}

// listDosesHandler godoc
// @Summary Listar tomas del paciente
// @Tags doses
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param medication_id query string false "Filtrar por medicación"
// @Param status query string false "scheduled,taken,skipped,overdue (csv)"
// @Param from query string false "RFC3339"
// @Param to query string false "RFC3339"
// @Param limit query int false "Máximo (default 200)"
// @Success 200 {array} DoseResponse
// @Router /patients/{patientID}/doses [get]
func listDosesHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, patientID, ok := authorize(w, r, authz, accessgrants.ScopeMedicationsRead)
		if !ok {
			return
		}

		q := r.URL.Query()
		filter := DoseFilter{
			PatientID:    patientID,
			MedicationID: strings.TrimSpace(q.Get("medication_id")),
		}
		if raw := strings.TrimSpace(q.Get("status")); raw != "" {
			for _, p := range strings.Split(raw, ",") {
				st := DoseStatus(strings.ToLower(strings.TrimSpace(p)))
				switch st {
				case DoseScheduled, DoseTaken, DoseSkipped, DoseOverdue:
					filter.Statuses = append(filter.Statuses, st)
				default:
					http.Error(w, "unknown status "+p, http.StatusBadRequest)
					return
				}
			}
		}
		from, err := httpx.ParseTime(q.Get("from"))
		if err != nil {
			http.Error(w, "from must be RFC3339", http.StatusBadRequest)
			return
		}
		to, err := httpx.ParseTime(q.Get("to"))
		if err != nil {
			http.Error(w, "to must be RFC3339", http.StatusBadRequest)
			return
		}
		filter.From, filter.To = from, to
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, "limit must be a number", http.StatusBadRequest)
				return
			}
			filter.Limit = n
		}

		doses, err := svc.ListDoses(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDoseResponses(doses, svc.Now()))
	}
}

// markTakenHandler godoc
// @Summary Marcar toma como tomada
// @Tags doses
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param doseID path string true "ID de la toma"
// @Param payload body doseTransitionRequest false "Detalle"
// @Success 200 {object} DoseResponse
// @Failure 409 {string} string "la toma ya no está agendada"
// @Router /patients/{patientID}/doses/{doseID}/taken [post]
func markTakenHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, patientID, ok := authorize(w, r, authz, accessgrants.ScopeDosesRecord)
		if !ok {
			return
		}

		var req doseTransitionRequest
		if r.ContentLength > 0 {
			if err := httpx.DecodeJSON(r, &req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}
		takenAt, err := httpx.ParseTime(req.TakenAt)
		if err != nil {
			http.Error(w, "taken_at must be RFC3339", http.StatusBadRequest)
			return
		}

		d, err := svc.MarkTaken(r.Context(), patientID, chi.URLParam(r, "doseID"), userID, takenAt, req.Notes)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDoseResponse(d, svc.Now()))
	}
}

// markSkippedHandler godoc
// @Summary Marcar toma como omitida
// @Tags doses
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param doseID path string true "ID de la toma"
// @Param payload body doseTransitionRequest false "Motivo"
// @Success 200 {object} DoseResponse
// @Router /patients/{patientID}/doses/{doseID}/skipped [post]
func markSkippedHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, patientID, ok := authorize(w, r, authz, accessgrants.ScopeDosesRecord)
		if !ok {
			return
		}

		var req doseTransitionRequest
		if r.ContentLength > 0 {
			if err := httpx.DecodeJSON(r, &req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		d, err := svc.MarkSkipped(r.Context(), patientID, chi.URLParam(r, "doseID"), userID, req.Notes)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDoseResponse(d, svc.Now()))
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
		http.Error(w, "medication not found", http.StatusNotFound)
	case errors.Is(err, ErrDoseNotFound):
		http.Error(w, "dose not found", http.StatusNotFound)
	case errors.Is(err, ErrBadState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func ToResponse(m Medication) Response {
	return Response{
		ID:            m.ID,
		PatientID:     m.PatientID,
		CarePlanID:    m.CarePlanID,
		Name:          m.Name,
		Dosage:        m.Dosage,
		Unit:          m.Unit,
		Route:         m.Route,
		IntervalHours: m.IntervalHours,
		StartDate:     m.StartDate,
		EndDate:       m.EndDate,
		Instructions:  m.Instructions,
		Active:        m.Active,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toDoseResponse(d Dose, now time.Time) DoseResponse {
	return DoseResponse{
		ID:           d.ID,
		MedicationID: d.MedicationID,
		PatientID:    d.PatientID,
		ScheduledAt:  d.ScheduledAt,
		TakenAt:      d.TakenAt,
		Status:       d.EffectiveStatus(now),
		Amount:       d.Amount,
		Notes:        d.Notes,
		RecordedBy:   d.RecordedBy,
	}
}

func toDoseResponses(doses []Dose, now time.Time) []DoseResponse {
	out := make([]DoseResponse, 0, len(doses))
	for _, d := range doses {
		out = append(out, toDoseResponse(d, now))
	}
	return out
}
