package carelogs

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"patient-care/internal/domain/accessgrants"
	"patient-care/internal/domain/carelogs/details"
	"patient-care/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, authz *accessgrants.Authorizer) {
	r.Route("/patients/{patientID}/logs", func(lr chi.Router) {
		lr.Post("/", createLogHandler(svc, authz))
		lr.Get("/", listLogsHandler(svc, authz))
		lr.Get("/{logID}", getLogHandler(svc, authz))

		// Anular (void) entrada (owner o delegado con logs:void)
		lr.Post("/{logID}/void", voidLogHandler(svc, authz))
	})
}

// createLogRequest registra una entrada de historia, nota o signo vital.
type createLogRequest struct {
	Kind       Kind            `json:"kind" enums:"HISTORY,NOTE,VITAL"`
	OccurredAt string          `json:"occurred_at"` // RFC3339, default ahora
	Title      string          `json:"title"`
	Notes      string          `json:"notes"`
	History    *historyRequest `json:"history,omitempty"`
	Note       *details.Note   `json:"note,omitempty"`
	Vital      *details.Vital  `json:"vital,omitempty"`
}

type historyRequest struct {
	Condition   string `json:"condition"`
	DiagnosedAt string `json:"diagnosed_at"` // YYYY-MM-DD
	Resolved    bool   `json:"resolved"`
}

type logResponse struct {
	ID         string     `json:"id"`
	PatientID  string     `json:"patient_id"`
	Kind       Kind       `json:"kind"`
	OccurredAt time.Time  `json:"occurred_at"`
	RecordedAt time.Time  `json:"recorded_at"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes"`
	ActorType  ActorType  `json:"actor_type"`
	ActorID    string     `json:"actor_id"`
	Status     Status     `json:"status"`
	VoidedAt   *time.Time `json:"voided_at,omitempty"`
	Detail     Detail     `json:"detail"`
}

// createLogHandler godoc
// @Summary Crear entrada del registro de cuidado
// @Description El dueño siempre puede crear entradas. Un delegado necesita scope `logs:create`. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>`.
// @Tags logs
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param patientID path string true "ID del paciente"
// @Param payload body createLogRequest true "Entrada; el detalle debe corresponder al kind"
// @Success 201 {object} logResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID}/logs [post]
func createLogHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}
		patientID := chi.URLParam(r, "patientID")
		role, err := authz.Authorize(r.Context(), patientID, userID, accessgrants.ScopeLogsCreate)
		if err != nil {
			accessgrants.WriteAccessError(w, err)
			return
		}

		var req createLogRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := CreateInput{
			Kind:  Kind(strings.ToUpper(strings.TrimSpace(string(req.Kind)))),
			Title: req.Title,
			Notes: req.Notes,
			Note:  req.Note,
			Vital: req.Vital,
		}
		if v := strings.TrimSpace(req.OccurredAt); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "occurred_at must be RFC3339", http.StatusBadRequest)
				return
			}
			in.OccurredAt = t
		}
		if req.History != nil {
			diagnosed, err := httpx.ParseDate(req.History.DiagnosedAt)
			if err != nil {
				http.Error(w, "diagnosed_at must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.History = &details.History{
				Condition:   req.History.Condition,
				DiagnosedAt: diagnosed,
				Resolved:    req.History.Resolved,
			}
		}

		e, err := svc.Create(r.Context(), patientID, Actor{Type: ActorTypeFor(role), ID: userID}, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toLogResponse(e))
	}
}

// listLogsHandler godoc
// @Summary Listar registro de cuidado
// @Description Filtra por kinds, rango de fechas y texto. Delegado necesita `logs:read`.
// @Tags logs
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param limit query int false "Máximo (1-200). Por defecto 50"
// @Param kinds query string false "CSV: HISTORY,NOTE,VITAL"
// @Param from query string false "occurred_at mínimo (RFC3339)"
// @Param to query string false "occurred_at máximo (RFC3339)"
// @Param q query string false "Texto libre en título/notas"
// @Success 200 {array} logResponse
// @Failure 400 {string} string "Parámetros de filtro inválidos"
// @Failure 403 {string} string "forbidden"
// @Router /patients/{patientID}/logs [get]
func listLogsHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}
		patientID := chi.URLParam(r, "patientID")
		if _, err := authz.Authorize(r.Context(), patientID, userID, accessgrants.ScopeLogsRead); err != nil {
			accessgrants.WriteAccessError(w, err)
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := svc.ListByPatient(r.Context(), patientID, filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]logResponse, 0, len(items))
		for _, e := range items {
			out = append(out, toLogResponse(e))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// getLogHandler godoc
// @Summary Obtener entrada
// @Tags logs
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param logID path string true "ID de la entrada"
// @Success 200 {object} logResponse
// @Failure 404 {string} string "log entry not found"
// @Router /patients/{patientID}/logs/{logID} [get]
func getLogHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}
		patientID := chi.URLParam(r, "patientID")
		if _, err := authz.Authorize(r.Context(), patientID, userID, accessgrants.ScopeLogsRead); err != nil {
			accessgrants.WriteAccessError(w, err)
			return
		}

		e, err := svc.GetForPatient(r.Context(), patientID, chi.URLParam(r, "logID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toLogResponse(e))
	}
}

// voidLogHandler godoc
// @Summary Anular (void) una entrada
// @Description La entrada queda con status voided; nunca se borra. Delegado necesita `logs:void`.
// @Tags logs
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param logID path string true "ID de la entrada"
// @Success 200 {object} logResponse
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "log entry not found"
// @Router /patients/{patientID}/logs/{logID}/void [post]
func voidLogHandler(svc *Service, authz *accessgrants.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.RequireUser(w, r)
		if !ok {
			return
		}
		patientID := chi.URLParam(r, "patientID")

		// Permisos primero, para no filtrar si existe la entrada
		if _, err := authz.Authorize(r.Context(), patientID, userID, accessgrants.ScopeLogsVoid); err != nil {
			accessgrants.WriteAccessError(w, err)
			return
		}

		e, err := svc.Void(r.Context(), patientID, chi.URLParam(r, "logID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toLogResponse(e))
	}
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{Limit: DefaultListLimit}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxListLimit {
			return ListFilter{}, errors.New("limit must be between 1 and 200")
		}
		filter.Limit = n
	}

	// kinds=VITAL,NOTE
	if v := strings.TrimSpace(q.Get("kinds")); v != "" {
		for _, p := range strings.Split(v, ",") {
			k := Kind(strings.ToUpper(strings.TrimSpace(p)))
			if k == "" {
				continue
			}
			if !k.Valid() {
				return ListFilter{}, errors.New("unknown kind " + p)
			}
			filter.Kinds = append(filter.Kinds, k)
		}
	}

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListFilter{}, errors.New("from must be RFC3339")
		}
		filter.From = &t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListFilter{}, errors.New("to must be RFC3339")
		}
		filter.To = &t
	}

	filter.Query = strings.TrimSpace(q.Get("q"))
	return filter, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "log entry not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toLogResponse(e LogEntry) logResponse {
	return logResponse{
		ID:         e.ID,
		PatientID:  e.PatientID,
		Kind:       e.Kind,
		OccurredAt: e.OccurredAt,
		RecordedAt: e.RecordedAt,
		Title:      e.Title,
		Notes:      e.Notes,
		ActorType:  e.Actor.Type,
		ActorID:    e.Actor.ID,
		Status:     e.Status,
		VoidedAt:   e.VoidedAt,
		Detail:     e.Detail,
	}
}
