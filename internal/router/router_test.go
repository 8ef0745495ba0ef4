package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"patient-care/internal/adapters/auth/jwtauth"
	"patient-care/internal/domain/accessgrants"
	"patient-care/internal/router"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tokens := jwtauth.New(jwtauth.Config{Secret: "test-secret", TTL: time.Hour})
	ts := httptest.NewServer(router.NewRouter(router.Options{
		AuthVerifier: tokens,
		Tokens:       tokens,
		DevAuth:      true,
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_DelegationScopes(t *testing.T) {
	ts := newTestServer(t)

	ownerID := "owner-1"
	delegateID := "delegate-1"

	// 1) Owner crea paciente
	patientID := createPatient(t, ts.URL, ownerID, map[string]any{
		"first_name": "Rosa",
		"last_name":  "Pérez",
		"birth_date": "1941-03-12",
		"sex":        "female",
		"allergies":  "penicillin",
	})

	// 2) Delegado NO puede ver perfil aún
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+patientID, delegateID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 before grant, got %d", st)
		}
	}

	// 3) Owner invita delegado con scopes necesarios
	grantID := inviteGrant(t, ts.URL, ownerID, patientID, delegateID, []string{
		string(accessgrants.ScopePatientRead),
		string(accessgrants.ScopeLogsRead),
		string(accessgrants.ScopeLogsCreate),
		string(accessgrants.ScopeLogsVoid),
		string(accessgrants.ScopeMedicationsRead),
		string(accessgrants.ScopeDosesRecord),
	})

	// 4) Delegado ve su invitación y la acepta
	{
		st, body := doReq(t, ts.URL, "GET", "/me/grants", delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 listing my grants, got %d body=%s", st, string(body))
		}
		st, body = doReq(t, ts.URL, "POST", "/grants/"+grantID+"/accept", delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 accept grant, got %d body=%s", st, string(body))
		}
	}

	// 5) Delegado ya puede ver perfil, pero no editarlo
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+patientID, delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get patient by delegate, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "PATCH", "/patients/"+patientID, delegateID, map[string]any{"notes": "x"})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 patch without patient:edit, got %d", st)
		}
	}

	// 6) Delegado crea un signo vital y lo anula
	logID := createLog(t, ts.URL, delegateID, patientID, map[string]any{
		"kind":        "VITAL",
		"occurred_at": time.Now().UTC().Add(-time.Minute).Format(time.RFC3339),
		"vital":       map[string]any{"type": "blood_pressure", "value": 130, "secondary": 85},
	})
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/logs?kinds=VITAL", delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list logs by delegate, got %d body=%s", st, string(body))
		}
		var items []map[string]any
		_ = json.Unmarshal(body, &items)
		if len(items) != 1 || items[0]["actor_type"] != "DELEGATE_USER" {
			t.Fatalf("unexpected log list %s", string(body))
		}

		st, body = doReq(t, ts.URL, "POST", "/patients/"+patientID+"/logs/"+logID+"/void", delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 void log by delegate, got %d body=%s", st, string(body))
		}
	}

	// 7) Delegado sin careplans:write no puede crear care plans
	{
		st, _ := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/careplans", delegateID, map[string]any{
			"diagnosis": "Hypertension",
		})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 create care plan without scope, got %d", st)
		}
	}

	// 8) Owner revoca grant
	{
		st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/revoke", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 revoke grant by owner, got %d body=%s", st, string(body))
		}
	}

	// 9) Delegado pierde acceso inmediatamente
	for _, path := range []string{
		"/patients/" + patientID,
		"/patients/" + patientID + "/logs",
		"/patients/" + patientID + "/medications",
	} {
		st, _ := doReq(t, ts.URL, "GET", path, delegateID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 on %s after revoke, got %d", path, st)
		}
	}
}

func TestHTTP_CarePlanMedicationsAndDoses(t *testing.T) {
	ts := newTestServer(t)
	ownerID := "owner-1"

	patientID := createPatient(t, ts.URL, ownerID, map[string]any{"first_name": "Luis", "last_name": "Gómez"})

	var plan struct {
		ID string `json:"id"`
	}
	st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/careplans", ownerID, map[string]any{
		"diagnosis": "Hypertension",
		"treatment": "Losartan daily",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create care plan, got %d body=%s", st, string(body))
	}
	_ = json.Unmarshal(body, &plan)

	start := time.Now().UTC().Add(-47 * time.Hour).Truncate(time.Minute)
	var med struct {
		ID    string `json:"id"`
		Route string `json:"route"`
	}
	st, body = doReq(t, ts.URL, "POST", "/patients/"+patientID+"/medications", ownerID, map[string]any{
		"care_plan_id":   plan.ID,
		"name":           "Losartan",
		"dosage":         "50",
		"unit":           "mg",
		"interval_hours": 24,
		"start_date":     start.Format(time.RFC3339),
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create medication, got %d body=%s", st, string(body))
	}
	_ = json.Unmarshal(body, &med)
	if med.Route != "oral" {
		t.Fatalf("expected default route oral, got %q", med.Route)
	}

	// Care plan ajeno => 400
	{
		st, _ := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/medications", ownerID, map[string]any{
			"care_plan_id": "missing",
			"name":         "X",
			"dosage":       "1",
		})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown care plan, got %d", st)
		}
	}

	// Agenda desde start: 3 tomas, la última en el futuro
	var doses []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	st, body = doReq(t, ts.URL, "POST", "/patients/"+patientID+"/medications/"+med.ID+"/schedule", ownerID, map[string]any{
		"from": start.Format(time.RFC3339),
		"to":   start.Add(48 * time.Hour).Format(time.RFC3339),
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 schedule, got %d body=%s", st, string(body))
	}
	_ = json.Unmarshal(body, &doses)
	if len(doses) != 3 {
		t.Fatalf("expected 3 doses, got %d body=%s", len(doses), string(body))
	}

	// Las dos primeras ya vencieron
	st, body = doReq(t, ts.URL, "GET", "/patients/"+patientID+"/doses?status=overdue", ownerID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list overdue, got %d body=%s", st, string(body))
	}
	var overdue []map[string]any
	_ = json.Unmarshal(body, &overdue)
	if len(overdue) != 2 {
		t.Fatalf("expected 2 overdue doses, got %s", string(body))
	}

	st, body = doReq(t, ts.URL, "POST", "/patients/"+patientID+"/doses/"+doses[0].ID+"/taken", ownerID, map[string]any{"notes": "late"})
	if st != http.StatusOK {
		t.Fatalf("expected 200 mark taken, got %d body=%s", st, string(body))
	}
	st, _ = doReq(t, ts.URL, "POST", "/patients/"+patientID+"/doses/"+doses[0].ID+"/skipped", ownerID, nil)
	if st != http.StatusConflict {
		t.Fatalf("expected 409 skipping a taken dose, got %d", st)
	}

	st, body = doReq(t, ts.URL, "POST", "/patients/"+patientID+"/medications/"+med.ID+"/discontinue", ownerID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 discontinue, got %d body=%s", st, string(body))
	}
	st, _ = doReq(t, ts.URL, "POST", "/patients/"+patientID+"/medications/"+med.ID+"/schedule", ownerID, nil)
	if st != http.StatusConflict {
		t.Fatalf("expected 409 scheduling a discontinued medication, got %d", st)
	}

	// Otro paciente no ve la medicación
	otherID := createPatient(t, ts.URL, ownerID, map[string]any{"first_name": "Ana", "last_name": "Gómez"})
	st, _ = doReq(t, ts.URL, "GET", "/patients/"+otherID+"/medications/"+med.ID, ownerID, nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 for medication of another patient, got %d", st)
	}
}

func TestHTTP_Registration_CreatesEverything(t *testing.T) {
	ts := newTestServer(t)
	ownerID := "owner-1"

	st, body := doReq(t, ts.URL, "POST", "/registrations", ownerID, map[string]any{
		"patient":   map[string]any{"first_name": "Marta", "last_name": "Ruiz"},
		"care_plan": map[string]any{"diagnosis": "Post-surgery recovery"},
		"medications": []map[string]any{
			{"name": "Paracetamol", "dosage": "500", "unit": "mg", "interval_hours": 8, "schedule_days": 1},
			{"name": "Ibuprofen", "dosage": "400", "unit": "mg"},
		},
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 registration, got %d body=%s", st, string(body))
	}
	var res struct {
		Outcome       string   `json:"outcome"`
		PatientID     string   `json:"patient_id"`
		CarePlanID    string   `json:"care_plan_id"`
		MedicationIDs []string `json:"medication_ids"`
		DosesCreated  int      `json:"doses_created"`
	}
	_ = json.Unmarshal(body, &res)
	if res.Outcome != "created" || res.PatientID == "" || res.CarePlanID == "" || len(res.MedicationIDs) != 2 || res.DosesCreated == 0 {
		t.Fatalf("unexpected registration result %s", string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/patients/"+res.PatientID+"/medications?care_plan_id="+res.CarePlanID, ownerID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list medications, got %d body=%s", st, string(body))
	}
	var meds []map[string]any
	_ = json.Unmarshal(body, &meds)
	if len(meds) != 2 {
		t.Fatalf("expected 2 medications linked to the care plan, got %s", string(body))
	}
}

func TestHTTP_Registration_ValidationErrorsPerStep(t *testing.T) {
	ts := newTestServer(t)

	st, body := doReq(t, ts.URL, "POST", "/registrations", "owner-1", map[string]any{
		"patient":     map[string]any{"first_name": "Marta"},
		"medications": []map[string]any{{"name": "", "dosage": "1"}},
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", st, string(body))
	}
	var resp struct {
		Errors []struct {
			Step string `json:"step"`
		} `json:"errors"`
	}
	_ = json.Unmarshal(body, &resp)
	if len(resp.Errors) != 2 || resp.Errors[0].Step != "patient" || resp.Errors[1].Step != "medications" {
		t.Fatalf("unexpected validation errors %s", string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/patients", "owner-1", nil)
	if st != http.StatusOK || string(bytes.TrimSpace(body)) != "[]" {
		t.Fatalf("expected no patients created, got %d body=%s", st, string(body))
	}
}

func TestHTTP_AuthRegisterLoginBearer(t *testing.T) {
	ts := newTestServer(t)

	st, body := doReq(t, ts.URL, "POST", "/auth/register", "", map[string]any{
		"email":        "carer@example.com",
		"password":     "s3cret-pass",
		"display_name": "Carer",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 register, got %d body=%s", st, string(body))
	}

	st, _ = doReq(t, ts.URL, "POST", "/auth/register", "", map[string]any{
		"email":    "CARER@example.com",
		"password": "another-pass",
	})
	if st != http.StatusConflict {
		t.Fatalf("expected 409 duplicate email, got %d", st)
	}

	st, _ = doReq(t, ts.URL, "POST", "/auth/login", "", map[string]any{
		"email":    "carer@example.com",
		"password": "wrong-pass",
	})
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 bad password, got %d", st)
	}

	st, body = doReq(t, ts.URL, "POST", "/auth/login", "", map[string]any{
		"email":    "carer@example.com",
		"password": "s3cret-pass",
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 login, got %d body=%s", st, string(body))
	}
	var login struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	_ = json.Unmarshal(body, &login)
	if login.AccessToken == "" {
		t.Fatalf("missing token body=%s", string(body))
	}

	st, body = doBearer(t, ts.URL, "POST", "/patients", login.AccessToken, map[string]any{
		"first_name": "Rosa",
		"last_name":  "Pérez",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create patient with bearer, got %d body=%s", st, string(body))
	}
	var p struct {
		OwnerUserID string `json:"owner_user_id"`
	}
	_ = json.Unmarshal(body, &p)
	if p.OwnerUserID != login.User.ID {
		t.Fatalf("expected owner %s, got %s", login.User.ID, p.OwnerUserID)
	}

	st, _ = doBearer(t, ts.URL, "GET", "/me", "not-a-token", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 with invalid token, got %d", st)
	}
}

func TestHTTP_InviteGrant_RejectsUnknownScope(t *testing.T) {
	ts := newTestServer(t)

	ownerID := "owner-1"
	patientID := createPatient(t, ts.URL, ownerID, map[string]any{"first_name": "Rosa", "last_name": "Pérez"})

	// scope inválido => 400
	st, _ := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/grants", ownerID, map[string]any{
		"grantee_user_id": "delegate-1",
		"scopes":          []string{"logs:read", "logs:unknown"},
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown scope, got %d", st)
	}
}

func TestHTTP_SharedPatients_AndDeleteCascade(t *testing.T) {
	ts := newTestServer(t)
	ownerID, delegateID := "owner-1", "delegate-1"

	shared := createPatient(t, ts.URL, ownerID, map[string]any{"first_name": "Rosa", "last_name": "Pérez"})
	logsOnly := createPatient(t, ts.URL, ownerID, map[string]any{"first_name": "Juan", "last_name": "Gómez"})

	g1 := inviteGrant(t, ts.URL, ownerID, shared, delegateID, []string{
		string(accessgrants.ScopePatientRead),
		string(accessgrants.ScopeLogsRead),
	})
	g2 := inviteGrant(t, ts.URL, ownerID, logsOnly, delegateID, []string{string(accessgrants.ScopeLogsRead)})
	for _, id := range []string{g1, g2} {
		if st, body := doReq(t, ts.URL, "POST", "/grants/"+id+"/accept", delegateID, nil); st != http.StatusOK {
			t.Fatalf("expected 200 accept, got %d body=%s", st, string(body))
		}
	}

	listShared := func() []string {
		st, body := doReq(t, ts.URL, "GET", "/me/patients", delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 /me/patients, got %d body=%s", st, string(body))
		}
		var items []struct {
			Patient struct {
				ID string `json:"id"`
			} `json:"patient"`
			GrantID string `json:"grant_id"`
		}
		if err := json.Unmarshal(body, &items); err != nil {
			t.Fatalf("decode /me/patients: %v", err)
		}
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.Patient.ID)
		}
		return ids
	}

	// solo el grant con patient:read aparece
	if ids := listShared(); len(ids) != 1 || ids[0] != shared {
		t.Fatalf("expected only the patient shared with patient:read, got %v", ids)
	}
	if st, _ := doReq(t, ts.URL, "GET", "/me/patients", "", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", st)
	}

	// q encuentra el texto libre de una nota
	noteID := createLog(t, ts.URL, ownerID, shared, map[string]any{
		"kind": "NOTE",
		"note": map[string]any{"text": "refused lunch, nauseous"},
	})
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+shared+"/logs?q=lunch", delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 search logs, got %d body=%s", st, string(body))
		}
		var items []struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(body, &items)
		if len(items) != 1 || items[0].ID != noteID {
			t.Fatalf("expected the note found by its text, got %s", string(body))
		}
	}

	if st, body := doReq(t, ts.URL, "DELETE", "/patients/"+shared, ownerID, nil); st != http.StatusNoContent {
		t.Fatalf("expected 204 delete patient, got %d body=%s", st, string(body))
	}
	if ids := listShared(); len(ids) != 0 {
		t.Fatalf("expected no shared patients after delete, got %v", ids)
	}

	st, body := doReq(t, ts.URL, "GET", "/me/grants", delegateID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 /me/grants, got %d", st)
	}
	var grants []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	_ = json.Unmarshal(body, &grants)
	for _, g := range grants {
		want := "active"
		if g.ID == g1 {
			want = "revoked"
		}
		if g.Status != want {
			t.Fatalf("grant %s: expected %s, got %s", g.ID, want, g.Status)
		}
	}
}

func TestHTTP_Health(t *testing.T) {
	ts := newTestServer(t)

	st, body := doReq(t, ts.URL, "GET", "/health", "", nil)
	if st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health response %d %s", st, string(body))
	}
}

func createPatient(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()
	return createAndGetID(t, baseURL, "/patients", userID, payload)
}

func createLog(t *testing.T, baseURL, userID, patientID string, payload map[string]any) string {
	t.Helper()
	return createAndGetID(t, baseURL, "/patients/"+patientID+"/logs", userID, payload)
}

func inviteGrant(t *testing.T, baseURL, ownerID, patientID, granteeID string, scopes []string) string {
	t.Helper()
	return createAndGetID(t, baseURL, "/patients/"+patientID+"/grants", ownerID, map[string]any{
		"grantee_user_id": granteeID,
		"scopes":          scopes,
	})
}

func createAndGetID(t *testing.T, baseURL, path, userID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", path, userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 POST %s, got %d body=%s", path, st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("POST %s: missing id body=%s", path, string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()
	headers := map[string]string{}
	if debugUserID != "" {
		headers["X-Debug-User-ID"] = debugUserID
	}
	return do(t, baseURL, method, path, headers, body)
}

func doBearer(t *testing.T, baseURL, method, path, token string, body any) (int, []byte) {
	t.Helper()
	return do(t, baseURL, method, path, map[string]string{"Authorization": "Bearer " + token}, body)
}

func do(t *testing.T, baseURL, method, path string, headers map[string]string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
