package registration

import (
	"time"

	"patient-care/internal/domain/careplans"
	"patient-care/internal/domain/medications"
	"patient-care/internal/domain/patients"
)

// MaxScheduleDays acota la agenda inicial que pide una medicación borrador.
const MaxScheduleDays = 30

// DraftMedication es una medicación cargada en el wizard antes de que exista
// el paciente. Se liga automáticamente al care plan del mismo envío.
type DraftMedication struct {
	medications.CreateRequest
	ScheduleDays int `json:"schedule_days"` // 0 = sin agenda inicial
}

// Input es el envío completo del wizard de alta de paciente.
type Input struct {
	Patient     patients.CreateRequest   `json:"patient"`
	CarePlan    *careplans.CreateRequest `json:"care_plan,omitempty"`
	Medications []DraftMedication        `json:"medications,omitempty"`
}

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeQueued  Outcome = "queued"
)

// Result de Submit: ids creados (online) o id del envío encolado (offline).
type Result struct {
	Outcome       Outcome
	SubmissionID  string
	PatientID     string
	CarePlanID    string
	MedicationIDs []string
	DosesCreated  int
}

type SubmissionStatus string

const (
	SubmissionPending SubmissionStatus = "pending"
	SubmissionSyncing SubmissionStatus = "syncing" // tomado por una pasada de Sync
	SubmissionSynced  SubmissionStatus = "synced"
	SubmissionFailed  SubmissionStatus = "failed"
)

// MaxSyncAttempts antes de marcar un envío como failed.
const MaxSyncAttempts = 5

// Submission es un envío guardado en el outbox local mientras no hay conexión.
type Submission struct {
	ID          string
	OwnerUserID string
	Payload     []byte // Input en JSON
	Status      SubmissionStatus
	Attempts    int
	LastError   string
	PatientID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
