package accessgrants

import "time"

type Scope string

const (
	ScopePatientRead      Scope = "patient:read"
	ScopePatientEdit      Scope = "patient:edit"
	ScopeCarePlansRead    Scope = "careplans:read"
	ScopeCarePlansWrite   Scope = "careplans:write"
	ScopeMedicationsRead  Scope = "medications:read"
	ScopeMedicationsWrite Scope = "medications:write"
	ScopeDosesRecord      Scope = "doses:record"
	ScopeLogsRead         Scope = "logs:read"
	ScopeLogsCreate       Scope = "logs:create"
	ScopeLogsVoid         Scope = "logs:void"
)

// AllScopes en el orden en que se documentan.
var AllScopes = []Scope{
	ScopePatientRead,
	ScopePatientEdit,
	ScopeCarePlansRead,
	ScopeCarePlansWrite,
	ScopeMedicationsRead,
	ScopeMedicationsWrite,
	ScopeDosesRecord,
	ScopeLogsRead,
	ScopeLogsCreate,
	ScopeLogsVoid,
}

// DefaultScopes se aplican cuando el invite no trae scopes: solo lectura.
var DefaultScopes = []Scope{
	ScopePatientRead,
	ScopeCarePlansRead,
	ScopeMedicationsRead,
	ScopeLogsRead,
}

type Status string

const (
	StatusInvited Status = "invited"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Role indica con qué rol actúa un usuario sobre un paciente.
type Role string

const (
	RoleOwner    Role = "OWNER"
	RoleDelegate Role = "DELEGATE"
)

// Grant comparte un paciente con otro caregiver.
type Grant struct {
	ID string

	PatientID string

	OwnerUserID   string // quien comparte
	GranteeUserID string // caregiver delegado

	Scopes []Scope
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
