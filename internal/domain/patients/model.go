package patients

import "time"

// Sex del paciente.
// @Enum male, female, other, unknown
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexOther   Sex = "other"
	SexUnknown Sex = "unknown"
)

func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexOther, SexUnknown:
		return true
	}
	return false
}

// Patient es la persona a cargo de un caregiver (OwnerUserID).
type Patient struct {
	ID          string
	OwnerUserID string

	FirstName string
	LastName  string
	BirthDate *time.Time
	Sex       Sex

	Phone            string
	Address          string
	EmergencyContact string
	Allergies        string
	Notes            string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
