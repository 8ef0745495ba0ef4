package medications

import "time"

type DoseStatus string

const (
	DoseScheduled DoseStatus = "scheduled"
	DoseTaken     DoseStatus = "taken"
	DoseSkipped   DoseStatus = "skipped"

	// DoseOverdue no se persiste: se deriva de scheduled + OverdueGrace.
	DoseOverdue DoseStatus = "overdue"
)

// OverdueGrace es la tolerancia antes de considerar una toma atrasada.
const OverdueGrace = time.Hour

// Dose es una toma (agendada o registrada ad-hoc) de una medicación.
type Dose struct {
	ID           string
	MedicationID string
	PatientID    string

	ScheduledAt time.Time
	TakenAt     *time.Time
	Status      DoseStatus

	Amount string
	Notes  string

	RecordedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveStatus devuelve overdue para tomas agendadas vencidas.
func (d Dose) EffectiveStatus(now time.Time) DoseStatus {
	if d.Status == DoseScheduled && now.After(d.ScheduledAt.Add(OverdueGrace)) {
		return DoseOverdue
	}
	return d.Status
}
