package medications

import "time"

// Route de administración.
type Route string

const (
	RouteOral        Route = "oral"
	RouteSublingual  Route = "sublingual"
	RouteTopical     Route = "topical"
	RouteInhaled     Route = "inhaled"
	RouteInjection   Route = "injection"
	RouteIntravenous Route = "intravenous"
	RouteOther       Route = "other"
)

func (r Route) Valid() bool {
	switch r {
	case RouteOral, RouteSublingual, RouteTopical, RouteInhaled, RouteInjection, RouteIntravenous, RouteOther:
		return true
	}
	return false
}

// MaxIntervalHours: una toma semanal como máximo.
const MaxIntervalHours = 168

// Medication de un paciente, opcionalmente ligada a un care plan.
// IntervalHours == 0 significa "según necesidad" (sin agenda de dosis).
type Medication struct {
	ID         string
	PatientID  string
	CarePlanID string

	Name          string
	Dosage        string // "500"
	Unit          string // "mg", "ml"
	Route         Route
	IntervalHours int

	StartDate time.Time
	EndDate   *time.Time

	Instructions string
	Active       bool

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Scheduled indica si la medicación tiene tomas periódicas.
func (m Medication) Scheduled() bool {
	return m.IntervalHours > 0
}
