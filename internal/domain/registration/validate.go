package registration

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidInput = errors.New("invalid input")

const (
	StepPatient     = "patient"
	StepCarePlan    = "care_plan"
	StepMedications = "medications"
)

// StepError es un error de un paso del wizard. Index solo aplica a medications.
type StepError struct {
	Step    string `json:"step"`
	Index   *int   `json:"index,omitempty"`
	Message string `json:"message"`
}

// ValidationError junta todos los errores de los pasos.
type ValidationError struct {
	Errors []StepError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, se := range e.Errors {
		if se.Index != nil {
			parts = append(parts, fmt.Sprintf("%s[%d]: %s", se.Step, *se.Index, se.Message))
			continue
		}
		parts = append(parts, se.Step+": "+se.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func (e *ValidationError) add(step string, idx *int, err error) {
	e.Errors = append(e.Errors, StepError{Step: step, Index: idx, Message: stripSentinel(err)})
}

// Validate revisa todos los pasos sin escribir nada.
func Validate(in Input, now time.Time) error {
	verr := &ValidationError{}

	if p, err := in.Patient.Input(); err != nil {
		verr.add(StepPatient, nil, err)
	} else if err := p.Validate(now); err != nil {
		verr.add(StepPatient, nil, err)
	}

	if in.CarePlan != nil {
		if cp, err := in.CarePlan.Input(); err != nil {
			verr.add(StepCarePlan, nil, err)
		} else if err := cp.Validate(); err != nil {
			verr.add(StepCarePlan, nil, err)
		}
	}

	for i, d := range in.Medications {
		idx := i
		if strings.TrimSpace(d.CarePlanID) != "" {
			verr.add(StepMedications, &idx, errors.New("care_plan_id is assigned by the registration"))
			continue
		}
		m, err := d.Input()
		if err != nil {
			verr.add(StepMedications, &idx, err)
			continue
		}
		if err := m.Validate(); err != nil {
			verr.add(StepMedications, &idx, err)
			continue
		}
		if d.ScheduleDays < 0 || d.ScheduleDays > MaxScheduleDays {
			verr.add(StepMedications, &idx, fmt.Errorf("schedule_days must be between 0 and %d", MaxScheduleDays))
			continue
		}
		if d.ScheduleDays > 0 && d.IntervalHours == 0 {
			verr.add(StepMedications, &idx, errors.New("schedule_days requires interval_hours"))
		}
	}

	if len(verr.Errors) > 0 {
		return verr
	}
	return nil
}

// stripSentinel quita el prefijo "invalid input: " de los errores de dominio.
func stripSentinel(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 && strings.HasPrefix(msg, "invalid input") {
		return msg[i+2:]
	}
	return msg
}
