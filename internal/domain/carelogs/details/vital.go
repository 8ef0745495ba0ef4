package details

import (
	"errors"
	"fmt"
	"strings"
)

type VitalType string

const (
	VitalHeartRate        VitalType = "heart_rate"
	VitalBloodPressure    VitalType = "blood_pressure"
	VitalTemperature      VitalType = "temperature"
	VitalRespiratoryRate  VitalType = "respiratory_rate"
	VitalOxygenSaturation VitalType = "oxygen_saturation"
	VitalGlucose          VitalType = "glucose"
	VitalWeight           VitalType = "weight"
)

var ErrInvalidVital = errors.New("invalid vital")

// Vital es una medición. Para blood_pressure Value es la sistólica y
// Secondary la diastólica.
type Vital struct {
	Type      VitalType `json:"type" bson:"type"`
	Value     float64   `json:"value" bson:"value"`
	Secondary *float64  `json:"secondary,omitempty" bson:"secondary,omitempty"`
	Unit      string    `json:"unit" bson:"unit"`
}

type vitalRange struct {
	min, max float64
}

// rangos aceptados por tipo y unidad; la primera unidad es la default.
var vitalUnits = map[VitalType][]struct {
	unit string
	r    vitalRange
}{
	VitalHeartRate:        {{"bpm", vitalRange{20, 250}}},
	VitalBloodPressure:    {{"mmHg", vitalRange{40, 300}}},
	VitalTemperature:      {{"C", vitalRange{30, 45}}, {"F", vitalRange{86, 113}}},
	VitalRespiratoryRate:  {{"breaths/min", vitalRange{4, 70}}},
	VitalOxygenSaturation: {{"%", vitalRange{50, 100}}},
	VitalGlucose:          {{"mg/dL", vitalRange{10, 800}}, {"mmol/L", vitalRange{0.5, 45}}},
	VitalWeight:           {{"kg", vitalRange{0.5, 500}}, {"lb", vitalRange{1, 1100}}},
}

// diastólica
var diastolicRange = vitalRange{20, 200}

func (t VitalType) Valid() bool {
	_, ok := vitalUnits[t]
	return ok
}

// DefaultUnit de un tipo ("" si el tipo no existe).
func DefaultUnit(t VitalType) string {
	units, ok := vitalUnits[t]
	if !ok {
		return ""
	}
	return units[0].unit
}

// Normalize completa la unidad por defecto y valida rangos.
func (v Vital) Normalize() (Vital, error) {
	v.Type = VitalType(strings.ToLower(strings.TrimSpace(string(v.Type))))
	units, ok := vitalUnits[v.Type]
	if !ok {
		return Vital{}, fmt.Errorf("%w: unknown type %q", ErrInvalidVital, v.Type)
	}

	v.Unit = strings.TrimSpace(v.Unit)
	if v.Unit == "" {
		v.Unit = units[0].unit
	}

	var r *vitalRange
	for i := range units {
		if strings.EqualFold(units[i].unit, v.Unit) {
			v.Unit = units[i].unit
			r = &units[i].r
			break
		}
	}
	if r == nil {
		return Vital{}, fmt.Errorf("%w: unit %q not allowed for %s", ErrInvalidVital, v.Unit, v.Type)
	}
	if v.Value < r.min || v.Value > r.max {
		return Vital{}, fmt.Errorf("%w: %s out of range (%g-%g %s)", ErrInvalidVital, v.Type, r.min, r.max, v.Unit)
	}

	if v.Type == VitalBloodPressure {
		if v.Secondary == nil {
			return Vital{}, fmt.Errorf("%w: blood_pressure requires secondary (diastolic)", ErrInvalidVital)
		}
		d := *v.Secondary
		if d < diastolicRange.min || d > diastolicRange.max || d >= v.Value {
			return Vital{}, fmt.Errorf("%w: diastolic out of range", ErrInvalidVital)
		}
	} else if v.Secondary != nil {
		return Vital{}, fmt.Errorf("%w: secondary only applies to blood_pressure", ErrInvalidVital)
	}

	return v, nil
}

// Label corto para títulos por defecto ("blood_pressure 120/80 mmHg").
func (v Vital) Label() string {
	if v.Secondary != nil {
		return fmt.Sprintf("%s %g/%g %s", v.Type, v.Value, *v.Secondary, v.Unit)
	}
	return fmt.Sprintf("%s %g %s", v.Type, v.Value, v.Unit)
}
