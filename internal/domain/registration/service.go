package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"patient-care/internal/domain/careplans"
	"patient-care/internal/domain/medications"
	"patient-care/internal/domain/patients"
	"patient-care/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrOffline  = errors.New("primary store unreachable")
	ErrNotFound = errors.New("submission not found")
)

type PatientWriter interface {
	Create(ctx context.Context, ownerUserID string, in patients.CreateInput) (patients.Patient, error)
	Delete(ctx context.Context, id, requesterUserID string) error
}

type CarePlanWriter interface {
	Create(ctx context.Context, patientID, actorID string, in careplans.CreateInput) (careplans.CarePlan, error)
	Delete(ctx context.Context, patientID, id string) error
}

type MedicationWriter interface {
	Create(ctx context.Context, patientID, actorID string, in medications.CreateInput) (medications.Medication, error)
	ScheduleDoses(ctx context.Context, patientID, medicationID string, from, to time.Time) ([]medications.Dose, error)
	Delete(ctx context.Context, patientID, id string) error
}

type Service struct {
	patients    PatientWriter
	careplans   CarePlanWriter
	medications MedicationWriter

	outbox Outbox
	conn   Connectivity
	log    logger.Logger
	now    func() time.Time

	// una pasada de Sync a la vez por proceso
	syncMu sync.Mutex
}

type Deps struct {
	Patients     PatientWriter
	CarePlans    CarePlanWriter
	Medications  MedicationWriter
	Outbox       Outbox       // nil: sin modo offline
	Connectivity Connectivity // nil: AlwaysOnline
	Logger       logger.Logger
}

func NewService(d Deps) *Service {
	conn := d.Connectivity
	if conn == nil {
		conn = AlwaysOnline{}
	}
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		patients:    d.Patients,
		careplans:   d.CarePlans,
		medications: d.Medications,
		outbox:      d.Outbox,
		conn:        conn,
		log:         log.With(logger.Fields{"component": "registration"}),
		now:         time.Now,
	}
}

// Submit valida todo el wizard y lo aplica online o lo encola offline.
func (s *Service) Submit(ctx context.Context, ownerUserID string, in Input) (Result, error) {
	if ownerUserID == "" {
		return Result{}, fmt.Errorf("%w: owner required", ErrInvalidInput)
	}
	if err := Validate(in, s.now()); err != nil {
		return Result{}, err
	}

	if s.conn.Online(ctx) {
		res, err := s.apply(ctx, ownerUserID, in)
		// si la conexión se cayó a mitad del alta, lo deshecho va al outbox
		if err == nil || errors.Is(err, ErrInvalidInput) || s.outbox == nil || s.conn.Online(ctx) {
			return res, err
		}
		s.log.Warn("registration apply failed offline, queuing", logger.Fields{"error": err, "user_id": ownerUserID})
	} else if s.outbox == nil {
		return Result{}, ErrOffline
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return Result{}, fmt.Errorf("encode submission: %w", err)
	}
	now := s.now()
	sub := Submission{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Payload:     payload,
		Status:      SubmissionPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.outbox.Enqueue(ctx, sub); err != nil {
		return Result{}, fmt.Errorf("enqueue submission: %w", err)
	}
	s.log.Info("registration queued", logger.Fields{"submission_id": sub.ID, "user_id": ownerUserID})
	return Result{Outcome: OutcomeQueued, SubmissionID: sub.ID}, nil
}

// apply crea paciente, care plan, medicaciones y tomas en ese orden. Si algo
// falla deshace lo creado en orden inverso.
func (s *Service) apply(ctx context.Context, ownerUserID string, in Input) (res Result, err error) {
	var undo []func(context.Context) error
	defer func() {
		if err == nil {
			return
		}
		for i := len(undo) - 1; i >= 0; i-- {
			if uerr := undo[i](context.WithoutCancel(ctx)); uerr != nil {
				s.log.Error("registration rollback step failed", logger.Fields{"error": uerr, "user_id": ownerUserID})
			}
		}
		res = Result{}
	}()

	pin, err := in.Patient.Input()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	p, err := s.patients.Create(ctx, ownerUserID, pin)
	if err != nil {
		return Result{}, classify("create patient", err)
	}
	undo = append(undo, func(ctx context.Context) error { return s.patients.Delete(ctx, p.ID, ownerUserID) })
	res = Result{Outcome: OutcomeCreated, PatientID: p.ID, MedicationIDs: []string{}}

	if in.CarePlan != nil {
		cin, err := in.CarePlan.Input()
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		cp, err := s.careplans.Create(ctx, p.ID, ownerUserID, cin)
		if err != nil {
			return Result{}, classify("create care plan", err)
		}
		undo = append(undo, func(ctx context.Context) error { return s.careplans.Delete(ctx, p.ID, cp.ID) })
		res.CarePlanID = cp.ID
	}

	for i, d := range in.Medications {
		medIn, err := d.Input()
		if err != nil {
			return Result{}, fmt.Errorf("%w: medications[%d]: %v", ErrInvalidInput, i, err)
		}
		medIn.CarePlanID = res.CarePlanID
		m, err := s.medications.Create(ctx, p.ID, ownerUserID, medIn)
		if err != nil {
			return Result{}, classify(fmt.Sprintf("create medication %d", i), err)
		}
		// Delete de medicación también borra sus tomas
		undo = append(undo, func(ctx context.Context) error { return s.medications.Delete(ctx, p.ID, m.ID) })
		res.MedicationIDs = append(res.MedicationIDs, m.ID)

		if d.ScheduleDays > 0 {
			from := m.StartDate
			if now := s.now(); from.Before(now) {
				from = now
			}
			doses, err := s.medications.ScheduleDoses(ctx, p.ID, m.ID, from, from.AddDate(0, 0, d.ScheduleDays))
			if err != nil {
				return Result{}, classify(fmt.Sprintf("schedule doses %d", i), err)
			}
			res.DosesCreated += len(doses)
		}
	}

	s.log.Info("registration applied", logger.Fields{
		"user_id":     ownerUserID,
		"patient_id":  res.PatientID,
		"medications": len(res.MedicationIDs),
		"doses":       res.DosesCreated,
	})
	return res, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Submission, error) {
	if s.outbox == nil {
		return []Submission{}, nil
	}
	return s.outbox.ListByOwner(ctx, ownerUserID)
}

// GetForOwner devuelve un envío solo a su dueño.
func (s *Service) GetForOwner(ctx context.Context, ownerUserID, id string) (Submission, error) {
	if s.outbox == nil {
		return Submission{}, ErrNotFound
	}
	sub, err := s.outbox.GetByID(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if sub.OwnerUserID != ownerUserID {
		return Submission{}, ErrNotFound
	}
	return sub, nil
}

// classify lleva los errores de validación de cada dominio a ErrInvalidInput.
func classify(step string, err error) error {
	if errors.Is(err, patients.ErrInvalidInput) ||
		errors.Is(err, careplans.ErrInvalidInput) ||
		errors.Is(err, medications.ErrInvalidInput) {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, step, err)
	}
	return fmt.Errorf("%s: %w", step, err)
}
