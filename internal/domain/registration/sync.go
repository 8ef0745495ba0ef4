package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"patient-care/internal/platform/logger"
)

// syncBatch es cuántos envíos se procesan por pasada.
const syncBatch = 50

type SyncReport struct {
	Synced  int `json:"synced"`
	Retried int `json:"retried"`
	Failed  int `json:"failed"`
}

// Sync aplica los envíos pendientes, los más antiguos primero. ownerUserID
// vacío procesa todos los dueños.
func (s *Service) Sync(ctx context.Context, ownerUserID string) (SyncReport, error) {
	var rep SyncReport
	if s.outbox == nil {
		return rep, nil
	}
	if !s.conn.Online(ctx) {
		return rep, ErrOffline
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	pending, err := s.outbox.ListPending(ctx, ownerUserID, syncBatch)
	if err != nil {
		return rep, fmt.Errorf("list pending: %w", err)
	}

	for _, sub := range pending {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		claimed, err := s.outbox.Claim(ctx, sub.ID)
		if err != nil {
			return rep, fmt.Errorf("claim submission %s: %w", sub.ID, err)
		}
		if !claimed {
			continue
		}

		applyErr := s.syncOne(ctx, &sub)
		sub.UpdatedAt = s.now()
		switch sub.Status {
		case SubmissionSynced:
			rep.Synced++
		case SubmissionFailed:
			rep.Failed++
		default:
			rep.Retried++
		}
		// el claim se libera aunque el contexto se haya cancelado
		if err := s.outbox.Update(context.WithoutCancel(ctx), sub); err != nil {
			return rep, fmt.Errorf("update submission %s: %w", sub.ID, err)
		}

		fields := logger.Fields{"submission_id": sub.ID, "status": string(sub.Status), "attempts": sub.Attempts}
		if applyErr != nil {
			fields["error"] = applyErr
			s.log.Warn("registration sync attempt failed", fields)
		} else {
			fields["patient_id"] = sub.PatientID
			s.log.Info("registration synced", fields)
		}
	}
	return rep, nil
}

// RecoverClaims devuelve a pending los envíos que quedaron en syncing por un
// corte a mitad de una pasada.
func (s *Service) RecoverClaims(ctx context.Context) (int, error) {
	if s.outbox == nil {
		return 0, nil
	}
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	return s.outbox.ReleaseClaims(ctx)
}

func (s *Service) syncOne(ctx context.Context, sub *Submission) error {
	var in Input
	if err := json.Unmarshal(sub.Payload, &in); err != nil {
		sub.Attempts++
		sub.Status = SubmissionFailed
		sub.LastError = "decode payload: " + err.Error()
		return err
	}

	res, err := s.apply(ctx, sub.OwnerUserID, in)
	if err != nil {
		sub.Attempts++
		sub.LastError = err.Error()
		// errores de validación no se arreglan reintentando
		if errors.Is(err, ErrInvalidInput) || sub.Attempts >= MaxSyncAttempts {
			sub.Status = SubmissionFailed
		} else {
			sub.Status = SubmissionPending
		}
		return err
	}

	sub.Status = SubmissionSynced
	sub.PatientID = res.PatientID
	sub.LastError = ""
	return nil
}

// Syncer corre Sync cada Interval hasta que se cancele el contexto.
type Syncer struct {
	svc      *Service
	interval time.Duration
	log      logger.Logger
}

func NewSyncer(svc *Service, interval time.Duration, log logger.Logger) *Syncer {
	if log == nil {
		log = logger.Nop()
	}
	return &Syncer{svc: svc, interval: interval, log: log.With(logger.Fields{"component": "registration_syncer"})}
}

func (s *Syncer) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}
	t := time.NewTicker(s.interval)
	defer t.Stop()

	if n, err := s.svc.RecoverClaims(ctx); err != nil {
		s.log.Error("release interrupted claims failed", logger.Fields{"error": err})
	} else if n > 0 {
		s.log.Warn("released interrupted claims", logger.Fields{"count": n})
	}

	s.log.Info("syncer started", logger.Fields{"interval": s.interval.String()})
	for {
		select {
		case <-ctx.Done():
			s.log.Info("syncer stopped", nil)
			return nil
		case <-t.C:
			rep, err := s.svc.Sync(ctx, "")
			switch {
			case errors.Is(err, ErrOffline):
				s.log.Debug("sync skipped: offline", nil)
			case err != nil && ctx.Err() == nil:
				s.log.Error("sync failed", logger.Fields{"error": err})
			case rep.Synced+rep.Retried+rep.Failed > 0:
				s.log.Info("sync pass", logger.Fields{"synced": rep.Synced, "retried": rep.Retried, "failed": rep.Failed})
			}
		}
	}
}
