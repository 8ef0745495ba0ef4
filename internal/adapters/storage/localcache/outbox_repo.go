package localcache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"patient-care/internal/domain/registration"

	"github.com/jmoiron/sqlx"
)

type OutboxRepo struct {
	db *sqlx.DB
}

func NewOutboxRepo(db *sqlx.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// outboxRow: los tiempos se guardan como unix nanos para ordenar sin parsear.
type outboxRow struct {
	ID          string `db:"id"`
	OwnerUserID string `db:"owner_user_id"`
	Payload     []byte `db:"payload"`
	Status      string `db:"status"`
	Attempts    int    `db:"attempts"`
	LastError   string `db:"last_error"`
	PatientID   string `db:"patient_id"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func toRow(s registration.Submission) outboxRow {
	return outboxRow{
		ID:          s.ID,
		OwnerUserID: s.OwnerUserID,
		Payload:     s.Payload,
		Status:      string(s.Status),
		Attempts:    s.Attempts,
		LastError:   s.LastError,
		PatientID:   s.PatientID,
		CreatedAt:   s.CreatedAt.UnixNano(),
		UpdatedAt:   s.UpdatedAt.UnixNano(),
	}
}

func (r outboxRow) submission() registration.Submission {
	return registration.Submission{
		ID:          r.ID,
		OwnerUserID: r.OwnerUserID,
		Payload:     r.Payload,
		Status:      registration.SubmissionStatus(r.Status),
		Attempts:    r.Attempts,
		LastError:   r.LastError,
		PatientID:   r.PatientID,
		CreatedAt:   time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt:   time.Unix(0, r.UpdatedAt).UTC(),
	}
}

const outboxColumns = `id, owner_user_id, payload, status, attempts, last_error, patient_id, created_at, updated_at`

func (r *OutboxRepo) Enqueue(ctx context.Context, s registration.Submission) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO registration_outbox (`+outboxColumns+`)
		VALUES (:id, :owner_user_id, :payload, :status, :attempts, :last_error, :patient_id, :created_at, :updated_at)
	`, toRow(s))
	return err
}

func (r *OutboxRepo) Update(ctx context.Context, s registration.Submission) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE registration_outbox
		SET status = :status, attempts = :attempts, last_error = :last_error,
		    patient_id = :patient_id, updated_at = :updated_at
		WHERE id = :id
	`, toRow(s))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return registration.ErrNotFound
	}
	return nil
}

func (r *OutboxRepo) GetByID(ctx context.Context, id string) (registration.Submission, error) {
	var row outboxRow
	err := r.db.GetContext(ctx, &row, `SELECT `+outboxColumns+` FROM registration_outbox WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return registration.Submission{}, registration.ErrNotFound
		}
		return registration.Submission{}, err
	}
	return row.submission(), nil
}

func (r *OutboxRepo) ListPending(ctx context.Context, ownerUserID string, limit int) ([]registration.Submission, error) {
	if limit <= 0 {
		limit = -1 // sin límite en SQLite
	}
	var rows []outboxRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+outboxColumns+`
		FROM registration_outbox
		WHERE status = ? AND (? = '' OR owner_user_id = ?)
		ORDER BY created_at ASC
		LIMIT ?
	`, string(registration.SubmissionPending), ownerUserID, ownerUserID, limit)
	if err != nil {
		return nil, err
	}
	return toSubmissions(rows), nil
}

func (r *OutboxRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]registration.Submission, error) {
	var rows []outboxRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+outboxColumns+`
		FROM registration_outbox
		WHERE owner_user_id = ?
		ORDER BY created_at DESC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	return toSubmissions(rows), nil
}

// Claim es atómico: solo una pasada ve RowsAffected == 1.
func (r *OutboxRepo) Claim(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE registration_outbox
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(registration.SubmissionSyncing), time.Now().UnixNano(), id, string(registration.SubmissionPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *OutboxRepo) ReleaseClaims(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE registration_outbox SET status = ? WHERE status = ?
	`, string(registration.SubmissionPending), string(registration.SubmissionSyncing))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func toSubmissions(rows []outboxRow) []registration.Submission {
	out := make([]registration.Submission, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.submission())
	}
	return out
}
