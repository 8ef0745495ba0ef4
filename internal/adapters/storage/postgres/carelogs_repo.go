package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"patient-care/internal/domain/carelogs"
)

type CareLogsRepo struct {
	db *sql.DB
}

func NewCareLogsRepo(db *sql.DB) *CareLogsRepo {
	return &CareLogsRepo{db: db}
}

const careLogColumns = `
	id, patient_id,
	kind, occurred_at, recorded_at,
	title, notes,
	actor_type, actor_id,
	status, voided_at, detail`

func (r *CareLogsRepo) Create(ctx context.Context, e carelogs.LogEntry) error {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return fmt.Errorf("encode detail: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO care_logs (`+careLogColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		e.ID,
		e.PatientID,
		string(e.Kind),
		e.OccurredAt,
		e.RecordedAt,
		e.Title,
		e.Notes,
		string(e.Actor.Type),
		e.Actor.ID,
		string(e.Status),
		toNullTime(e.VoidedAt),
		string(detail),
	)
	return err
}

func (r *CareLogsRepo) GetByID(ctx context.Context, id string) (carelogs.LogEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return carelogs.LogEntry{}, carelogs.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+careLogColumns+` FROM care_logs WHERE id = $1`, id)
	e, err := scanCareLog(row)
	if err != nil {
		return carelogs.LogEntry{}, notFound(err, carelogs.ErrNotFound)
	}
	return e, nil
}

func (r *CareLogsRepo) ListByPatient(ctx context.Context, patientID string, filter carelogs.ListFilter) ([]carelogs.LogEntry, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return []carelogs.LogEntry{}, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + careLogColumns + ` FROM care_logs WHERE patient_id = $1`)
	args := []any{patientID}
	argN := 2

	if len(filter.Kinds) > 0 {
		placeholders := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
			args = append(args, string(k))
			argN++
		}
		sb.WriteString(" AND kind IN (" + strings.Join(placeholders, ",") + ")")
	}
	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND occurred_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND occurred_at <= $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	// q: title, notes, texto de la nota y condición del antecedente
	if q := strings.TrimSpace(filter.Query); q != "" {
		sb.WriteString(fmt.Sprintf(` AND (title ILIKE $%[1]d ESCAPE '\' OR notes ILIKE $%[1]d ESCAPE '\'`+
			` OR detail->'note'->>'text' ILIKE $%[1]d ESCAPE '\'`+
			` OR detail->'history'->>'condition' ILIKE $%[1]d ESCAPE '\')`, argN))
		args = append(args, likePattern(q))
		argN++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = carelogs.DefaultListLimit
	}
	if limit > carelogs.MaxListLimit {
		limit = carelogs.MaxListLimit
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d", argN))
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]carelogs.LogEntry, 0)
	for rows.Next() {
		e, err := scanCareLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *CareLogsRepo) Void(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE care_logs
		SET status = 'voided', voided_at = $2
		WHERE id = $1
	`, id, at)
	return expectOne(res, err, carelogs.ErrNotFound)
}

func (r *CareLogsRepo) DeleteByPatient(ctx context.Context, patientID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM care_logs WHERE patient_id = $1`, patientID)
	return err
}

func scanCareLog(s scanner) (carelogs.LogEntry, error) {
	var e carelogs.LogEntry
	var kind, actorType, status string
	var voided sql.NullTime
	var detail []byte
	if err := s.Scan(
		&e.ID,
		&e.PatientID,
		&kind,
		&e.OccurredAt,
		&e.RecordedAt,
		&e.Title,
		&e.Notes,
		&actorType,
		&e.Actor.ID,
		&status,
		&voided,
		&detail,
	); err != nil {
		return carelogs.LogEntry{}, err
	}
	if len(detail) > 0 {
		if err := json.Unmarshal(detail, &e.Detail); err != nil {
			return carelogs.LogEntry{}, fmt.Errorf("decode detail: %w", err)
		}
	}
	e.Kind = carelogs.Kind(kind)
	e.Actor.Type = carelogs.ActorType(actorType)
	e.Status = carelogs.Status(status)
	e.VoidedAt = fromNullTime(voided)
	return e, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern arma un "contiene" literal para ILIKE ... ESCAPE '\'.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
