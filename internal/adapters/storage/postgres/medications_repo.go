package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"patient-care/internal/domain/medications"
)

type MedicationsRepo struct {
	db *sql.DB
}

func NewMedicationsRepo(db *sql.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

const medicationColumns = `
	id, patient_id, care_plan_id,
	name, dosage, unit, route, interval_hours,
	start_date, end_date, instructions, active,
	created_by, created_at, updated_at`

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medications (`+medicationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		m.ID,
		m.PatientID,
		toNullString(m.CarePlanID),
		m.Name,
		m.Dosage,
		m.Unit,
		string(m.Route),
		m.IntervalHours,
		m.StartDate,
		toNullTime(m.EndDate),
		m.Instructions,
		m.Active,
		m.CreatedBy,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Medication) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medications
		SET
			care_plan_id = $2,
			name = $3,
			dosage = $4,
			unit = $5,
			route = $6,
			interval_hours = $7,
			end_date = $8,
			instructions = $9,
			active = $10,
			updated_at = $11
		WHERE id = $1
	`,
		m.ID,
		toNullString(m.CarePlanID),
		m.Name,
		m.Dosage,
		m.Unit,
		string(m.Route),
		m.IntervalHours,
		toNullTime(m.EndDate),
		m.Instructions,
		m.Active,
		m.UpdatedAt,
	)
	return expectOne(res, err, medications.ErrNotFound)
}

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Medication{}, medications.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+medicationColumns+` FROM medications WHERE id = $1`, id)
	m, err := scanMedication(row)
	if err != nil {
		return medications.Medication{}, notFound(err, medications.ErrNotFound)
	}
	return m, nil
}

func (r *MedicationsRepo) ListByPatient(ctx context.Context, patientID string, filter medications.ListFilter) ([]medications.Medication, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + medicationColumns + ` FROM medications WHERE patient_id = $1`)
	args := []any{patientID}

	if filter.CarePlanID != "" {
		args = append(args, filter.CarePlanID)
		sb.WriteString(fmt.Sprintf(" AND care_plan_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		sb.WriteString(" AND active")
	}
	sb.WriteString(" ORDER BY created_at ASC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Medication, 0)
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MedicationsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = $1`, id)
	return expectOne(res, err, medications.ErrNotFound)
}

func scanMedication(s scanner) (medications.Medication, error) {
	var m medications.Medication
	var planID sql.NullString
	var route string
	var end sql.NullTime
	if err := s.Scan(
		&m.ID,
		&m.PatientID,
		&planID,
		&m.Name,
		&m.Dosage,
		&m.Unit,
		&route,
		&m.IntervalHours,
		&m.StartDate,
		&end,
		&m.Instructions,
		&m.Active,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return medications.Medication{}, err
	}
	m.CarePlanID = planID.String
	m.Route = medications.Route(route)
	m.EndDate = fromNullTime(end)
	return m, nil
}

type DosesRepo struct {
	db *sql.DB
}

func NewDosesRepo(db *sql.DB) *DosesRepo {
	return &DosesRepo{db: db}
}

const doseColumns = `
	id, medication_id, patient_id,
	scheduled_at, taken_at, status,
	amount, notes, recorded_by,
	created_at, updated_at`

// CreateDoses inserta en una transacción (todo o nada).
func (r *DosesRepo) CreateDoses(ctx context.Context, doses []medications.Dose) error {
	if len(doses) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO doses (`+doseColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range doses {
		if _, err := stmt.ExecContext(ctx,
			d.ID,
			d.MedicationID,
			d.PatientID,
			d.ScheduledAt,
			toNullTime(d.TakenAt),
			string(d.Status),
			d.Amount,
			d.Notes,
			d.RecordedBy,
			d.CreatedAt,
			d.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert dose %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

func (r *DosesRepo) UpdateDose(ctx context.Context, d medications.Dose) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE doses
		SET taken_at = $2, status = $3, amount = $4, notes = $5, recorded_by = $6, updated_at = $7
		WHERE id = $1
	`,
		d.ID,
		toNullTime(d.TakenAt),
		string(d.Status),
		d.Amount,
		d.Notes,
		d.RecordedBy,
		d.UpdatedAt,
	)
	return expectOne(res, err, medications.ErrDoseNotFound)
}

func (r *DosesRepo) GetDose(ctx context.Context, id string) (medications.Dose, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Dose{}, medications.ErrDoseNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+doseColumns+` FROM doses WHERE id = $1`, id)
	d, err := scanDose(row)
	if err != nil {
		return medications.Dose{}, notFound(err, medications.ErrDoseNotFound)
	}
	return d, nil
}

func (r *DosesRepo) ListDoses(ctx context.Context, filter medications.DoseFilter) ([]medications.Dose, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + doseColumns + ` FROM doses WHERE TRUE`)
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PatientID != "" {
		sb.WriteString(" AND patient_id = " + arg(filter.PatientID))
	}
	if filter.MedicationID != "" {
		sb.WriteString(" AND medication_id = " + arg(filter.MedicationID))
	}
	if len(filter.Statuses) > 0 {
		ph := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			ph = append(ph, arg(string(st)))
		}
		sb.WriteString(" AND status IN (" + strings.Join(ph, ",") + ")")
	}
	if filter.From != nil {
		sb.WriteString(" AND scheduled_at >= " + arg(*filter.From))
	}
	if filter.To != nil {
		sb.WriteString(" AND scheduled_at <= " + arg(*filter.To))
	}
	sb.WriteString(" ORDER BY scheduled_at ASC")
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(filter.Limit))
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Dose, 0)
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DosesRepo) DeleteByMedication(ctx context.Context, medicationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM doses WHERE medication_id = $1`, medicationID)
	return err
}

func (r *DosesRepo) DeleteScheduledAfter(ctx context.Context, medicationID string, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM doses
		WHERE medication_id = $1 AND status = 'scheduled' AND scheduled_at > $2
	`, medicationID, t)
	return err
}

func scanDose(s scanner) (medications.Dose, error) {
	var d medications.Dose
	var status string
	var taken sql.NullTime
	if err := s.Scan(
		&d.ID,
		&d.MedicationID,
		&d.PatientID,
		&d.ScheduledAt,
		&taken,
		&status,
		&d.Amount,
		&d.Notes,
		&d.RecordedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return medications.Dose{}, err
	}
	d.Status = medications.DoseStatus(status)
	d.TakenAt = fromNullTime(taken)
	return d, nil
}
