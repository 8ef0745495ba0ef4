package postgres

import (
	"context"
	"database/sql"
	"strings"

	"patient-care/internal/domain/careplans"
)

type CarePlansRepo struct {
	db *sql.DB
}

func NewCarePlansRepo(db *sql.DB) *CarePlansRepo {
	return &CarePlansRepo{db: db}
}

const carePlanColumns = `
	id, patient_id, diagnosis, treatment,
	start_date, end_date, notes, status,
	created_by, created_at, updated_at`

func (r *CarePlansRepo) Create(ctx context.Context, cp careplans.CarePlan) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO care_plans (`+carePlanColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		cp.ID,
		cp.PatientID,
		cp.Diagnosis,
		cp.Treatment,
		cp.StartDate,
		toNullTime(cp.EndDate),
		cp.Notes,
		string(cp.Status),
		cp.CreatedBy,
		cp.CreatedAt,
		cp.UpdatedAt,
	)
	return err
}

func (r *CarePlansRepo) Update(ctx context.Context, cp careplans.CarePlan) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE care_plans
		SET
			diagnosis = $2,
			treatment = $3,
			start_date = $4,
			end_date = $5,
			notes = $6,
			status = $7,
			updated_at = $8
		WHERE id = $1
	`,
		cp.ID,
		cp.Diagnosis,
		cp.Treatment,
		cp.StartDate,
		toNullTime(cp.EndDate),
		cp.Notes,
		string(cp.Status),
		cp.UpdatedAt,
	)
	return expectOne(res, err, careplans.ErrNotFound)
}

func (r *CarePlansRepo) GetByID(ctx context.Context, id string) (careplans.CarePlan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return careplans.CarePlan{}, careplans.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+carePlanColumns+` FROM care_plans WHERE id = $1`, id)
	cp, err := scanCarePlan(row)
	if err != nil {
		return careplans.CarePlan{}, notFound(err, careplans.ErrNotFound)
	}
	return cp, nil
}

func (r *CarePlansRepo) ListByPatient(ctx context.Context, patientID string) ([]careplans.CarePlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+carePlanColumns+`
		FROM care_plans
		WHERE patient_id = $1
		ORDER BY start_date DESC, created_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]careplans.CarePlan, 0)
	for rows.Next() {
		cp, err := scanCarePlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// Delete deja medications.care_plan_id en NULL (ON DELETE SET NULL).
func (r *CarePlansRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM care_plans WHERE id = $1`, id)
	return expectOne(res, err, careplans.ErrNotFound)
}

func scanCarePlan(s scanner) (careplans.CarePlan, error) {
	var cp careplans.CarePlan
	var status string
	var end sql.NullTime
	if err := s.Scan(
		&cp.ID,
		&cp.PatientID,
		&cp.Diagnosis,
		&cp.Treatment,
		&cp.StartDate,
		&end,
		&cp.Notes,
		&status,
		&cp.CreatedBy,
		&cp.CreatedAt,
		&cp.UpdatedAt,
	); err != nil {
		return careplans.CarePlan{}, err
	}
	cp.Status = careplans.Status(status)
	cp.EndDate = fromNullTime(end)
	return cp, nil
}
