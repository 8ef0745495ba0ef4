package postgres

import (
	"context"
	"database/sql"
	"strings"

	"patient-care/internal/domain/patients"
)

type PatientsRepo struct {
	db *sql.DB
}

func NewPatientsRepo(db *sql.DB) *PatientsRepo {
	return &PatientsRepo{db: db}
}

const patientColumns = `
	id, owner_user_id,
	first_name, last_name, birth_date, sex,
	phone, address, emergency_contact, allergies, notes,
	created_at, updated_at`

func (r *PatientsRepo) Create(ctx context.Context, p patients.Patient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		p.ID,
		p.OwnerUserID,
		p.FirstName,
		p.LastName,
		toNullTime(p.BirthDate),
		string(p.Sex),
		p.Phone,
		p.Address,
		p.EmergencyContact,
		p.Allergies,
		p.Notes,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PatientsRepo) Update(ctx context.Context, p patients.Patient) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE patients
		SET
			first_name = $2,
			last_name = $3,
			birth_date = $4,
			sex = $5,
			phone = $6,
			address = $7,
			emergency_contact = $8,
			allergies = $9,
			notes = $10,
			updated_at = $11
		WHERE id = $1
	`,
		p.ID,
		p.FirstName,
		p.LastName,
		toNullTime(p.BirthDate),
		string(p.Sex),
		p.Phone,
		p.Address,
		p.EmergencyContact,
		p.Allergies,
		p.Notes,
		p.UpdatedAt,
	)
	return expectOne(res, err, patients.ErrNotFound)
}

func (r *PatientsRepo) GetByID(ctx context.Context, id string) (patients.Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return patients.Patient{}, patients.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	p, err := scanPatient(row)
	if err != nil {
		return patients.Patient{}, notFound(err, patients.ErrNotFound)
	}
	return p, nil
}

func (r *PatientsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]patients.Patient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE owner_user_id = $1
		ORDER BY created_at ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]patients.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete borra en cascada grants, care plans, medicaciones y logs (FK).
func (r *PatientsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return expectOne(res, err, patients.ErrNotFound)
}

// OwnerOf resuelve el dueño con una sola columna (lo usa el Authorizer).
func (r *PatientsRepo) OwnerOf(ctx context.Context, patientID string) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT owner_user_id FROM patients WHERE id = $1`, patientID).Scan(&owner)
	if err != nil {
		return "", notFound(err, patients.ErrNotFound)
	}
	return owner, nil
}

func scanPatient(s scanner) (patients.Patient, error) {
	var p patients.Patient
	var sex string
	var birth sql.NullTime
	if err := s.Scan(
		&p.ID,
		&p.OwnerUserID,
		&p.FirstName,
		&p.LastName,
		&birth,
		&sex,
		&p.Phone,
		&p.Address,
		&p.EmergencyContact,
		&p.Allergies,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return patients.Patient{}, err
	}
	p.Sex = patients.Sex(sex)
	p.BirthDate = fromNullTime(birth)
	return p, nil
}
