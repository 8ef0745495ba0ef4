package postgres

import (
	"context"
	"database/sql"
	"strings"

	"patient-care/internal/domain/users"
)

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

const userColumns = `id, email, display_name, password_hash, mfa_secret, mfa_enabled, created_at, updated_at`

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		u.ID,
		strings.ToLower(u.Email),
		u.DisplayName,
		u.PasswordHash,
		u.MFASecret,
		u.MFAEnabled,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return users.ErrEmailTaken
	}
	return err
}

func (r *UsersRepo) Update(ctx context.Context, u users.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, display_name = $3, password_hash = $4,
		    mfa_secret = $5, mfa_enabled = $6, updated_at = $7
		WHERE id = $1
	`,
		u.ID,
		strings.ToLower(u.Email),
		u.DisplayName,
		u.PasswordHash,
		u.MFASecret,
		u.MFAEnabled,
		u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return users.ErrEmailTaken
	}
	return expectOne(res, err, users.ErrNotFound)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, strings.TrimSpace(id))
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *UsersRepo) getOne(ctx context.Context, query, arg string) (users.User, error) {
	if arg == "" {
		return users.User{}, users.ErrNotFound
	}
	var u users.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.PasswordHash,
		&u.MFASecret,
		&u.MFAEnabled,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return users.User{}, notFound(err, users.ErrNotFound)
	}
	return u, nil
}
