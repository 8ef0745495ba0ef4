// Package localcache es el cache SQLite del dispositivo/servidor de borde.
// Guarda el outbox de altas hechas sin conexión al store principal.
package localcache

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Open abre (o crea) la base SQLite y aplica las migraciones.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local cache: %w", err)
	}
	// SQLite no tolera escritores concurrentes
	db.SetMaxOpenConns(1)

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate crea el esquema del cache. Es idempotente.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS registration_outbox (
            id            TEXT PRIMARY KEY,
            owner_user_id TEXT NOT NULL,
            payload       BLOB NOT NULL,
            status        TEXT NOT NULL,
            attempts      INTEGER NOT NULL DEFAULT 0,
            last_error    TEXT NOT NULL DEFAULT '',
            patient_id    TEXT NOT NULL DEFAULT '',
            created_at    INTEGER NOT NULL,
            updated_at    INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS registration_outbox_pending_idx
            ON registration_outbox (status, created_at);`,
		`CREATE INDEX IF NOT EXISTS registration_outbox_owner_idx
            ON registration_outbox (owner_user_id, created_at);`,
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("local cache migration failed: %w", err)
		}
	}
	return nil
}
