package audit

import (
	"context"
	"database/sql"
)

// Schema creates the audit table. Rows are only ever inserted.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id            UUID PRIMARY KEY,
	type          TEXT NOT NULL,
	actor_user_id TEXT NOT NULL DEFAULT '',
	actor_role    TEXT NOT NULL DEFAULT '',
	ip_address    TEXT NOT NULL DEFAULT '',
	call_id       TEXT NOT NULL DEFAULT '',
	number        TEXT NOT NULL DEFAULT '',
	outcome       TEXT NOT NULL DEFAULT '',
	message       TEXT NOT NULL DEFAULT '',
	metadata      JSONB,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_type_created_idx ON audit_events (type, created_at);
`

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	var meta any
	if e.Metadata != "" {
		meta = e.Metadata
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_events (id, type, actor_user_id, actor_role, ip_address, call_id, number, outcome, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, string(e.Type), e.ActorUserID, e.ActorRole, e.IPAddress, e.CallID, e.Number, e.Outcome, e.Message, meta, e.CreatedAt,
	)
	return err
}
