package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// NOTE: PostgresRepo assumes the call_records table from Schema.
// Durations are stored as whole seconds.

const Schema = `
CREATE TABLE IF NOT EXISTS call_records (
  call_id                   TEXT PRIMARY KEY,
  direction                 TEXT NOT NULL,
  status                    TEXT NOT NULL,
  customer_number           TEXT NOT NULL DEFAULT '',
  customer_id               TEXT NOT NULL DEFAULT '',
  customer_type             TEXT NOT NULL DEFAULT '',
  assigned_user_id          TEXT NOT NULL DEFAULT '',
  gateway                   TEXT NOT NULL DEFAULT '',
  start_time                TIMESTAMPTZ NOT NULL,
  end_time                  TIMESTAMPTZ,
  total_duration_seconds    BIGINT NOT NULL DEFAULT 0,
  billable_duration_seconds BIGINT NOT NULL DEFAULT 0,
  recording_url             TEXT NOT NULL DEFAULT '',
  created_at                TIMESTAMPTZ NOT NULL,
  updated_at                TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS call_records_start_time_idx ON call_records (start_time);
`

const recordColumns = `call_id, direction, status, customer_number, customer_id, customer_type,
       assigned_user_id, gateway, start_time, end_time, total_duration_seconds,
       billable_duration_seconds, recording_url, created_at, updated_at`

type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

func (r *PostgresRepo) Create(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO call_records (
  call_id, direction, status, customer_number, customer_id, customer_type,
  assigned_user_id, gateway, start_time, end_time, total_duration_seconds,
  billable_duration_seconds, recording_url, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)
ON CONFLICT (call_id) DO NOTHING
`
	now := r.clock().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	res, err := r.db.ExecContext(ctx, q,
		rec.CallID,
		string(rec.Direction),
		string(rec.Status),
		rec.CustomerNumber,
		rec.CustomerID,
		rec.CustomerType,
		rec.AssignedUserID,
		rec.Gateway,
		rec.StartTime,
		nullableTime(rec.EndTime),
		seconds(rec.TotalDuration),
		seconds(rec.BillableDuration),
		rec.RecordingURL,
		rec.CreatedAt,
		now,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *PostgresRepo) FindByCallID(ctx context.Context, callID string) (Record, error) {
	q := `SELECT ` + recordColumns + ` FROM call_records WHERE call_id = $1`
	return scanRecord(r.db.QueryRowContext(ctx, q, callID))
}

// Update applies u in a single statement; the row lock taken by UPDATE
// serializes concurrent writers on the same call id.
func (r *PostgresRepo) Update(ctx context.Context, callID string, u Update) (Record, error) {
	if u.IsEmpty() {
		return r.FindByCallID(ctx, callID)
	}
	q := `
UPDATE call_records SET
  status                    = COALESCE($2, status),
  assigned_user_id          = COALESCE($3, assigned_user_id),
  start_time                = COALESCE($4, start_time),
  end_time                  = COALESCE($5, end_time),
  total_duration_seconds    = COALESCE($6, total_duration_seconds),
  billable_duration_seconds = COALESCE($7, billable_duration_seconds),
  recording_url             = COALESCE($8, recording_url),
  updated_at                = $9
WHERE call_id = $1
RETURNING ` + recordColumns

	var status *string
	if u.Status != nil {
		status = ptr(string(*u.Status))
	}
	return scanRecord(r.db.QueryRowContext(ctx, q,
		callID,
		nullable(status),
		nullable(u.AssignedUserID),
		nullableTime(u.StartTime),
		nullableTime(u.EndTime),
		nullableSeconds(u.TotalDuration),
		nullableSeconds(u.BillableDuration),
		nullable(u.RecordingURL),
		r.clock().UTC(),
	))
}

func (r *PostgresRepo) List(ctx context.Context, from, to time.Time) ([]Record, error) {
	q := `SELECT ` + recordColumns + `
FROM call_records
WHERE start_time >= $1 AND start_time < $2
ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec       Record
		direction string
		status    string
		endTime   sql.NullTime
		total     int64
		billable  int64
	)
	if err := row.Scan(
		&rec.CallID,
		&direction,
		&status,
		&rec.CustomerNumber,
		&rec.CustomerID,
		&rec.CustomerType,
		&rec.AssignedUserID,
		&rec.Gateway,
		&rec.StartTime,
		&endTime,
		&total,
		&billable,
		&rec.RecordingURL,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.Direction = Direction(direction)
	rec.Status = Status(status)
	if endTime.Valid {
		t := endTime.Time
		rec.EndTime = &t
	}
	rec.TotalDuration = time.Duration(total) * time.Second
	rec.BillableDuration = time.Duration(billable) * time.Second
	return rec, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableSeconds(d *time.Duration) any {
	if d == nil {
		return nil
	}
	return seconds(*d)
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
