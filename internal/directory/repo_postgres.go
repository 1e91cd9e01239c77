package directory

import (
	"context"
	"database/sql"
	"errors"
)

// NOTE: PostgresDirectory assumes the following tables exist (see Schema):
// - users (id, name, role, phone_extension, status)
// - customers (id, type, phone)
//
// Only active users take part in lookups.

const Schema = `
CREATE TABLE IF NOT EXISTS users (
  id              TEXT PRIMARY KEY,
  name            TEXT NOT NULL DEFAULT '',
  role            TEXT NOT NULL DEFAULT '',
  phone_extension TEXT NOT NULL DEFAULT '',
  status          TEXT NOT NULL DEFAULT 'active'
);
CREATE INDEX IF NOT EXISTS users_phone_extension_idx ON users (phone_extension);

CREATE TABLE IF NOT EXISTS customers (
  id    TEXT PRIMARY KEY,
  type  TEXT NOT NULL,
  phone TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS customers_phone_idx ON customers (phone);
`

type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) UserByID(ctx context.Context, id string) (User, error) {
	const q = `
SELECT id, name, role, phone_extension
FROM users
WHERE id = $1 AND status = 'active'
`
	return scanUser(d.db.QueryRowContext(ctx, q, id))
}

func (d *PostgresDirectory) UserByNumber(ctx context.Context, number string) (User, error) {
	number = normalizeNumber(number)
	if number == "" {
		return User{}, ErrNotFound
	}
	const q = `
SELECT id, name, role, phone_extension
FROM users
WHERE phone_extension = $1 AND status = 'active'
ORDER BY id
LIMIT 1
`
	return scanUser(d.db.QueryRowContext(ctx, q, number))
}

func (d *PostgresDirectory) UserNumbers(ctx context.Context) ([]RoutingCandidate, error) {
	const q = `
SELECT id, phone_extension
FROM users
WHERE phone_extension <> '' AND status = 'active'
ORDER BY id
`
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RoutingCandidate, 0)
	for rows.Next() {
		var c RoutingCandidate
		if err := rows.Scan(&c.UserID, &c.Number); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *PostgresDirectory) CustomerByNumber(ctx context.Context, number string) (Customer, error) {
	number = normalizeNumber(number)
	if number == "" {
		return Customer{}, ErrNotFound
	}
	const q = `
SELECT id, type, phone
FROM customers
WHERE phone = $1
ORDER BY id
LIMIT 1
`
	var c Customer
	if err := d.db.QueryRowContext(ctx, q, number).Scan(&c.ID, &c.Type, &c.Number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Role, &u.Extension); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
