package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS bouquets (
    id         INTEGER PRIMARY KEY,
    number     INTEGER NOT NULL,
    size       TEXT NOT NULL CHECK (size IN ('small', 'medium', 'big')),
    title      TEXT NOT NULL,
    price      INTEGER NOT NULL CHECK (price >= 0),
    file_id    TEXT NOT NULL,
    in_stock   INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_bouquets_size_number
    ON bouquets(size, number);

CREATE TABLE IF NOT EXISTS orders (
    id            TEXT PRIMARY KEY,
    user_id       INTEGER NOT NULL,
    bouquet_id    INTEGER NOT NULL REFERENCES bouquets(id),
    address       TEXT NOT NULL,
    delivery_time TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'pending_payment',
    total         INTEGER NOT NULL CHECK (total >= 0),
    created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_user
    ON orders(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS photos (
    token      TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    mime       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
// The statements are idempotent, so it doubles as the migration entry point.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
