package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'admin' CHECK (role IN ('admin')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS categories (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL CHECK (length(trim(name)) > 0),
    description TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_nocase
    ON categories(name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS items (
    id                 INTEGER PRIMARY KEY,
    category_id        INTEGER NOT NULL REFERENCES categories(id),
    name               TEXT NOT NULL,
    description        TEXT,
    price              REAL CHECK (price IS NULL OR price >= 0),
    link               TEXT,
    image              TEXT,
    owned              BOOLEAN NOT NULL DEFAULT 0,
    last_interest_date DATETIME,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_category ON items(category_id);
CREATE INDEX IF NOT EXISTS idx_items_interest ON items(last_interest_date DESC, id DESC);

CREATE TABLE IF NOT EXISTS bookings (
    item_id    INTEGER NOT NULL REFERENCES items(id),
    user       TEXT NOT NULL CHECK (length(user) > 0),
    created_at DATETIME NOT NULL,
    PRIMARY KEY (item_id, user)
);

CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
