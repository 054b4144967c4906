package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

const jwtSecretKey = "jwt_secret"

// GetSetting returns the value stored under key, or nil if it is unset.
func GetSetting(ctx context.Context, db *sql.DB, key string) (*string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying setting %s: %w", key, err)
	}
	return &value, nil
}

// initSetting stores candidate under key unless a value is already there
// and returns whichever value won. Concurrent callers agree on one value.
func initSetting(ctx context.Context, db *sql.DB, key, candidate string) (string, error) {
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, candidate,
	); err != nil {
		return "", fmt.Errorf("storing setting %s: %w", key, err)
	}

	value, err := GetSetting(ctx, db, key)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", fmt.Errorf("setting %s vanished after insert", key)
	}
	return *value, nil
}

// GetJWTSecret returns the signing secret kept in the database, generating
// it on first use.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return initSetting(ctx, db, jwtSecretKey, hex.EncodeToString(buf))
}
