package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SavePhoto stores processed photo bytes under an opaque token.
func SavePhoto(ctx context.Context, db *sql.DB, token string, data []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO photos (token, data, mime) VALUES (?, ?, ?)`,
		token, data, mime,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("saving photo: %w", err)
	}
	return nil
}

// GetPhoto returns a photo's bytes and MIME type, or nil when absent.
func GetPhoto(ctx context.Context, db *sql.DB, token string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM photos WHERE token = ?`, token,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting photo: %w", err)
	}
	return data, mime, nil
}
