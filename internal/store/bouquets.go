package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/cvetlicarna/internal/model"
)

// InsertBouquet creates a new catalog entry. The (size, number) uniqueness
// check is enforced by the database index, so the check and the insert are a
// single atomic operation: of two racing inserts for the same key, exactly
// one receives ErrDuplicate.
func InsertBouquet(ctx context.Context, db *sql.DB, size string, number int, title string, price int64, fileID string) (*model.Bouquet, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO bouquets (number, size, title, price, file_id) VALUES (?, ?, ?, ?, ?)`,
		number, size, title, price, fileID,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("creating bouquet: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting bouquet id: %w", err)
	}

	return GetBouquet(ctx, db, id)
}

// GetBouquet returns a bouquet by ID.
func GetBouquet(ctx context.Context, db *sql.DB, id int64) (*model.Bouquet, error) {
	b := &model.Bouquet{}
	err := db.QueryRowContext(ctx,
		`SELECT id, number, size, title, price, file_id, in_stock, created_at
		 FROM bouquets WHERE id = ?`, id,
	).Scan(&b.ID, &b.Number, &b.Size, &b.Title, &b.Price, &b.FileID, &b.InStock, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting bouquet: %w", err)
	}
	return b, nil
}

// FindBouquet returns the bouquet with the given size and number, in or out
// of stock. Returns nil when no such entry exists.
func FindBouquet(ctx context.Context, db *sql.DB, size string, number int) (*model.Bouquet, error) {
	b := &model.Bouquet{}
	err := db.QueryRowContext(ctx,
		`SELECT id, number, size, title, price, file_id, in_stock, created_at
		 FROM bouquets WHERE size = ? AND number = ?`, size, number,
	).Scan(&b.ID, &b.Number, &b.Size, &b.Title, &b.Price, &b.FileID, &b.InStock, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding bouquet: %w", err)
	}
	return b, nil
}

// ListInStock returns all in-stock bouquets of the given size, ordered by
// number. An empty catalog is not an error.
func ListInStock(ctx context.Context, db *sql.DB, size string) ([]model.Bouquet, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, number, size, title, price, file_id, in_stock, created_at
		 FROM bouquets WHERE size = ? AND in_stock = 1 ORDER BY number`, size,
	)
	if err != nil {
		return nil, fmt.Errorf("listing in-stock bouquets: %w", err)
	}
	defer rows.Close()

	return scanBouquets(rows)
}

// ListBouquets returns the whole catalog, in and out of stock, for the admin
// listing. Ordered by size, then number.
func ListBouquets(ctx context.Context, db *sql.DB) ([]model.Bouquet, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, number, size, title, price, file_id, in_stock, created_at
		 FROM bouquets ORDER BY size, number`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing bouquets: %w", err)
	}
	defer rows.Close()

	return scanBouquets(rows)
}

// SetInStock sets a bouquet's availability flag.
func SetInStock(ctx context.Context, db *sql.DB, id int64, inStock bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE bouquets SET in_stock = ? WHERE id = ?`, inStock, id,
	)
	if err != nil {
		return fmt.Errorf("setting bouquet availability: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBouquets(rows *sql.Rows) ([]model.Bouquet, error) {
	var bouquets []model.Bouquet
	for rows.Next() {
		var b model.Bouquet
		if err := rows.Scan(&b.ID, &b.Number, &b.Size, &b.Title, &b.Price, &b.FileID, &b.InStock, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning bouquet: %w", err)
		}
		bouquets = append(bouquets, b)
	}
	return bouquets, rows.Err()
}
