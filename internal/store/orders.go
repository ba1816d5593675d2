package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/cvetlicarna/internal/model"
)

// orderIDLength is the number of UUID characters used for an order identity.
// Short ids are friendlier in chat; the primary key guards against the rare
// collision and the insert is retried with a fresh id.
const orderIDLength = 8

// CreateOrder persists a new order with status pending_payment. Each call is
// independent: concurrent orders from the same user all succeed.
func CreateOrder(ctx context.Context, db *sql.DB, userID, bouquetID, total int64, address, deliveryTime string) (*model.Order, error) {
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)

	var id string
	for attempt := 0; ; attempt++ {
		id = uuid.NewString()[:orderIDLength]
		_, err := db.ExecContext(ctx,
			`INSERT INTO orders (id, user_id, bouquet_id, address, delivery_time, status, total, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, userID, bouquetID, address, deliveryTime, model.OrderStatusPending, total, createdAt,
		)
		if isUniqueViolation(err) && attempt < 3 {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("creating order: %w", err)
		}
		break
	}

	return GetOrder(ctx, db, id)
}

// GetOrder returns an order by ID with the bouquet display fields joined.
func GetOrder(ctx context.Context, db *sql.DB, id string) (*model.Order, error) {
	o := &model.Order{}
	var createdAt string
	err := db.QueryRowContext(ctx,
		`SELECT o.id, o.user_id, o.bouquet_id, o.address, o.delivery_time, o.status, o.total, o.created_at,
		        b.title, b.size, b.number
		 FROM orders o
		 JOIN bouquets b ON b.id = o.bouquet_id
		 WHERE o.id = ?`, id,
	).Scan(&o.ID, &o.UserID, &o.BouquetID, &o.Address, &o.DeliveryTime, &o.Status, &o.Total, &createdAt,
		&o.BouquetTitle, &o.BouquetSize, &o.BouquetNumber)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	if o.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing order timestamp: %w", err)
	}
	return o, nil
}

// SetOrderStatus updates an order's status.
func SetOrderStatus(ctx context.Context, db *sql.DB, id, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ?`, status, id,
	)
	if err != nil {
		return fmt.Errorf("setting order status: %w", err)
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

// ListOrdersByUser returns a user's orders, newest first, with the bouquet
// display fields joined. At most limit orders are returned.
func ListOrdersByUser(ctx context.Context, db *sql.DB, userID int64, limit int) ([]model.Order, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT o.id, o.user_id, o.bouquet_id, o.address, o.delivery_time, o.status, o.total, o.created_at,
		        b.title, b.size, b.number
		 FROM orders o
		 JOIN bouquets b ON b.id = o.bouquet_id
		 WHERE o.user_id = ?
		 ORDER BY o.created_at DESC
		 LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var createdAt string
		if err := rows.Scan(&o.ID, &o.UserID, &o.BouquetID, &o.Address, &o.DeliveryTime, &o.Status, &o.Total, &createdAt,
			&o.BouquetTitle, &o.BouquetSize, &o.BouquetNumber); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		if o.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parsing order timestamp: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
