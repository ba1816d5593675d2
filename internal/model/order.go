package model

import "time"

// Order represents a placed order. The total is captured from the bouquet
// price at creation time, so later catalog edits never change it.
type Order struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	BouquetID    int64     `json:"bouquet_id"`
	Address      string    `json:"address"`
	DeliveryTime string    `json:"delivery_time"`
	Status       string    `json:"status"`
	Total        int64     `json:"total"`
	CreatedAt    time.Time `json:"created_at"`

	// Joined fields (not always populated).
	BouquetTitle  string `json:"bouquet_title,omitempty"`
	BouquetSize   string `json:"bouquet_size,omitempty"`
	BouquetNumber int    `json:"bouquet_number,omitempty"`
}

// Order statuses. Payment confirmation is the only status transition.
const (
	OrderStatusPending = "pending_payment"
	OrderStatusPaid    = "paid"
)
