package model

import "time"

// Bouquet represents a catalog entry. The (size, number) pair is unique
// across the whole catalog, including out-of-stock entries.
type Bouquet struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Size      string    `json:"size"`
	Title     string    `json:"title"`
	Price     int64     `json:"price"`
	FileID    string    `json:"file_id"`
	InStock   bool      `json:"in_stock"`
	CreatedAt time.Time `json:"created_at"`
}

// Sizes.
const (
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeBig    = "big"
)

// Sizes lists all valid bouquet sizes in display order.
var Sizes = []string{SizeSmall, SizeMedium, SizeBig}

// ValidSize reports whether s is a known bouquet size.
func ValidSize(s string) bool {
	return s == SizeSmall || s == SizeMedium || s == SizeBig
}

// SizeName returns the display name for a size.
func SizeName(s string) string {
	switch s {
	case SizeSmall:
		return "Small"
	case SizeMedium:
		return "Medium"
	case SizeBig:
		return "Big"
	}
	return s
}
