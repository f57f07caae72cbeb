package catalog

import "time"

// Product: prices are integer cents end to end, never floats.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int       `json:"price_cents"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url,omitempty"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Update is a partial update; nil fields stay untouched.
type Update struct {
	Name        *string
	Description *string
	PriceCents  *int
	Category    *string
	ImageURL    *string
	Stock       *int
}
