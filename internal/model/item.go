package model

import "time"

// Item is a distinct kind of equipment in the shared pool. Quantity is the
// amount currently sitting in the warehouse, not committed to any list.
type Item struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Category  string     `json:"category"`
	Quantity  int        `json:"quantity"`
	ImageMime string     `json:"image_mime,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Availability is the forward-looking view of one item for a given day.
// Available may exceed physical stock: it is an estimate, not a reservation.
type Availability struct {
	ItemID         int64  `json:"item_id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Pool           int    `json:"pool"`
	ReturningToday int    `json:"returning_today"`
	Available      int    `json:"available"`
	Date           string `json:"date"`
}
