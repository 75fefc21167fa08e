package model

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// ErrInvalid marks input that fails validation.
var ErrInvalid = errors.New("invalid input")

// LoadingList is a dated delivery to a site. Allocations are ordered by
// insertion.
type LoadingList struct {
	ID         int64     `json:"id"`
	SiteName   string    `json:"site_name"`
	Date       string    `json:"date"`
	ReturnDate string    `json:"return_date"`
	Notes      string    `json:"notes"`
	TeamID     *int64    `json:"team_id"`
	UserID     *int64    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`

	// Joined fields (not always populated).
	TeamName    string       `json:"team_name,omitempty"`
	Allocations []Allocation `json:"loading_list_items,omitempty"`
}

// Allocation binds a quantity of one item to one loading list. Loaded marks
// that the quantity has physically left the warehouse.
type Allocation struct {
	ID            int64     `json:"id"`
	LoadingListID int64     `json:"loading_list_id"`
	ItemID        int64     `json:"item_id"`
	Quantity      int       `json:"quantity"`
	Loaded        bool      `json:"loaded"`
	CreatedAt     time.Time `json:"created_at"`

	// Joined field (not always populated).
	Item *Item `json:"item,omitempty"`
}

// Team is a crew that loading lists are assigned to.
type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalid, s)
	}
	return d, nil
}

// ValidateDates checks both dates and that the return is not before delivery.
func ValidateDates(date, returnDate string) error {
	d, err := ParseDate(date)
	if err != nil {
		return err
	}
	rd, err := ParseDate(returnDate)
	if err != nil {
		return err
	}
	if rd.Before(d) {
		return fmt.Errorf("%w: return date %s is before delivery date %s", ErrInvalid, returnDate, date)
	}
	return nil
}
