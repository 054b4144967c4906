package model

import "time"

// Category groups items. Names are unique regardless of case.
type Category struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Item is a single gift idea belonging to exactly one category.
//
// Image holds either a local path under /images/uploads/ (owned by this
// server) or an externally hosted URL that is never touched on delete.
type Item struct {
	ID               int64      `json:"id"`
	CategoryID       int64      `json:"category_id"`
	Name             string     `json:"name"`
	Description      *string    `json:"description"`
	Price            *float64   `json:"price"`
	Link             *string    `json:"link"`
	Image            *string    `json:"image"`
	Owned            bool       `json:"owned"`
	LastInterestDate *time.Time `json:"last_interest_date"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	Category *Category `json:"category,omitempty"`
	// Bookings is null unless aggregation was requested, then [] or more.
	Bookings []Booking `json:"bookings"`
}

// Booking records that a user is currently interested in an item.
// At most one booking exists per (item, user) pair.
type Booking struct {
	ItemID int64     `json:"item_id"`
	User   string    `json:"user"`
	Date   time.Time `json:"date"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Toggle actions.
const (
	ToggleAdded   = "added"
	ToggleRemoved = "removed"
)

// ToggleResult is the outcome of flipping a user's interest in an item.
type ToggleResult struct {
	Action  string   `json:"action"`
	Booking *Booking `json:"booking"`
}
