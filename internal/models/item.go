package models

import (
	"time"
)

// ItemStatus is the lifecycle state of one monitored URL.
type ItemStatus string

const (
	StatusPending ItemStatus = "pending"
	StatusAdded   ItemStatus = "added"
	// StatusSkipped marks a URL whose initial navigation failed or returned >= 400.
	StatusSkipped ItemStatus = "skipped"
)

// ProductDetails is the best-effort information read from a product page right before it is added.
type ProductDetails struct {
	Title string
	Price float64
	// PriceText is the raw price string as shown on the page, e.g. "RM 129.90".
	PriceText string
}

// Alert is handed to the notifier once a product has been added to the cart.
type Alert struct {
	URL     string    `json:"url"`
	Title   string    `json:"title,omitempty"`
	Price   float64   `json:"price,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// Message is the human readable notification body.
func (a Alert) Message() string {
	return "The product " + a.URL + " is now in stock and has been added to your cart."
}

// Run is one invocation of the monitor.
type Run struct {
	ID              string     `db:"id"`
	StartedAt       time.Time  `db:"started_at"`
	FinishedAt      *time.Time `db:"finished_at"`
	Sender          string     `db:"sender"`
	Receiver        string     `db:"receiver"`
	RefreshSeconds  int        `db:"refresh_seconds"`
	URLCount        int        `db:"url_count"`
	CompletedNormal bool       `db:"completed"`
}

// Item is the history record of one URL within a run.
type Item struct {
	ID         int64      `db:"id"`
	RunID      string     `db:"run_id"`
	URL        string     `db:"url"`
	Status     ItemStatus `db:"status"`
	HTTPStatus int        `db:"http_status"`
	Title      string     `db:"title"`
	Price      float64    `db:"price"`
	Attempts   int        `db:"attempts"`
	LastError  string     `db:"last_error"`
	UpdatedAt  time.Time  `db:"updated_at"`
	AddedAt    *time.Time `db:"added_at"`
}

// ItemFilters holds all possible query parameters for filtering history items.
type ItemFilters struct {
	RunID  string
	Status ItemStatus
	// For Pagination
	Limit  int
	Offset int
}

// Notification is one delivery attempt for an added item.
type Notification struct {
	ID        int64     `db:"id"`
	RunID     string    `db:"run_id"`
	URL       string    `db:"url"`
	Delivered bool      `db:"delivered"`
	Error     string    `db:"error"`
	SentAt    time.Time `db:"sent_at"`
}
