package scraper

import (
	"context"

	"StockBot/internal/models"
)

// Opener opens product pages in new browser tabs.
// Any browser backend we add (rod today) must follow this contract
// so the monitor can be exercised with fakes.
type Opener interface {
	// Open creates a tab, navigates it to url and returns the HTTP status of the
	// main document response (0 when no response was observed).
	// The returned Page may be non-nil even when err is not nil; callers close it.
	Open(ctx context.Context, url string) (Page, int, error)
}

// Page is one open product tab.
type Page interface {
	URL() string

	// FindAffordance queries the current DOM for the purchase affordance without waiting.
	// It returns nil, nil when the affordance is not on the page.
	FindAffordance() (Affordance, error)

	// Details reads best-effort product information from the current DOM.
	Details() models.ProductDetails

	Reload() error
	Close() error
}

// Affordance is the on-page element whose presence signals the item is in stock.
type Affordance interface {
	Activate() error
}
