package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"

	"StockBot/internal/models"
)

// Channel is one way of telling the operator an item was added to the cart.
type Channel interface {
	Name() string
	Notify(ctx context.Context, alert models.Alert) error
}

// Multi sends every alert to all of its channels.
type Multi struct {
	channels []Channel
}

// NewMulti builds a fan-out over channels, in order.
func NewMulti(channels ...Channel) *Multi {
	return &Multi{channels: channels}
}

// Channels returns the names of the configured channels.
func (m *Multi) Channels() []string {
	names := make([]string, 0, len(m.channels))
	for _, c := range m.channels {
		names = append(names, c.Name())
	}
	return names
}

// Notify tries every channel once. A failing channel does not stop the others;
// all failures are joined into the returned error.
func (m *Multi) Notify(ctx context.Context, alert models.Alert) error {
	if len(m.channels) == 0 {
		return errors.New("no notification channels configured")
	}

	var errs []error
	for _, c := range m.channels {
		if err := c.Notify(ctx, alert); err != nil {
			log.Printf("   - Channel '%s' failed: %v", c.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}
		log.Printf("   - Channel '%s' delivered the alert.", c.Name())
	}
	return errors.Join(errs...)
}
