// Package monitor opens product pages and polls them until every item is in the cart.
package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"StockBot/internal/models"
	"StockBot/internal/scraper"
	"StockBot/utils"

	"github.com/robfig/cron/v3"
)

// Notifier sends the stock alert for one added item.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Recorder persists item outcomes. Errors are logged and never stop monitoring.
type Recorder interface {
	ItemOpened(url string, httpStatus int, monitored bool, openErr error) error
	AttemptFailed(url string, err error) error
	ItemAdded(url string, details models.ProductDetails, addedAt time.Time) error
	NotificationResult(url string, err error) error
}

type monitoredPage struct {
	page scraper.Page
	url  string
}

// Monitor drives the pending -> added state machine for every valid URL.
// It is not safe for concurrent use; a single control goroutine owns it.
type Monitor struct {
	opener   scraper.Opener
	notifier Notifier
	recorder Recorder
	schedule cron.ConstantDelaySchedule
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time

	pages   []*monitoredPage
	tracker *Tracker
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithRecorder stores outcomes in r.
func WithRecorder(r Recorder) Option {
	return func(m *Monitor) { m.recorder = r }
}

// WithSleeper replaces the pause between sweeps.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Monitor) { m.sleep = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(m *Monitor) { m.now = fn }
}

// New creates a monitor that pauses interval between sweeps.
// The interval is normalized to whole seconds with a one second minimum.
func New(opener scraper.Opener, notifier Notifier, interval time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		opener:   opener,
		notifier: notifier,
		schedule: cron.Every(interval),
		sleep:    sleepContext,
		now:      time.Now,
		tracker:  NewTracker(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Interval is the effective pause between sweeps.
func (m *Monitor) Interval() time.Duration {
	return m.schedule.Delay
}

// Open loads every URL in its own tab and keeps the ones that answered with a status below 400.
// Per-URL failures are logged and skipped. It returns the number of monitored pages.
func (m *Monitor) Open(ctx context.Context, urls []string) (int, error) {
	for _, url := range utils.UniqueStrings(urls) {
		if err := ctx.Err(); err != nil {
			return len(m.pages), err
		}

		page, status, err := m.opener.Open(ctx, url)
		if err != nil {
			log.Printf("Failed to load %s: %v", url, err)
			m.closePage(page, url)
			m.recordOpened(url, status, false, err)
			continue
		}
		if status <= 0 || status >= 400 {
			statusText := "N/A"
			if status > 0 {
				statusText = fmt.Sprint(status)
			}
			log.Printf("Skipping %s (invalid URL or page error, status %s).", url, statusText)
			m.closePage(page, url)
			m.recordOpened(url, status, false, nil)
			continue
		}

		m.pages = append(m.pages, &monitoredPage{page: page, url: url})
		m.tracker.Track(url)
		m.recordOpened(url, status, true, nil)
		log.Printf("Monitoring product page: %s", url)
	}
	return len(m.pages), nil
}

// Run sweeps until every monitored URL has been added, or ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	for sweep := 1; !m.tracker.Done(); sweep++ {
		m.Sweep(ctx)
		if m.tracker.Done() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		m.reloadPending()
		delay := m.schedule.Delay
		log.Printf("No stock yet for some items (%d pending after sweep %d). Checking again in %d seconds...",
			len(m.tracker.Pending()), sweep, int(delay.Seconds()))
		if err := m.sleep(ctx, delay); err != nil {
			return err
		}
	}

	log.Printf("All %d items were added to cart.", m.tracker.Len())
	return nil
}

// Sweep checks every pending page once.
func (m *Monitor) Sweep(ctx context.Context) {
	for _, mp := range append([]*monitoredPage(nil), m.pages...) {
		if ctx.Err() != nil {
			return
		}
		if m.tracker.IsAdded(mp.url) {
			continue
		}

		affordance, err := mp.page.FindAffordance()
		if err != nil {
			log.Printf("Could not check %s: %v", mp.url, err)
			continue
		}
		if affordance == nil {
			continue
		}

		details := mp.page.Details()
		if err := affordance.Activate(); err != nil {
			log.Printf("Error clicking the add-to-cart button for %s: %v", mp.url, err)
			if m.recorder != nil {
				if rerr := m.recorder.AttemptFailed(mp.url, err); rerr != nil {
					log.Printf("WARN: Could not record failed attempt for %s: %v", mp.url, rerr)
				}
			}
			continue
		}
		log.Printf("Item available! Added to cart: %s", mp.url)

		addedAt := m.now()
		m.markAdded(ctx, mp, details, addedAt)
	}
}

func (m *Monitor) markAdded(ctx context.Context, mp *monitoredPage, details models.ProductDetails, addedAt time.Time) {
	alert := models.Alert{URL: mp.url, Title: details.Title, Price: details.Price, AddedAt: addedAt}
	notifyErr := m.notifier.Notify(ctx, alert)
	if notifyErr != nil {
		log.Printf("Failed to send notification for %s: %v", mp.url, notifyErr)
	} else {
		log.Printf("Notification sent for %s.", mp.url)
	}

	m.tracker.MarkAdded(mp.url)
	if m.recorder != nil {
		if err := m.recorder.ItemAdded(mp.url, details, addedAt); err != nil {
			log.Printf("WARN: Could not record added item %s: %v", mp.url, err)
		}
		if err := m.recorder.NotificationResult(mp.url, notifyErr); err != nil {
			log.Printf("WARN: Could not record notification for %s: %v", mp.url, err)
		}
	}

	m.closePage(mp.page, mp.url)
	m.removePage(mp)
}

func (m *Monitor) reloadPending() {
	for _, mp := range m.pages {
		if m.tracker.IsAdded(mp.url) {
			continue
		}
		if err := mp.page.Reload(); err != nil {
			log.Printf("Failed to reload %s: %v", mp.url, err)
		}
	}
}

// CloseAll closes every tab still open.
func (m *Monitor) CloseAll() {
	for _, mp := range m.pages {
		m.closePage(mp.page, mp.url)
	}
	m.pages = nil
}

func (m *Monitor) removePage(target *monitoredPage) {
	for i, mp := range m.pages {
		if mp == target {
			m.pages = append(m.pages[:i], m.pages[i+1:]...)
			return
		}
	}
}

func (m *Monitor) closePage(page scraper.Page, url string) {
	if page == nil {
		return
	}
	if err := page.Close(); err != nil {
		log.Printf("WARN: Could not close tab for %s: %v", url, err)
	}
}

func (m *Monitor) recordOpened(url string, status int, monitored bool, openErr error) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.ItemOpened(url, status, monitored, openErr); err != nil {
		log.Printf("WARN: Could not record %s: %v", url, err)
	}
}

// Pending returns the URLs not yet added.
func (m *Monitor) Pending() []string { return m.tracker.Pending() }

// Added returns the URLs already added to the cart.
func (m *Monitor) Added() []string { return m.tracker.Added() }

// ActivePages is the number of tabs still being polled.
func (m *Monitor) ActivePages() int { return len(m.pages) }

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
