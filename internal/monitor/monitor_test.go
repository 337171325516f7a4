package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockBot/internal/models"
	"StockBot/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAffordance struct {
	page *fakePage
}

func (a *fakeAffordance) Activate() error {
	a.page.clicks++
	if len(a.page.clickErrs) > 0 {
		err := a.page.clickErrs[0]
		a.page.clickErrs = a.page.clickErrs[1:]
		return err
	}
	return nil
}

type fakePage struct {
	url string
	// appearOnCheck is the check number on which the affordance shows up. 0 means never.
	appearOnCheck int
	findErr       error
	clickErrs     []error
	details       models.ProductDetails

	checks  int
	clicks  int
	reloads int
	closed  int
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) FindAffordance() (scraper.Affordance, error) {
	p.checks++
	if p.findErr != nil {
		return nil, p.findErr
	}
	if p.appearOnCheck > 0 && p.checks >= p.appearOnCheck {
		return &fakeAffordance{page: p}, nil
	}
	return nil, nil
}

func (p *fakePage) Details() models.ProductDetails { return p.details }
func (p *fakePage) Reload() error                  { p.reloads++; return nil }
func (p *fakePage) Close() error                   { p.closed++; return nil }

type fakeOpener struct {
	pages    map[string]*fakePage
	statuses map[string]int
	errs     map[string]error
	opened   []string
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		pages:    map[string]*fakePage{},
		statuses: map[string]int{},
		errs:     map[string]error{},
	}
}

func (o *fakeOpener) add(url string, status int) *fakePage {
	p := &fakePage{url: url}
	o.pages[url] = p
	o.statuses[url] = status
	return p
}

func (o *fakeOpener) Open(ctx context.Context, url string) (scraper.Page, int, error) {
	o.opened = append(o.opened, url)
	p := o.pages[url]
	if err := o.errs[url]; err != nil {
		return p, 0, err
	}
	return p, o.statuses[url], nil
}

type fakeNotifier struct {
	alerts []models.Alert
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, alert models.Alert) error {
	n.alerts = append(n.alerts, alert)
	return n.err
}

// stopAfter returns a sleeper that records each pause and cancels ctx after n pauses.
func stopAfter(n int, cancel context.CancelFunc, slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		if len(*slept) >= n {
			cancel()
			return ctx.Err()
		}
		return nil
	}
}

type recorded struct {
	opened        map[string]bool
	statuses      map[string]int
	failures      []string
	added         []string
	notifyResults []error
}

type fakeRecorder struct {
	r recorded
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{r: recorded{opened: map[string]bool{}, statuses: map[string]int{}}}
}

func (f *fakeRecorder) ItemOpened(url string, status int, monitored bool, openErr error) error {
	f.r.opened[url] = monitored
	f.r.statuses[url] = status
	return nil
}

func (f *fakeRecorder) AttemptFailed(url string, err error) error {
	f.r.failures = append(f.r.failures, url)
	return nil
}

func (f *fakeRecorder) ItemAdded(url string, details models.ProductDetails, addedAt time.Time) error {
	f.r.added = append(f.r.added, url)
	return nil
}

func (f *fakeRecorder) NotificationResult(url string, err error) error {
	f.r.notifyResults = append(f.r.notifyResults, err)
	return errors.New("disk full")
}

func TestOpenSkipsBadStatusAndNavigationErrors(t *testing.T) {
	opener := newFakeOpener()
	good := opener.add("https://example.com/ok", 200)
	redirect := opener.add("https://example.com/moved", 302)
	missing := opener.add("https://example.com/404", 404)
	broken := opener.add("https://example.com/500", 503)
	failing := opener.add("https://example.com/err", 0)
	opener.errs["https://example.com/err"] = errors.New("net::ERR_NAME_NOT_RESOLVED")
	noResponse := opener.add("https://example.com/none", 0)

	rec := newFakeRecorder()
	m := New(opener, &fakeNotifier{}, 15*time.Second, WithRecorder(rec))

	n, err := m.Open(context.Background(), []string{
		"https://example.com/ok",
		"https://example.com/404",
		"https://example.com/ok",
		"https://example.com/500",
		"https://example.com/err",
		"https://example.com/moved",
		"https://example.com/none",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, m.ActivePages())
	assert.Equal(t, []string{"https://example.com/ok", "https://example.com/moved"}, m.Pending())

	// Duplicates are opened once.
	assert.Len(t, opener.opened, 6)

	for _, p := range []*fakePage{missing, broken, failing, noResponse} {
		assert.Equal(t, 1, p.closed, "tab for %s should be closed", p.url)
	}
	assert.Zero(t, good.closed)
	assert.Zero(t, redirect.closed)

	assert.True(t, rec.r.opened["https://example.com/ok"])
	assert.False(t, rec.r.opened["https://example.com/404"])
	assert.Equal(t, 404, rec.r.statuses["https://example.com/404"])
}

func TestRejectedURLIsNeverPolled(t *testing.T) {
	opener := newFakeOpener()
	missing := opener.add("https://example.com/404", 404)
	missing.appearOnCheck = 1
	ok := opener.add("https://example.com/ok", 200)
	ok.appearOnCheck = 1

	notifier := &fakeNotifier{}
	m := New(opener, notifier, 15*time.Second)
	_, err := m.Open(context.Background(), []string{"https://example.com/404", "https://example.com/ok"})
	require.NoError(t, err)

	require.NoError(t, m.Run(context.Background()))
	assert.Zero(t, missing.checks)
	assert.Zero(t, missing.reloads)
	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "https://example.com/ok", notifier.alerts[0].URL)
}

func TestRunTerminatesWhenEverythingIsAdded(t *testing.T) {
	opener := newFakeOpener()
	a := opener.add("https://example.com/a", 200)
	a.appearOnCheck = 1
	a.details = models.ProductDetails{Title: "Lego Set", Price: 129.9}
	b := opener.add("https://example.com/b", 200)
	b.appearOnCheck = 1

	notifier := &fakeNotifier{}
	var slept []time.Duration
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := New(opener, notifier, 15*time.Second,
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}),
		WithClock(func() time.Time { return fixed }),
	)

	_, err := m.Open(context.Background(), []string{"https://example.com/a", "https://example.com/b"})
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background()))

	assert.Empty(t, slept, "no pause when the first sweep adds everything")
	assert.Empty(t, m.Pending())
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, m.Added())
	assert.Zero(t, m.ActivePages())
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
	require.Len(t, notifier.alerts, 2)
	assert.Equal(t, models.Alert{URL: "https://example.com/a", Title: "Lego Set", Price: 129.9, AddedAt: fixed}, notifier.alerts[0])
}

func TestAffordanceNeverAppearsPollsAtInterval(t *testing.T) {
	opener := newFakeOpener()
	p := opener.add("https://example.com/a", 200)

	notifier := &fakeNotifier{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var slept []time.Duration
	m := New(opener, notifier, 15*time.Second, WithSleeper(stopAfter(5, cancel, &slept)))

	_, err := m.Open(ctx, []string{"https://example.com/a"})
	require.NoError(t, err)

	err = m.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 5, p.checks)
	assert.Equal(t, 5, p.reloads)
	assert.Zero(t, p.closed)
	assert.Empty(t, notifier.alerts)
	assert.Equal(t, []string{"https://example.com/a"}, m.Pending())
	for _, d := range slept {
		assert.Equal(t, 15*time.Second, d)
	}
}

func TestAffordanceAppearsOnSecondSweep(t *testing.T) {
	opener := newFakeOpener()
	a := opener.add("https://example.com/a", 200)
	a.appearOnCheck = 2
	b := opener.add("https://example.com/b", 200)

	notifier := &fakeNotifier{}
	rec := newFakeRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var slept []time.Duration
	m := New(opener, notifier, 15*time.Second, WithRecorder(rec), WithSleeper(stopAfter(3, cancel, &slept)))

	_, err := m.Open(ctx, []string{"https://example.com/a", "https://example.com/b"})
	require.NoError(t, err)
	require.ErrorIs(t, m.Run(ctx), context.Canceled)

	// a: found on sweep 2, then left alone.
	assert.Equal(t, 2, a.checks)
	assert.Equal(t, 1, a.clicks)
	assert.Equal(t, 1, a.reloads)
	assert.Equal(t, 1, a.closed)

	// b keeps being polled on every sweep.
	assert.Equal(t, 3, b.checks)
	assert.Equal(t, 3, b.reloads)
	assert.Zero(t, b.closed)

	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "https://example.com/a", notifier.alerts[0].URL)
	assert.Equal(t, []string{"https://example.com/a"}, m.Added())
	assert.Equal(t, []string{"https://example.com/b"}, m.Pending())
	assert.Equal(t, 1, m.ActivePages())

	// A failing history write does not disturb the loop.
	assert.Equal(t, []string{"https://example.com/a"}, rec.r.added)
	assert.Len(t, rec.r.notifyResults, 1)
}

func TestClickErrorLeavesItemPending(t *testing.T) {
	opener := newFakeOpener()
	p := opener.add("https://example.com/a", 200)
	p.appearOnCheck = 1
	p.clickErrs = []error{errors.New("element detached"), errors.New("still detached")}

	notifier := &fakeNotifier{}
	rec := newFakeRecorder()
	var slept []time.Duration
	m := New(opener, notifier, 15*time.Second, WithRecorder(rec), WithSleeper(func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))

	_, err := m.Open(context.Background(), []string{"https://example.com/a"})
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background()))

	assert.Equal(t, 3, p.clicks, "retried on each sweep until the click succeeds")
	assert.Len(t, slept, 2)
	assert.Len(t, notifier.alerts, 1)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/a"}, rec.r.failures)
}

func TestFindErrorLeavesItemPending(t *testing.T) {
	opener := newFakeOpener()
	p := opener.add("https://example.com/a", 200)
	p.appearOnCheck = 1
	p.findErr = errors.New("target crashed")

	notifier := &fakeNotifier{}
	m := New(opener, notifier, 15*time.Second)
	_, err := m.Open(context.Background(), []string{"https://example.com/a"})
	require.NoError(t, err)

	m.Sweep(context.Background())
	assert.Equal(t, []string{"https://example.com/a"}, m.Pending())
	assert.Zero(t, p.clicks)
	assert.Empty(t, notifier.alerts)
}

func TestNotificationFailureStillMarksAdded(t *testing.T) {
	opener := newFakeOpener()
	p := opener.add("https://example.com/a", 200)
	p.appearOnCheck = 1

	notifier := &fakeNotifier{err: errors.New("osascript: exit status 1")}
	rec := newFakeRecorder()
	m := New(opener, notifier, 15*time.Second, WithRecorder(rec))
	_, err := m.Open(context.Background(), []string{"https://example.com/a"})
	require.NoError(t, err)

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"https://example.com/a"}, m.Added())
	assert.Len(t, notifier.alerts, 1, "notification is not retried")
	assert.Equal(t, 1, p.closed)
	require.Len(t, rec.r.notifyResults, 1)
	assert.Error(t, rec.r.notifyResults[0])
}

func TestRefreshTimeOverride(t *testing.T) {
	opener := newFakeOpener()
	opener.add("https://example.com/a", 200)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var slept []time.Duration
	m := New(opener, &fakeNotifier{}, 5*time.Second, WithSleeper(stopAfter(2, cancel, &slept)))
	assert.Equal(t, 5*time.Second, m.Interval())

	_, err := m.Open(ctx, []string{"https://example.com/a"})
	require.NoError(t, err)
	require.ErrorIs(t, m.Run(ctx), context.Canceled)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, slept)
}

func TestIntervalIsNormalized(t *testing.T) {
	testCases := []struct {
		name     string
		interval time.Duration
		expected time.Duration
	}{
		{"Default", 15 * time.Second, 15 * time.Second},
		{"Sub Second Clamped", 200 * time.Millisecond, time.Second},
		{"Fraction Truncated", 2500 * time.Millisecond, 2 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := New(newFakeOpener(), &fakeNotifier{}, tc.interval)
			assert.Equal(t, tc.expected, m.Interval())
		})
	}
}

func TestRunWithNothingToMonitor(t *testing.T) {
	m := New(newFakeOpener(), &fakeNotifier{}, 15*time.Second, WithSleeper(func(context.Context, time.Duration) error {
		t.Fatal("must not sleep")
		return nil
	}))
	require.NoError(t, m.Run(context.Background()))
}

func TestCloseAll(t *testing.T) {
	opener := newFakeOpener()
	a := opener.add("https://example.com/a", 200)
	b := opener.add("https://example.com/b", 200)

	m := New(opener, &fakeNotifier{}, 15*time.Second)
	_, err := m.Open(context.Background(), []string{"https://example.com/a", "https://example.com/b"})
	require.NoError(t, err)

	m.CloseAll()
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
	assert.Zero(t, m.ActivePages())
}

func TestOpenStopsOnCancelledContext(t *testing.T) {
	opener := newFakeOpener()
	opener.add("https://example.com/a", 200)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := New(opener, &fakeNotifier{}, 15*time.Second)
	n, err := m.Open(ctx, []string{"https://example.com/a"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Empty(t, opener.opened)
}
