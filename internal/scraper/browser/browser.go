// Package browser is the rod backed implementation of scraper.Opener.
package browser

import (
	"context"
	"fmt"
	"log"
	"time"

	"StockBot/internal/scraper"
	"StockBot/pkg/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	navigationTimeout = 60 * time.Second
	// statusGrace is how long Open waits for the document response event after the load event.
	statusGrace = 5 * time.Second
)

// Browser owns one Chromium process and every tab the monitor opens in it.
type Browser struct {
	rod        *rod.Browser
	launcher   *launcher.Launcher
	stealth    bool
	affordance config.AffordanceConfig

	// extra holds tabs opened for the session (home or login page). They stay open until Close.
	extra []*rod.Page
}

// Launch starts a local Chromium and connects to it.
func Launch(browserConf config.BrowserConfig, affordanceConf config.AffordanceConfig) (*Browser, error) {
	l := launcher.New().Headless(browserConf.Headless)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	rb := rod.New().ControlURL(u)
	if err := rb.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	log.Printf("Browser launched (headless=%t, stealth=%t).", browserConf.Headless, browserConf.Stealth)
	return &Browser{
		rod:        rb,
		launcher:   l,
		stealth:    browserConf.Stealth,
		affordance: affordanceConf,
	}, nil
}

// Close shuts the browser down, closing every tab.
func (b *Browser) Close() error {
	b.extra = nil
	err := b.rod.Close()
	b.launcher.Cleanup()
	return err
}

func (b *Browser) newTab() (*rod.Page, error) {
	if b.stealth {
		return stealth.Page(b.rod)
	}
	return b.rod.Page(proto.TargetCreateTarget{})
}

// Open implements scraper.Opener. The status is the one of the main document response;
// it is 0 when the browser never reported one.
func (b *Browser) Open(ctx context.Context, url string) (scraper.Page, int, error) {
	tab, err := b.newTab()
	if err != nil {
		return nil, 0, fmt.Errorf("could not open tab: %w", err)
	}
	p := &page{tab: tab, url: url, affordance: b.affordance}

	status, err := navigate(ctx, tab, url)
	return p, status, err
}

// navigate loads url in tab and captures the HTTP status of its document response.
func navigate(ctx context.Context, tab *rod.Page, url string) (int, error) {
	navCtx, cancel := context.WithTimeout(ctx, navigationTimeout)
	defer cancel()
	nav := tab.Context(navCtx)

	status := 0
	wait := nav.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.FrameID != tab.FrameID {
			return false
		}
		status = e.Response.Status
		return true
	})
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	err := nav.Navigate(url)
	if err == nil {
		err = nav.WaitLoad()
	}

	select {
	case <-done:
	case <-time.After(statusGrace):
	}
	cancel()
	<-done

	if err != nil {
		return status, fmt.Errorf("navigation failed: %w", err)
	}
	return status, nil
}

// Cookies returns every cookie of the browser.
func (b *Browser) Cookies() ([]*proto.NetworkCookie, error) {
	return b.rod.GetCookies()
}

// SetCookies restores cookies saved by an earlier run.
func (b *Browser) SetCookies(cookies []*proto.NetworkCookie) error {
	return b.rod.SetCookies(proto.CookiesToParams(cookies))
}

// Visit opens url in a tab that stays open for the rest of the run.
func (b *Browser) Visit(ctx context.Context, url string) error {
	tab, err := b.newTab()
	if err != nil {
		return fmt.Errorf("could not open tab: %w", err)
	}
	b.extra = append(b.extra, tab)
	if _, err := navigate(ctx, tab, url); err != nil {
		return fmt.Errorf("could not visit %s: %w", url, err)
	}
	return nil
}
