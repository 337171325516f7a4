package browser

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"StockBot/internal/models"
	"StockBot/internal/scraper"
	"StockBot/pkg/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const (
	clickTimeout  = 10 * time.Second
	reloadTimeout = 60 * time.Second
)

type page struct {
	tab        *rod.Page
	url        string
	affordance config.AffordanceConfig
}

func (p *page) URL() string { return p.url }

// FindAffordance does not wait: a missing element means the item is still out of stock.
func (p *page) FindAffordance() (scraper.Affordance, error) {
	found, el, err := p.tab.HasR(p.affordance.Selector, textPattern(p.affordance.Text))
	if err != nil {
		return nil, fmt.Errorf("query affordance: %w", err)
	}
	if !found {
		return nil, nil
	}

	visible, err := el.Visible()
	if err != nil {
		return nil, fmt.Errorf("check affordance visibility: %w", err)
	}
	if !visible {
		return nil, nil
	}
	return &button{el: el}, nil
}

func (p *page) Details() models.ProductDetails {
	html, err := p.tab.HTML()
	if err != nil {
		log.Printf("Could not read page HTML for %s: %v", p.url, err)
		return models.ProductDetails{}
	}
	return parseDetails(html, p.affordance.PriceSelector)
}

func (p *page) Reload() error {
	tab := p.tab.Timeout(reloadTimeout)
	defer tab.CancelTimeout()

	if err := tab.Reload(); err != nil {
		return err
	}
	return tab.WaitLoad()
}

func (p *page) Close() error {
	return p.tab.Close()
}

type button struct {
	el *rod.Element
}

func (b *button) Activate() error {
	el := b.el.Timeout(clickTimeout)
	defer el.CancelTimeout()
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// textPattern builds the case-insensitive JS regex literal that matches text exactly as typed.
func textPattern(text string) string {
	quoted := regexp.QuoteMeta(strings.TrimSpace(text))
	return "/" + strings.ReplaceAll(quoted, "/", `\/`) + "/i"
}
