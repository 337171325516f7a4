package browser

import (
	"strings"

	"StockBot/internal/models"
	"StockBot/utils"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// parseDetails reads the product title and price from a rendered product page.
// Missing values are left empty.
func parseDetails(content, priceSelector string) models.ProductDetails {
	var details models.ProductDetails

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return details
	}
	details.Title = findTitle(root)

	if priceSelector == "" {
		return details
	}
	doc := goquery.NewDocumentFromNode(root)
	doc.Find(priceSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			text, _ = s.Attr("content")
		}
		if price, ok := utils.ParsePrice(text); ok {
			details.Price = price
			details.PriceText = strings.Join(strings.Fields(text), " ")
			return false
		}
		return true
	})
	return details
}

// findTitle prefers og:title and falls back to the document <title>.
func findTitle(root *html.Node) string {
	var ogTitle, docTitle string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if ogTitle == "" && attr(n, "property") == "og:title" {
					ogTitle = strings.TrimSpace(attr(n, "content"))
				}
			case "title":
				if docTitle == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					docTitle = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if ogTitle != "" {
		return ogTitle
	}
	return docTitle
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
