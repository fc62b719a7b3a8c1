// Package parse extracts product snapshots from page bodies. Parsers are
// best-effort: unmatched fields stay absent, parsing never fails.
package parse

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aromano/pricewatch/internal/tracker"
)

// SiteParser routes a page body to a host-specific extractor.
type SiteParser struct{}

// New builds a SiteParser.
func New() *SiteParser {
	return &SiteParser{}
}

// Parse implements tracker.Parser.
func (p *SiteParser) Parse(body string, sourceURL string) tracker.ProductSnapshot {
	snap := tracker.ProductSnapshot{SourceURL: sourceURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return snap
	}

	host := hostOf(sourceURL)
	switch {
	case strings.Contains(host, "books.toscrape.com"):
		parseBooksToScrape(doc, &snap)
	case strings.Contains(host, "amazon."):
		parseAmazon(doc, &snap)
	case strings.Contains(host, "ebay."):
		parseEbay(doc, &snap)
	}

	// Generic fallback: at least a page title.
	if snap.Title == nil {
		snap.Title = tracker.StringPtr(selText(doc, "title"))
	}
	return snap
}

func parseBooksToScrape(doc *goquery.Document, snap *tracker.ProductSnapshot) {
	snap.Title = tracker.StringPtr(selText(doc, ".product_main h1"))
	snap.Price = tracker.StringPtr(selText(doc, ".product_main .price_color"))
	snap.Availability = tracker.StringPtr(selText(doc, ".product_main .availability"))
}

func parseAmazon(doc *goquery.Document, snap *tracker.ProductSnapshot) {
	snap.Title = tracker.StringPtr(firstText(doc,
		"#productTitle",
		"span#title",
	))
	snap.Price = tracker.StringPtr(firstText(doc,
		"#corePrice_desktop .a-offscreen",
		"#corePrice_feature_div .a-offscreen",
		"#apex_desktop .a-offscreen",
		".a-price .a-offscreen",
	))
	snap.Availability = tracker.StringPtr(firstText(doc,
		"#availability .a-color-success",
		"#availability .a-color-state",
		"#availability span",
	))

	if asin, ok := doc.Find("input#ASIN").Attr("value"); ok && asin != "" {
		snap.ASIN = &asin
	} else if asin, ok := doc.Find("body").Attr("data-asin"); ok && asin != "" {
		snap.ASIN = &asin
	}

	snap.SKU = tracker.StringPtr(amazonModelNumber(doc))
}

// amazonModelNumber scans the product detail table for a model/SKU row.
func amazonModelNumber(doc *goquery.Document) string {
	labels := []string{"Item model number", "Model Number", "SKU"}
	sku := ""
	doc.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		text := strings.TrimSpace(th.Text())
		for _, label := range labels {
			if strings.Contains(text, label) {
				sku = strings.TrimSpace(th.NextFiltered("td").Text())
				if sku == "" {
					sku = strings.TrimSpace(th.Parent().Find("td").First().Text())
				}
				return sku == ""
			}
		}
		return true
	})
	return sku
}

func parseEbay(doc *goquery.Document, snap *tracker.ProductSnapshot) {
	title := selText(doc, "#itemTitle")
	if title != "" {
		title = strings.TrimSpace(strings.Replace(title, "Details about", "", 1))
	}
	if title == "" {
		title = firstText(doc,
			"h1.x-item-title__mainTitle span.ux-textspans",
			"h1[itemprop='name']",
			"h1.ux-textspans",
		)
	}
	snap.Title = tracker.StringPtr(title)

	price := ""
	for _, sel := range []string{"#mm-saleDscPrc", "#prcIsum", "span[itemprop='price']"} {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if content, ok := el.Attr("content"); ok && content != "" {
			price = content
		} else {
			price = strings.TrimSpace(el.Text())
		}
		if price != "" {
			break
		}
	}
	if price == "" {
		price = selText(doc, ".x-price-primary .ux-textspans")
	}
	snap.Price = tracker.StringPtr(price)

	snap.Availability = tracker.StringPtr(firstText(doc,
		"#qtySubTxt",
		".d-quantity__availability",
		".x-quantity__availability .ux-textspans",
		"[data-testid='x-buybox-availability'] .ux-textspans",
	))
}

func selText(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := selText(doc, sel); text != "" {
			return text
		}
	}
	return ""
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
