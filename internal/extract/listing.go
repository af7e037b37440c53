package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	// productPathPattern identifies links to product detail pages.
	productPathPattern = regexp.MustCompile(`(?i)/products/[^/?#"']+`)

	// pagePattern identifies links to further listing pages.
	pagePattern = regexp.MustCompile(`(?i)([?&]page=\d+)|(/page/\d+)`)
)

// cardWindowRadius is the number of bytes around an anchor searched for
// prices when the anchor is not inside an <article>.
const cardWindowRadius = 220

// ListingProduct is a product reference found on a listing page.
type ListingProduct struct {
	// Name is the display name of the product.
	Name string `json:"name"`

	// URL is the absolute product URL. It identifies the product.
	URL string `json:"url"`

	// PriceMin and PriceMax are nil when no price was found near the link.
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`
}

// anchor is an <a> element with its byte span in the page.
type anchor struct {
	href  string
	attrs map[string]string
	text  []string
	start int
	end   int
}

// name returns the best human readable label of the anchor.
func (a *anchor) name() string {
	for _, key := range []string{"data-product-title", "aria-label", "title"} {
		if v := collapseSpace(a.attrs[key]); v != "" {
			return v
		}
	}
	return collapseSpace(strings.Join(a.text, " "))
}

// anchors returns every <a href> of a page in document order.
func anchors(page string) []*anchor {
	var (
		found   []*anchor
		current *anchor
	)

	closeCurrent := func(end int) {
		if current != nil {
			current.end = end
			found = append(found, current)
			current = nil
		}
	}

	tokenize(page, func(t token) bool {
		switch t.Type {
		case html.StartTagToken, html.SelfClosingTagToken:
			if t.Data != "a" {
				return true
			}
			// Anchors cannot nest; a new one closes the previous.
			closeCurrent(t.start)

			attrs := make(map[string]string, len(t.Attr))
			for _, a := range t.Attr {
				if _, dup := attrs[a.Key]; !dup {
					attrs[a.Key] = a.Val
				}
			}
			href, ok := attrs["href"]
			if !ok {
				return true
			}
			current = &anchor{href: href, attrs: attrs, start: t.start, end: t.end}
			if t.Type == html.SelfClosingTagToken {
				closeCurrent(t.end)
			}
		case html.EndTagToken:
			if t.Data == "a" {
				closeCurrent(t.end)
			}
		case html.TextToken:
			if current != nil {
				current.text = append(current.text, t.Data)
			}
		}
		return true
	})
	closeCurrent(len(page))

	return found
}

// ExtractProducts returns the product links of a listing page in document
// order. Links are resolved against baseURL and deduplicated by URL. Links
// without any name signal are skipped.
func ExtractProducts(page, baseURL string) []ListingProduct {
	res := newResolver(baseURL)
	lower := asciiLower(page)

	products := []ListingProduct{}
	seen := make(map[string]struct{})

	for _, a := range anchors(page) {
		if !productPathPattern.MatchString(a.href) {
			continue
		}

		productURL, ok := res.resolve(a.href)
		if !ok {
			continue
		}
		if _, dup := seen[productURL]; dup {
			continue
		}

		name := a.name()
		if name == "" {
			continue
		}

		lowest, highest := priceRange(cardWindow(page, lower, a.start, a.end))
		products = append(products, ListingProduct{
			Name:     name,
			URL:      productURL,
			PriceMin: lowest,
			PriceMax: highest,
		})
		seen[productURL] = struct{}{}
	}

	return products
}

// ExtractPaginationLinks returns the absolute URLs of further listing pages
// linked from page, deduplicated in document order.
func ExtractPaginationLinks(page, baseURL string) []string {
	res := newResolver(baseURL)
	links := newOrderedSet()

	for _, a := range anchors(page) {
		if !pagePattern.MatchString(a.href) {
			continue
		}
		if pageURL, ok := res.resolve(a.href); ok {
			links.add(pageURL)
		}
	}

	return links.items
}

// cardWindow returns the markup that belongs to the product card around an
// anchor: the enclosing <article> when there is one, otherwise a fixed
// radius around the anchor. An <article> closed before the anchor does not
// enclose it.
func cardWindow(page, lower string, start, end int) string {
	cardStart := strings.LastIndex(lower[:start], "<article")
	cardEnd := strings.Index(lower[end:], "</article>")
	enclosed := cardStart != -1 && cardEnd != -1 &&
		!strings.Contains(lower[cardStart:start], "</article>")
	if enclosed {
		return page[cardStart : end+cardEnd+len("</article>")]
	}

	from := runeStart(page, max(start-cardWindowRadius, 0))
	to := runeStart(page, min(end+cardWindowRadius, len(page)))
	return page[from:to]
}
