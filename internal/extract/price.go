package extract

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// pricePattern matches an amount with a leading currency symbol or a
// trailing symbol or ISO code. Non-breaking spaces may separate the two.
var pricePattern = regexp.MustCompile(
	`(?i)(?:[€$£][\s\p{Zs}]*\d+(?:[.,]\d{3})*(?:[.,]\d{1,2})?|\d+(?:[.,]\d{3})*(?:[.,]\d{1,2})?[\s\p{Zs}]*(?:€|(?:eur|usd|gbp)\b))`,
)

// priceRange returns the lowest and highest price found in fragment.
// Both are nil when the fragment holds no price.
func priceRange(fragment string) (lowest, highest *float64) {
	for _, raw := range pricePattern.FindAllString(html.UnescapeString(fragment), -1) {
		amount, ok := parseAmount(raw)
		if !ok {
			continue
		}
		if lowest == nil || amount < *lowest {
			v := amount
			lowest = &v
		}
		if highest == nil || amount > *highest {
			v := amount
			highest = &v
		}
	}
	return lowest, highest
}

// parseAmount converts a matched price token to a number.
//
// The last separator is the decimal point when one or two digits follow it;
// every other separator groups thousands. "59,90", "1.299,00" and "1,299.00"
// therefore read as 59.9, 1299 and 1299.
func parseAmount(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	numeric := b.String()
	if numeric == "" {
		return 0, false
	}

	last := strings.LastIndexAny(numeric, ".,")
	var normalized string
	switch {
	case last == -1:
		normalized = numeric
	case len(numeric)-last-1 <= 2:
		integer := strings.NewReplacer(".", "", ",", "").Replace(numeric[:last])
		normalized = integer + "." + numeric[last+1:]
	default:
		normalized = strings.NewReplacer(".", "", ",", "").Replace(numeric)
	}

	amount, err := strconv.ParseFloat(normalized, 64)
	if err != nil || amount < 0 {
		return 0, false
	}
	return amount, true
}
