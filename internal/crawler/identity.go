package crawler

import (
	"net/url"
	"strings"
)

// perfumeID derives a stable identifier from a product URL: the path segment
// after "products", else the last non-empty segment.
func perfumeID(productURL string) (string, error) {
	u, err := url.Parse(productURL)
	if err != nil {
		return "", &IdentityDerivationError{URL: productURL}
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	for i, p := range parts {
		if p == "products" && i+1 < len(parts) {
			return parts[i+1], nil
		}
	}

	if len(parts) > 0 {
		return parts[len(parts)-1], nil
	}

	return "", &IdentityDerivationError{URL: productURL}
}
