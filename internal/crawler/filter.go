package crawler

import (
	"net/url"
	"path"
	"strings"
)

// normalizeURL normalizes a URL for the visited set of the listing walk.
//
// Design decision: We normalize URLs because:
//  1. Same page can have different URL representations
//  2. Fragment (#anchor) doesn't change content
//  3. Scheme and host are case-insensitive
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// http://shop.example and http://shop.example/ are the same page.
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// ignored reports whether targetURL matches one of the ignore patterns.
func ignored(patterns []string, targetURL string) bool {
	if len(patterns) == 0 {
		return false
	}

	u, err := url.Parse(targetURL)
	if err != nil {
		return true
	}

	urlPath := u.Path
	if urlPath == "" {
		urlPath = "/"
	}

	for _, pattern := range patterns {
		if matchPattern(pattern, urlPath) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing /* to match everything below a prefix
//
// Examples:
//   - "/products/gift-*" matches "/products/gift-card"
//   - "/collections/sale/*" matches "/collections/sale/page/2"
//   - "*.pdf" matches "/docs/file.pdf"
func matchPattern(pattern, urlPath string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(urlPath, prefix+"/") || urlPath == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(urlPath, ext) {
			return true
		}
	}

	matched, err := path.Match(pattern, urlPath)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Patterns without a slash also match the last segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := path.Match(pattern, path.Base(urlPath))
		if err == nil && matched {
			return true
		}
	}

	return false
}
