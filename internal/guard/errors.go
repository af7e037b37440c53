package guard

import "fmt"

// AccessDeniedError is returned when robots.txt disallows a URL for the
// configured user agent.
type AccessDeniedError struct {
	URL       string
	UserAgent string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("robots.txt forbids fetching %s for %q", e.URL, e.UserAgent)
}
