package crawler

import "fmt"

// IdentityDerivationError is returned when no perfume ID can be derived from
// a product URL.
type IdentityDerivationError struct {
	URL string
}

func (e *IdentityDerivationError) Error() string {
	return fmt.Sprintf("cannot derive perfume id from url: %s", e.URL)
}
