package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// token is one tokenizer step together with its byte span in the input.
type token struct {
	html.Token
	start int
	end   int
}

// tokenize walks src and calls fn for every token until fn returns false or
// the input ends.
func tokenize(src string, fn func(t token) bool) {
	z := html.NewTokenizer(strings.NewReader(src))
	offset := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a tokenizer give-up; both end the scan.
			return
		}

		n := len(z.Raw())
		t := token{Token: z.Token(), start: offset, end: offset + n}
		offset += n

		if !fn(t) {
			return
		}
	}
}

// attr returns the value of the attribute key (lower case) or "".
func attr(t html.Token, key string) string {
	for _, a := range t.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapseSpace trims s and replaces runs of whitespace with one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// asciiLower lower-cases ASCII letters only, so byte offsets stay valid.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// runeStart moves i forward to the start of a UTF-8 sequence.
func runeStart(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// resolver turns hrefs into absolute URLs relative to a page URL.
type resolver struct {
	base *url.URL
}

func newResolver(baseURL string) resolver {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		base = nil
	}
	return resolver{base: base}
}

// resolve returns the absolute form of ref without its fragment.
// It reports false for empty or unparsable references and for data URIs.
func (r resolver) resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(asciiLower(ref), "data:") {
		return "", false
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if r.base != nil {
		u = r.base.ResolveReference(u)
	}
	u.Fragment = ""
	u.RawFragment = ""

	if !u.IsAbs() {
		return "", false
	}
	return u.String(), true
}

// orderedSet keeps first-seen order of unique strings.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

// add inserts s and reports whether it was new.
func (o *orderedSet) add(s string) bool {
	if _, ok := o.seen[s]; ok {
		return false
	}
	o.seen[s] = struct{}{}
	o.items = append(o.items, s)
	return true
}
