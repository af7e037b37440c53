package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// boundaryCutset is trimmed from both ends of every token.
const boundaryCutset = " \t\n\r-_,.;:"

var (
	// splitPattern separates tokens inside one raw item.
	splitPattern = regexp.MustCompile(`[,;/|+]`)

	// conjunctionPattern matches "and"/"und" used as a list separator.
	conjunctionPattern = regexp.MustCompile(`(?i)\s+(?:and|und)\s+`)

	// noiseTokens are placeholder values shops print instead of data.
	// Keys are case folded.
	noiseTokens = map[string]struct{}{
		"":        {},
		"-":       {},
		"n/a":     {},
		"none":    {},
		"null":    {},
		"unknown": {},
		"k.a.":    {},
	}
)

// Fold returns the Unicode case folding of s. It is the key used for
// case-insensitive comparison everywhere in this package.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// collapseSpace trims s and replaces every run of whitespace with one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isNoise(s string) bool {
	_, ok := noiseTokens[Fold(s)]
	return ok
}

// splitTokens breaks one raw item into candidate tokens.
func splitTokens(raw string) []string {
	collapsed := conjunctionPattern.ReplaceAllString(collapseSpace(raw), ",")

	parts := splitPattern.Split(collapsed, -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// cleanToken strips labels matched by label, collapses whitespace and trims
// boundary punctuation. It repeats until nothing changes so that a second
// pass over its output is a no-op.
func cleanToken(token string, label *regexp.Regexp) string {
	current := token
	for {
		next := label.ReplaceAllString(strings.TrimSpace(current), "")
		next = collapseSpace(next)
		next = strings.Trim(next, boundaryCutset)
		if next == current {
			return next
		}
		current = next
	}
}

// normalizeList applies the shared list pipeline with the given label
// pattern.
func normalizeList(raw []string, label *regexp.Regexp) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, item := range raw {
		if isNoise(collapseSpace(item)) {
			continue
		}

		for _, token := range splitTokens(item) {
			if isNoise(token) {
				continue
			}
			cleaned := cleanToken(token, label)
			if cleaned == "" || isNoise(cleaned) {
				continue
			}

			key := Fold(cleaned)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, cleaned)
		}
	}

	return out
}
