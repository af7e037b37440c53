package normalize

import "regexp"

// noteLabelPattern matches a leading fragrance pyramid label in English or
// German.
var noteLabelPattern = regexp.MustCompile(
	`(?i)^(?:top notes?|middle notes?|base notes?|head notes?|heart notes?|kopfnoten?|herznoten?|basisnoten?)[:\-\s]+`,
)

// Notes holds the three levels of a fragrance pyramid.
type Notes struct {
	Top    []string
	Middle []string
	Base   []string
}

// NormalizeNoteList normalizes the notes of one pyramid level.
func NormalizeNoteList(raw []string) []string {
	return normalizeList(raw, noteLabelPattern)
}

// NormalizeNotes normalizes each pyramid level independently.
func NormalizeNotes(n Notes) Notes {
	return Notes{
		Top:    NormalizeNoteList(n.Top),
		Middle: NormalizeNoteList(n.Middle),
		Base:   NormalizeNoteList(n.Base),
	}
}
