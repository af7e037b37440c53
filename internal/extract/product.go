package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"

	"github.com/nao1215/perfumeharvest/internal/normalize"
)

const (
	// noteLookahead is how many lines after a note label may hold notes.
	noteLookahead = 3

	// maxNoteLineLength is the longest line, in characters, read as a note.
	maxNoteLineLength = 35

	// maxNoteLineWords is the most words a note line may have.
	maxNoteLineWords = 4

	// minDescriptionLength is the length a text line must exceed to serve as
	// a fallback description.
	minDescriptionLength = 30
)

// Note section labels, case folded.
var (
	topLabels    = []string{"top notes", "head notes", "kopfnote", "kopfnoten"}
	middleLabels = []string{"middle notes", "heart notes", "herznote", "herznoten"}
	baseLabels   = []string{"base notes", "basisnote", "basisnoten"}

	allNoteLabels = concat(topLabels, middleLabels, baseLabels)

	// tagMarkers end a note section.
	tagMarkers = []string{"duftfamilie", "geschlecht", "molekül", "molecule", "family"}

	familyKeywords   = []string{"duftfamilie", "family", "familie"}
	genderKeywords   = []string{"geschlecht", "gender"}
	moleculeKeywords = []string{"molekül", "molecule"}
)

// blockTags start a new text line.
var blockTags = map[string]bool{
	"p": true, "li": true, "div": true, "section": true, "article": true,
	"ul": true, "ol": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// ProductFields is the data extracted from a product detail page.
// Lists hold raw strings until Normalize is applied.
type ProductFields struct {
	Description   string   `json:"description"`
	NotesTop      []string `json:"notes_top"`
	NotesMiddle   []string `json:"notes_middle"`
	NotesBase     []string `json:"notes_base"`
	GenderTags    []string `json:"gender_tags"`
	ScentFamilies []string `json:"scent_families"`
	MoleculeTags  []string `json:"molecule_tags"`
	ImageURLs     []string `json:"image_urls"`
}

// Normalize returns a copy with note and tag lists normalized. Description
// and images are kept as they are.
func (f ProductFields) Normalize() ProductFields {
	notes := normalize.NormalizeNotes(normalize.Notes{
		Top:    f.NotesTop,
		Middle: f.NotesMiddle,
		Base:   f.NotesBase,
	})
	tags := normalize.NormalizeTags(normalize.Tags{
		Gender:    f.GenderTags,
		Families:  f.ScentFamilies,
		Molecules: f.MoleculeTags,
	})

	f.NotesTop, f.NotesMiddle, f.NotesBase = notes.Top, notes.Middle, notes.Base
	f.GenderTags, f.ScentFamilies, f.MoleculeTags = tags.Gender, tags.Families, tags.Molecules
	return f
}

// productPage collects the signals of a product page in a single pass.
type productPage struct {
	lines           []string
	metaDescription string
	imageRefs       []string
	ogImages        []string
	jsonLD          []string
	families        []string
	genders         []string
	molecules       []string
}

// scanProductPage tokenizes page once and gathers everything the product
// extractor looks at.
func scanProductPage(page string) *productPage {
	p := &productPage{}

	var (
		text      strings.Builder
		skipText  bool
		inJSONLD  bool
		metaFound bool
	)

	tokenize(page, func(t token) bool {
		switch t.Type {
		case html.StartTagToken, html.SelfClosingTagToken:
			p.collectDataAttrs(t.Token)

			switch t.Data {
			case "script", "style":
				skipText = t.Type == html.StartTagToken
				inJSONLD = t.Data == "script" && skipText &&
					strings.EqualFold(strings.TrimSpace(attr(t.Token, "type")), "application/ld+json")
			case "meta":
				if !metaFound && strings.EqualFold(attr(t.Token, "name"), "description") {
					if v := strings.TrimSpace(attr(t.Token, "content")); v != "" {
						p.metaDescription = v
						metaFound = true
					}
				}
				if strings.EqualFold(attr(t.Token, "property"), "og:image") {
					p.ogImages = append(p.ogImages, attr(t.Token, "content"))
				}
			case "img", "source":
				for _, key := range []string{"src", "data-src"} {
					if v := attr(t.Token, key); v != "" {
						p.imageRefs = append(p.imageRefs, v)
					}
				}
			}

			if blockTags[t.Data] {
				text.WriteByte('\n')
			} else {
				text.WriteByte(' ')
			}
		case html.EndTagToken:
			if t.Data == "script" || t.Data == "style" {
				skipText = false
				inJSONLD = false
			}
			if blockTags[t.Data] {
				text.WriteByte('\n')
			} else {
				text.WriteByte(' ')
			}
		case html.TextToken:
			if inJSONLD {
				p.jsonLD = append(p.jsonLD, t.Data)
			}
			if !skipText {
				text.WriteString(t.Data)
			}
		}
		return true
	})

	for _, line := range strings.Split(text.String(), "\n") {
		if line = collapseSpace(line); line != "" {
			p.lines = append(p.lines, line)
		}
	}

	return p
}

// collectDataAttrs records data-family, data-gender and data-molecule
// values of any element.
func (p *productPage) collectDataAttrs(t html.Token) {
	for _, a := range t.Attr {
		switch a.Key {
		case "data-family":
			p.families = append(p.families, a.Val)
		case "data-gender":
			p.genders = append(p.genders, a.Val)
		case "data-molecule":
			p.molecules = append(p.molecules, a.Val)
		}
	}
}

// ExtractProduct extracts description, notes, tags and images from a product
// detail page. Relative image URLs are resolved against baseURL.
//
// Note and tag lists are returned raw; call Normalize on the result to clean
// them.
func ExtractProduct(page, baseURL string) ProductFields {
	p := scanProductPage(page)
	entries := productEntries(p.jsonLD)

	fields := ProductFields{
		NotesTop:      noteSection(p.lines, topLabels),
		NotesMiddle:   noteSection(p.lines, middleLabels),
		NotesBase:     noteSection(p.lines, baseLabels),
		GenderTags:    append(tagLines(p.lines, genderKeywords), p.genders...),
		ScentFamilies: append(tagLines(p.lines, familyKeywords), p.families...),
		MoleculeTags:  append(tagLines(p.lines, moleculeKeywords), p.molecules...),
	}

	fields.Description = description(p, entries)
	fields.ImageURLs = imageURLs(p, entries, newResolver(baseURL))

	return fields
}

// noteSection collects the raw notes that follow any of labels.
func noteSection(lines, labels []string) []string {
	notes := []string{}

	for i, line := range lines {
		if !containsAny(normalize.Fold(line), labels) {
			continue
		}

		if inline := valueAfterColon(line); inline != "" {
			notes = append(notes, inline)
		}

		end := min(i+1+noteLookahead, len(lines))
		for _, next := range lines[i+1 : end] {
			folded := normalize.Fold(next)
			if containsAny(folded, allNoteLabels) || containsAny(folded, tagMarkers) {
				break
			}
			if looksLikeNoteLine(next) {
				notes = append(notes, next)
			}
		}
	}

	return notes
}

// tagLines returns every line that mentions one of keywords.
func tagLines(lines, keywords []string) []string {
	out := []string{}
	for _, line := range lines {
		if containsAny(normalize.Fold(line), keywords) {
			out = append(out, line)
		}
	}
	return out
}

// description picks the meta description, then a JSON-LD product
// description, then the first long text line without a colon.
func description(p *productPage, entries []gjson.Result) string {
	if p.metaDescription != "" {
		return p.metaDescription
	}

	for _, entry := range entries {
		if d := entryDescription(entry); d != "" {
			return d
		}
	}

	for _, line := range p.lines {
		if utf8.RuneCountInString(line) > minDescriptionLength && !strings.Contains(line, ":") {
			return line
		}
	}

	return ""
}

// imageURLs merges image sources, og:image tags and JSON-LD images into one
// list of unique absolute URLs.
func imageURLs(p *productPage, entries []gjson.Result, res resolver) []string {
	refs := make([]string, 0, len(p.imageRefs)+len(p.ogImages))
	refs = append(refs, p.imageRefs...)
	refs = append(refs, p.ogImages...)
	for _, entry := range entries {
		refs = append(refs, entryImages(entry)...)
	}

	urls := newOrderedSet()
	for _, ref := range refs {
		if u, ok := res.resolve(ref); ok {
			urls.add(u)
		}
	}
	return urls.items
}

func valueAfterColon(line string) string {
	_, after, found := strings.Cut(line, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(after)
}

// looksLikeNoteLine reports whether a line is short enough to be a list of
// notes rather than prose.
func looksLikeNoteLine(line string) bool {
	if utf8.RuneCountInString(line) > maxNoteLineLength || strings.Contains(line, ".") {
		return false
	}
	words := len(strings.Fields(line))
	return words > 0 && words <= maxNoteLineWords
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
