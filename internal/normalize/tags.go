package normalize

import "regexp"

// tagLabelPattern matches a leading tag category label in English or German.
var tagLabelPattern = regexp.MustCompile(
	`(?i)^(?:duftfamilie|familie|family|geschlecht|gender|molek[üu]le|molecules?)[:\-\s]+`,
)

// familyAliases maps folded family names to their canonical English form.
var familyAliases = map[string]string{
	"blumig":       "Floral",
	"floral":       "Floral",
	"frisch":       "Fresh",
	"fresh":        "Fresh",
	"gourmandig":   "Gourmand",
	"gourmand":     "Gourmand",
	"holzig":       "Woody",
	"woody":        "Woody",
	"orientalisch": "Oriental",
	"oriental":     "Oriental",
	"suess":        "Sweet",
	"suss":         "Sweet",
	"süss":         "Sweet", // folded form of "süß"
	"sweet":        "Sweet",
	"warm":         "Warm",
}

// Tags holds the categorical labels of a product.
type Tags struct {
	Gender    []string
	Families  []string
	Molecules []string
}

// NormalizeList normalizes a generic tag list such as gender or molecule
// tags.
func NormalizeList(raw []string) []string {
	return normalizeList(raw, tagLabelPattern)
}

// NormalizeFamilies normalizes scent families and maps known aliases to
// their canonical name. Unknown families keep their cleaned spelling.
func NormalizeFamilies(raw []string) []string {
	cleaned := NormalizeList(raw)

	out := make([]string, 0, len(cleaned))
	seen := make(map[string]struct{}, len(cleaned))
	for _, family := range cleaned {
		canonical, ok := familyAliases[Fold(family)]
		if !ok {
			canonical = family
		}

		key := Fold(canonical)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, canonical)
	}

	return out
}

// NormalizeTags normalizes all tag groups.
func NormalizeTags(t Tags) Tags {
	return Tags{
		Gender:    NormalizeList(t.Gender),
		Families:  NormalizeFamilies(t.Families),
		Molecules: NormalizeList(t.Molecules),
	}
}
