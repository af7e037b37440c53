package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/nao1215/perfumeharvest/internal/normalize"
)

var (
	// ErrInvalidPerfume is returned when a record misses a required field or
	// carries a malformed value.
	ErrInvalidPerfume = errors.New("invalid perfume record")
	// ErrInvalidPriceRange is returned when PriceMin is greater than PriceMax.
	ErrInvalidPriceRange = errors.New("price_min must be <= price_max")
)

// validate is shared; a *validator.Validate is safe for concurrent use and
// caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank validation: %v", err))
	}
	return v
}

// NotePosition is the level of a note in the fragrance pyramid.
type NotePosition string

const (
	// NotePositionTop is the opening of a fragrance.
	NotePositionTop NotePosition = "top"
	// NotePositionMiddle is the heart of a fragrance.
	NotePositionMiddle NotePosition = "middle"
	// NotePositionBase is the dry-down of a fragrance.
	NotePositionBase NotePosition = "base"
)

// NoteEntry is one note together with its pyramid level.
type NoteEntry struct {
	Note     string       `json:"note"`
	Position NotePosition `json:"position"`
}

// Perfume is a harvested product record.
type Perfume struct {
	// ID is derived from the product URL path and is stable across runs.
	ID string `json:"perfume_id" validate:"notblank"`

	// Name is the display name from the listing page.
	Name string `json:"name" validate:"notblank"`

	// URL is the absolute product page URL.
	URL string `json:"url" validate:"notblank,url"`

	// PriceMin and PriceMax are nil when the listing showed no price.
	PriceMin *float64 `json:"price_min" validate:"omitempty,gte=0"`
	PriceMax *float64 `json:"price_max" validate:"omitempty,gte=0"`

	GenderTags    []string `json:"gender_tags"`
	ScentFamilies []string `json:"scent_families"`
	MoleculeTags  []string `json:"molecule_tags"`

	NotesTop    []string `json:"notes_top"`
	NotesMiddle []string `json:"notes_middle"`
	NotesBase   []string `json:"notes_base"`

	Description string   `json:"description"`
	ImageURLs   []string `json:"image_urls"`

	// LastScrapedAt is the UTC time the product page was harvested.
	LastScrapedAt time.Time `json:"last_scraped_at"`
}

// Validate checks required fields and the price range.
func (p *Perfume) Validate() error {
	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
			}
			return fmt.Errorf("%w: %s", ErrInvalidPerfume, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidPerfume, err)
	}

	if p.PriceMin != nil && p.PriceMax != nil && *p.PriceMin > *p.PriceMax {
		return fmt.Errorf("%w: %v > %v", ErrInvalidPriceRange, *p.PriceMin, *p.PriceMax)
	}

	return nil
}

// Clean trims every text list, drops empty entries and removes
// case-insensitive duplicates, keeping the first spelling. Lists are never
// nil afterwards.
func (p *Perfume) Clean() {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.URL = strings.TrimSpace(p.URL)
	p.Description = strings.TrimSpace(p.Description)

	p.GenderTags = cleanItems(p.GenderTags)
	p.ScentFamilies = cleanItems(p.ScentFamilies)
	p.MoleculeTags = cleanItems(p.MoleculeTags)
	p.NotesTop = cleanItems(p.NotesTop)
	p.NotesMiddle = cleanItems(p.NotesMiddle)
	p.NotesBase = cleanItems(p.NotesBase)
	p.ImageURLs = cleanItems(p.ImageURLs)
}

// NotesAll returns the whole pyramid, top notes first.
func (p *Perfume) NotesAll() []NoteEntry {
	entries := make([]NoteEntry, 0, len(p.NotesTop)+len(p.NotesMiddle)+len(p.NotesBase))
	for _, n := range p.NotesTop {
		entries = append(entries, NoteEntry{Note: n, Position: NotePositionTop})
	}
	for _, n := range p.NotesMiddle {
		entries = append(entries, NoteEntry{Note: n, Position: NotePositionMiddle})
	}
	for _, n := range p.NotesBase {
		entries = append(entries, NoteEntry{Note: n, Position: NotePositionBase})
	}
	return entries
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := normalize.Fold(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
