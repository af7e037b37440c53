package model

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func price(v float64) *float64 { return &v }

func validPerfume() *Perfume {
	return &Perfume{
		ID:            "amber-night",
		Name:          "Amber Night",
		URL:           "https://vicioso.example/products/amber-night",
		PriceMin:      price(59.9),
		PriceMax:      price(89.9),
		LastScrapedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPerfumeValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(p *Perfume)
		wantErr error
	}{
		{name: "valid record", mutate: func(*Perfume) {}},
		{name: "missing prices are allowed", mutate: func(p *Perfume) { p.PriceMin, p.PriceMax = nil, nil }},
		{name: "only min price is allowed", mutate: func(p *Perfume) { p.PriceMax = nil }},
		{name: "blank id", mutate: func(p *Perfume) { p.ID = "  " }, wantErr: ErrInvalidPerfume},
		{name: "empty name", mutate: func(p *Perfume) { p.Name = "" }, wantErr: ErrInvalidPerfume},
		{name: "relative url", mutate: func(p *Perfume) { p.URL = "/products/x" }, wantErr: ErrInvalidPerfume},
		{name: "negative price", mutate: func(p *Perfume) { p.PriceMin = price(-1) }, wantErr: ErrInvalidPerfume},
		{
			name:    "min above max",
			mutate:  func(p *Perfume) { p.PriceMin, p.PriceMax = price(90), price(60) },
			wantErr: ErrInvalidPriceRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validPerfume()
			tt.mutate(p)

			err := p.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPerfumeClean(t *testing.T) {
	t.Parallel()

	p := validPerfume()
	p.Name = "  Amber Night "
	p.NotesTop = []string{" Bergamot", "bergamot", "", "Lemon"}
	p.ScentFamilies = []string{"Woody", "WOODY"}

	p.Clean()

	if p.Name != "Amber Night" {
		t.Errorf("expected trimmed name, got %q", p.Name)
	}
	if want := []string{"Bergamot", "Lemon"}; !reflect.DeepEqual(p.NotesTop, want) {
		t.Errorf("NotesTop = %q, want %q", p.NotesTop, want)
	}
	if want := []string{"Woody"}; !reflect.DeepEqual(p.ScentFamilies, want) {
		t.Errorf("ScentFamilies = %q, want %q", p.ScentFamilies, want)
	}
	if p.GenderTags == nil || p.ImageURLs == nil {
		t.Error("expected nil lists to become empty lists")
	}
}

func TestPerfumeNotesAll(t *testing.T) {
	t.Parallel()

	p := validPerfume()
	p.NotesTop = []string{"Lemon"}
	p.NotesMiddle = []string{"Rose", "Iris"}
	p.NotesBase = []string{"Musk"}

	want := []NoteEntry{
		{Note: "Lemon", Position: NotePositionTop},
		{Note: "Rose", Position: NotePositionMiddle},
		{Note: "Iris", Position: NotePositionMiddle},
		{Note: "Musk", Position: NotePositionBase},
	}
	if got := p.NotesAll(); !reflect.DeepEqual(got, want) {
		t.Errorf("NotesAll() = %+v, want %+v", got, want)
	}
}
