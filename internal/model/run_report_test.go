package model

import (
	"reflect"
	"testing"
	"time"
)

func TestRunReportSuccessRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		discovered int
		scraped    int
		want       float64
	}{
		{name: "nothing discovered", discovered: 0, scraped: 0, want: 0},
		{name: "all scraped", discovered: 2, scraped: 2, want: 1},
		{name: "half scraped", discovered: 4, scraped: 2, want: 0.5},
		{name: "none scraped", discovered: 3, scraped: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRunReport("test", "https://shop.example", time.Now())
			for range tt.discovered {
				r.DiscoveredProductURLs = append(r.DiscoveredProductURLs, "u")
			}
			r.ScrapedCount = tt.scraped

			if got := r.SuccessRate(); got != tt.want {
				t.Errorf("SuccessRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunReportAddFailure(t *testing.T) {
	t.Parallel()

	r := NewRunReport("test", "https://shop.example", time.Now())
	r.AddFailure(Failure{URL: "https://shop.example/c", Phase: PhaseListing, Kind: FailureTransport})
	r.AddFailure(Failure{URL: "https://shop.example/products/a", Phase: PhaseProduct, Kind: FailureHTTPStatus, StatusCode: 404})
	r.AddFailure(Failure{URL: "https://shop.example/products/b", Phase: PhaseProduct, Kind: FailureHTTPStatus, StatusCode: 500})

	if want := []string{"https://shop.example/c"}; !reflect.DeepEqual(r.FailedListingURLs, want) {
		t.Errorf("FailedListingURLs = %q, want %q", r.FailedListingURLs, want)
	}
	if want := []string{"https://shop.example/products/a", "https://shop.example/products/b"}; !reflect.DeepEqual(r.FailedProductURLs, want) {
		t.Errorf("FailedProductURLs = %q, want %q", r.FailedProductURLs, want)
	}
	if counts := r.FailuresByKind(); counts[FailureHTTPStatus] != 2 || counts[FailureTransport] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestNewRunReport(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewRunReport("site", "https://shop.example", start)
	b := NewRunReport("site", "https://shop.example", start)

	if a.RunID == "" || a.RunID == b.RunID {
		t.Errorf("expected distinct run IDs, got %q and %q", a.RunID, b.RunID)
	}
	if a.Duration() != 0 {
		t.Errorf("expected zero duration before finish, got %v", a.Duration())
	}
	a.FinishedAt = start.Add(3 * time.Second)
	if a.Duration() != 3*time.Second {
		t.Errorf("expected 3s duration, got %v", a.Duration())
	}
}

func TestFailureKindIsValid(t *testing.T) {
	t.Parallel()

	if !FailureStore.IsValid() {
		t.Error("expected store to be valid")
	}
	if FailureKind("bogus").IsValid() {
		t.Error("expected bogus to be invalid")
	}
}
