package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/perfumeharvest/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *PerfumeDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func ptr(v float64) *float64 { return &v }

func samplePerfume(id string) *model.Perfume {
	return &model.Perfume{
		ID:            id,
		Name:          "Amber Night",
		URL:           "https://shop.example/products/" + id,
		PriceMin:      ptr(59.9),
		PriceMax:      ptr(89.9),
		GenderTags:    []string{"unisex"},
		ScentFamilies: []string{"Oriental", "Woody"},
		MoleculeTags:  []string{"Ambroxan"},
		NotesTop:      []string{"Bergamot"},
		NotesMiddle:   []string{"Rose"},
		NotesBase:     []string{"Amber", "Vanilla"},
		Description:   "A warm amber fragrance for long evenings.",
		ImageURLs:     []string{"https://shop.example/img/amber.jpg"},
		LastScrapedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, FileName)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("expected path %s, got %s", dbPath, db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("CreateIfNotExists=false opens an existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if err := db.UpsertPerfume(context.Background(), samplePerfume("amber-night")); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
		_ = db.Close()

		reopened, err := Open(dbDir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer reopened.Close()

		got, err := reopened.GetPerfume(context.Background(), "amber-night")
		if err != nil || got == nil {
			t.Fatalf("expected stored perfume, got %v, %v", got, err)
		}
	})
}

// TestPerfumeRoundTrip tests that stored records come back intact.
func TestPerfumeRoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("all fields survive storage", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		want := samplePerfume("amber-night")

		if err := db.UpsertPerfume(ctx, want); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		got, err := db.GetPerfume(ctx, "amber-night")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got == nil {
			t.Fatal("expected a record")
		}

		if got.Name != want.Name || got.URL != want.URL || got.Description != want.Description {
			t.Errorf("scalar fields differ: %+v", got)
		}
		if got.PriceMin == nil || *got.PriceMin != 59.9 || got.PriceMax == nil || *got.PriceMax != 89.9 {
			t.Errorf("unexpected prices %v %v", got.PriceMin, got.PriceMax)
		}
		if len(got.NotesBase) != 2 || got.NotesBase[1] != "Vanilla" {
			t.Errorf("unexpected base notes %v", got.NotesBase)
		}
		if len(got.ScentFamilies) != 2 || got.ScentFamilies[0] != "Oriental" {
			t.Errorf("unexpected families %v", got.ScentFamilies)
		}
		if len(got.ImageURLs) != 1 {
			t.Errorf("unexpected images %v", got.ImageURLs)
		}
		if !got.LastScrapedAt.Equal(want.LastScrapedAt) {
			t.Errorf("expected %v, got %v", want.LastScrapedAt, got.LastScrapedAt)
		}
	})

	t.Run("missing prices stay nil", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		p := samplePerfume("no-price")
		p.PriceMin, p.PriceMax = nil, nil

		if err := db.UpsertPerfume(ctx, p); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
		got, err := db.GetPerfume(ctx, "no-price")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.PriceMin != nil || got.PriceMax != nil {
			t.Errorf("expected nil prices, got %v %v", got.PriceMin, got.PriceMax)
		}
	})

	t.Run("nil lists come back empty", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		p := samplePerfume("bare")
		p.GenderTags, p.MoleculeTags, p.ImageURLs = nil, nil, nil

		if err := db.UpsertPerfume(ctx, p); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
		got, err := db.GetPerfume(ctx, "bare")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.GenderTags == nil || len(got.GenderTags) != 0 {
			t.Errorf("expected empty gender tags, got %#v", got.GenderTags)
		}
		if got.ImageURLs == nil || len(got.ImageURLs) != 0 {
			t.Errorf("expected empty images, got %#v", got.ImageURLs)
		}
	})

	t.Run("missing record returns nil without error", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		got, err := db.GetPerfume(context.Background(), "unknown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})
}

// TestUpsertPerfume tests that a second harvest replaces the first.
func TestUpsertPerfume(t *testing.T) {
	t.Parallel()

	t.Run("same ID updates in place", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		first := samplePerfume("amber-night")
		if err := db.UpsertPerfume(ctx, first); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		second := samplePerfume("amber-night")
		second.Name = "Amber Night Intense"
		second.PriceMin = ptr(69)
		second.NotesTop = []string{"Pink Pepper"}
		if err := db.UpsertPerfume(ctx, second); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		count, err := db.CountPerfumes(ctx)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected 1 record, got %d", count)
		}

		got, err := db.GetPerfume(ctx, "amber-night")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.Name != "Amber Night Intense" || *got.PriceMin != 69 {
			t.Errorf("record was not replaced: %+v", got)
		}
		if len(got.NotesTop) != 1 || got.NotesTop[0] != "Pink Pepper" {
			t.Errorf("unexpected top notes %v", got.NotesTop)
		}
	})

	t.Run("nil record is rejected", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if err := db.UpsertPerfume(context.Background(), nil); err == nil {
			t.Error("expected error for nil record")
		}
	})

	t.Run("batch is all or nothing", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		err := db.UpsertPerfumes(ctx, []*model.Perfume{samplePerfume("a"), nil})
		if err == nil {
			t.Fatal("expected batch error")
		}

		count, err := db.CountPerfumes(ctx)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if count != 0 {
			t.Errorf("expected rollback, found %d records", count)
		}

		if err := db.UpsertPerfumes(ctx, []*model.Perfume{samplePerfume("a"), samplePerfume("b")}); err != nil {
			t.Fatalf("failed to upsert batch: %v", err)
		}
		count, err = db.CountPerfumes(ctx)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 records, got %d", count)
		}
	})

	t.Run("canceled context fails the upsert", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := db.UpsertPerfume(ctx, samplePerfume("a"))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestListPerfumes tests ordering and paging.
func TestListPerfumes(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := db.UpsertPerfume(ctx, samplePerfume(id)); err != nil {
			t.Fatalf("failed to upsert %s: %v", id, err)
		}
	}

	tests := []struct {
		name   string
		limit  int
		offset int
		want   []string
	}{
		{name: "all records ordered by ID", limit: 0, offset: 0, want: []string{"a", "b", "c"}},
		{name: "first page", limit: 2, offset: 0, want: []string{"a", "b"}},
		{name: "second page", limit: 2, offset: 2, want: []string{"c"}},
		{name: "past the end", limit: 2, offset: 10, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := db.ListPerfumes(ctx, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("failed to list: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d records, got %d", len(tt.want), len(got))
			}
			for i, p := range got {
				if p.ID != tt.want[i] {
					t.Errorf("record %d: expected %s, got %s", i, tt.want[i], p.ID)
				}
			}
		})
	}
}

// TestRunReports tests run report persistence.
func TestRunReports(t *testing.T) {
	t.Parallel()

	newReport := func(site string, started time.Time) *model.RunReport {
		r := model.NewRunReport(site, "https://"+site+"/", started)
		r.FinishedAt = started.Add(time.Minute)
		r.DiscoveredProductURLs = []string{"https://" + site + "/products/a", "https://" + site + "/products/b"}
		r.ScrapedCount = 1
		r.AddFailure(model.Failure{
			URL:        "https://" + site + "/products/b",
			Phase:      model.PhaseProduct,
			Kind:       model.FailureHTTPStatus,
			StatusCode: 404,
			Message:    "not found",
		})
		return r
	}

	t.Run("latest report per site", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

		older := newReport("shop.example", base)
		newer := newReport("shop.example", base.Add(time.Hour))
		other := newReport("other.example", base.Add(2*time.Hour))

		for _, r := range []*model.RunReport{older, newer, other} {
			if err := db.SaveRunReport(ctx, r); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}

		got, err := db.LatestRunReport(ctx, "shop.example")
		if err != nil {
			t.Fatalf("failed to get report: %v", err)
		}
		if got == nil || got.RunID != newer.RunID {
			t.Fatalf("expected run %s, got %+v", newer.RunID, got)
		}
		if len(got.Failures) != 1 || got.Failures[0].StatusCode != 404 {
			t.Errorf("failures not preserved: %+v", got.Failures)
		}
		if got.SuccessRate() != 0.5 {
			t.Errorf("expected success rate 0.5, got %v", got.SuccessRate())
		}
	})

	t.Run("no runs returns nil without error", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		got, err := db.LatestRunReport(context.Background(), "nowhere.example")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("list runs newest first with optional site filter", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

		first := newReport("shop.example", base)
		second := newReport("other.example", base.Add(time.Hour))
		for _, r := range []*model.RunReport{first, second} {
			if err := db.SaveRunReport(ctx, r); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}

		all, err := db.ListRuns(ctx, "")
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 2 || all[0].RunID != second.RunID {
			t.Fatalf("unexpected runs %+v", all)
		}
		if all[0].ScrapedCount != 1 || all[0].FailedCount != 1 {
			t.Errorf("unexpected counts %+v", all[0])
		}
		if !all[1].StartedAt.Equal(base) {
			t.Errorf("expected start %v, got %v", base, all[1].StartedAt)
		}

		filtered, err := db.ListRuns(ctx, "shop.example")
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(filtered) != 1 || filtered[0].RunID != first.RunID {
			t.Errorf("unexpected filtered runs %+v", filtered)
		}
	})

	t.Run("saving the same run twice keeps one row", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		r := newReport("shop.example", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

		if err := db.SaveRunReport(ctx, r); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		r.ScrapedCount = 2
		if err := db.SaveRunReport(ctx, r); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		runs, err := db.ListRuns(ctx, "shop.example")
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 || runs[0].ScrapedCount != 2 {
			t.Errorf("unexpected runs %+v", runs)
		}
	})
}

// TestParseTimestamp tests the timestamp formats SQLite may hand back.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "RFC3339Nano", input: "2024-03-01T12:30:00Z", want: want},
		{name: "SQLite default", input: "2024-03-01 12:30:00", want: want},
		{name: "garbage", input: "yesterday", want: time.Time{}},
		{name: "empty", input: "", want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
