package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changes to defaults must be intentional; these tests fail otherwise.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 20 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 20*time.Second {
			t.Errorf("expected Timeout to be 20s, got %v", cfg.Timeout)
		}
	})

	t.Run("default retry policy is 3 retries with 1s doubling backoff", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxAttempts != 4 || cfg.Backoff != time.Second || cfg.BackoffMultiplier != 2.0 {
			t.Errorf("unexpected retry policy %d %v %v", cfg.MaxAttempts, cfg.Backoff, cfg.BackoffMultiplier)
		}
	})

	t.Run("default MinInterval is 1 second", func(t *testing.T) {
		t.Parallel()
		if cfg.MinInterval != time.Second {
			t.Errorf("expected MinInterval to be 1s, got %v", cfg.MinInterval)
		}
	})

	t.Run("default MaxListingPages is 50", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxListingPages != 50 {
			t.Errorf("expected MaxListingPages to be 50, got %d", cfg.MaxListingPages)
		}
	})

	t.Run("default Concurrency is 4", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 4 {
			t.Errorf("expected Concurrency to be 4, got %d", cfg.Concurrency)
		}
	})

	t.Run("default MaxBodySize is 10MiB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxBodySize != 10*1024*1024 {
			t.Errorf("expected MaxBodySize to be 10MiB, got %d", cfg.MaxBodySize)
		}
	})

	t.Run("global rate is uncapped and crawl-delay ignored", func(t *testing.T) {
		t.Parallel()
		if cfg.GlobalRate != 0 || cfg.HonorCrawlDelay {
			t.Errorf("unexpected politeness defaults %v %v", cfg.GlobalRate, cfg.HonorCrawlDelay)
		}
	})

	t.Run("database lives in the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	// validConfig returns a minimal valid configuration.
	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"https://shop.example/collections/all"}
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "valid config returns nil", modify: func(*Config) {}, want: nil},
		{
			name: "configured sites without targets are valid",
			modify: func(c *Config) {
				c.Targets = nil
				c.SiteConfigs = &File{Sites: map[string]SiteConfig{"vicioso": {BaseURL: "https://vicioso.example"}}}
			},
			want: nil,
		},
		{name: "no targets returns ErrNoTarget", modify: func(c *Config) { c.Targets = nil }, want: ErrNoTarget},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, want: ErrInvalidTimeout},
		{name: "zero attempts", modify: func(c *Config) { c.MaxAttempts = 0 }, want: ErrInvalidMaxAttempts},
		{name: "negative backoff", modify: func(c *Config) { c.Backoff = -time.Second }, want: ErrInvalidBackoff},
		{name: "shrinking backoff", modify: func(c *Config) { c.BackoffMultiplier = 0.5 }, want: ErrInvalidBackoff},
		{name: "zero min interval is valid", modify: func(c *Config) { c.MinInterval = 0 }, want: nil},
		{name: "negative min interval", modify: func(c *Config) { c.MinInterval = -1 }, want: ErrInvalidMinInterval},
		{name: "negative global rate", modify: func(c *Config) { c.GlobalRate = -1 }, want: ErrInvalidGlobalRate},
		{name: "zero listing pages", modify: func(c *Config) { c.MaxListingPages = 0 }, want: ErrInvalidMaxListingPages},
		{name: "zero concurrency", modify: func(c *Config) { c.Concurrency = 0 }, want: ErrInvalidConcurrency},
		{
			name: "json and markdown both enabled",
			modify: func(c *Config) {
				c.JSONReport = true
				c.MarkdownReport = true
			},
			want: ErrConflictingReportFormats,
		},
		{name: "negative max body size", modify: func(c *Config) { c.MaxBodySize = -1 }, want: ErrInvalidMaxBodySize},
		{name: "proxy without port", modify: func(c *Config) { c.Proxy = "127.0.0.1" }, want: ErrInvalidProxy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestFileGetSiteConfig tests the merging of site configuration with defaults.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{MaxListingPages: 10, IgnorePatterns: []string{"/gift-*"}},
			Sites:    map[string]SiteConfig{},
		}

		got := cf.GetSiteConfig("unknown")
		if got.MaxListingPages != 10 || len(got.IgnorePatterns) != 1 {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("site values override defaults and headers merge", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{
				MaxListingPages: 10,
				Headers:         map[string]string{"Accept-Language": "de-DE", "X-Team": "scent"},
			},
			Sites: map[string]SiteConfig{
				"vicioso": {
					BaseURL:         "https://vicioso.example",
					Seeds:           []string{"/collections/all"},
					MaxListingPages: 30,
					Headers:         map[string]string{"Accept-Language": "en-US"},
				},
			},
		}

		got := cf.GetSiteConfig("vicioso")
		if got.BaseURL != "https://vicioso.example" || got.MaxListingPages != 30 {
			t.Errorf("unexpected site config %+v", got)
		}
		if got.Headers["Accept-Language"] != "en-US" || got.Headers["X-Team"] != "scent" {
			t.Errorf("unexpected headers %v", got.Headers)
		}
		if cf.Defaults.Headers["Accept-Language"] != "de-DE" {
			t.Error("defaults must not be modified by a merge")
		}
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{MaxListingPages: 10, IgnorePatterns: []string{"/sale/*"}},
			Sites:    map[string]SiteConfig{"vicioso": {BaseURL: "https://vicioso.example"}},
		}

		got := cf.GetSiteConfig("vicioso")
		if got.MaxListingPages != 10 || len(got.IgnorePatterns) != 1 {
			t.Errorf("expected defaults to remain, got %+v", got)
		}
	})

	t.Run("nil sites map", func(t *testing.T) {
		t.Parallel()

		cf := &File{Defaults: SiteConfig{MaxListingPages: 7}}
		if got := cf.GetSiteConfig("anything"); got.MaxListingPages != 7 {
			t.Errorf("expected defaults, got %+v", got)
		}
	})
}

// TestConfigSites tests the resolution of targets into sites.
func TestConfigSites(t *testing.T) {
	t.Parallel()

	file := &File{
		Defaults: SiteConfig{Headers: map[string]string{"Accept-Language": "de-DE"}},
		Sites: map[string]SiteConfig{
			"vicioso": {
				BaseURL: "https://vicioso.example",
				Seeds:   []string{"/collections/all", "/collections/new"},
			},
			"atelier": {
				BaseURL:         "https://atelier.example",
				MaxListingPages: 5,
			},
			"broken": {Seeds: []string{"/x"}},
		},
	}

	t.Run("configured site name", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteConfigs = file
		cfg.Targets = []string{"vicioso"}

		sites, err := cfg.Sites()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sites) != 1 {
			t.Fatalf("expected 1 site, got %d", len(sites))
		}
		s := sites[0]
		if s.Name != "vicioso" || s.BaseURL != "https://vicioso.example" || len(s.Seeds) != 2 {
			t.Errorf("unexpected site %+v", s)
		}
		if s.MaxListingPages != DefaultMaxListingPages {
			t.Errorf("expected global page cap, got %d", s.MaxListingPages)
		}
		if s.Headers["Accept-Language"] != "de-DE" {
			t.Errorf("expected default headers, got %v", s.Headers)
		}
	})

	t.Run("site without seeds starts at its base URL", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteConfigs = file
		cfg.Targets = []string{"atelier"}

		sites, err := cfg.Sites()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sites[0].Seeds) != 1 || sites[0].Seeds[0] != "https://atelier.example" {
			t.Errorf("unexpected seeds %v", sites[0].Seeds)
		}
		if sites[0].MaxListingPages != 5 {
			t.Errorf("expected site page cap 5, got %d", sites[0].MaxListingPages)
		}
	})

	t.Run("URL target becomes an ad hoc site", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteConfigs = file
		cfg.Targets = []string{"https://other.example/perfume?page=1"}

		sites, err := cfg.Sites()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s := sites[0]
		if s.Name != "other.example" || s.BaseURL != "https://other.example" {
			t.Errorf("unexpected site %+v", s)
		}
		if len(s.Seeds) != 1 || s.Seeds[0] != "https://other.example/perfume?page=1" {
			t.Errorf("unexpected seeds %v", s.Seeds)
		}
		if s.Headers["Accept-Language"] != "de-DE" {
			t.Errorf("expected default headers, got %v", s.Headers)
		}
	})

	t.Run("no targets harvests every configured site by name", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteConfigs = &File{Sites: map[string]SiteConfig{
			"zeta":  {BaseURL: "https://zeta.example"},
			"alpha": {BaseURL: "https://alpha.example"},
		}}

		sites, err := cfg.Sites()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sites) != 2 || sites[0].Name != "alpha" || sites[1].Name != "zeta" {
			t.Errorf("unexpected order %+v", sites)
		}
	})

	t.Run("duplicate targets are harvested once", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteConfigs = file
		cfg.Targets = []string{"vicioso", " vicioso "}

		sites, err := cfg.Sites()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sites) != 1 {
			t.Errorf("expected 1 site, got %d", len(sites))
		}
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			targets []string
			file    *File
			want    error
		}{
			{name: "unknown name", targets: []string{"nowhere"}, file: file, want: ErrUnknownSite},
			{name: "relative URL", targets: []string{"/collections/all"}, file: file, want: ErrUnknownSite},
			{name: "ftp URL", targets: []string{"ftp://shop.example/"}, file: file, want: ErrUnknownSite},
			{name: "missing base URL", targets: []string{"broken"}, file: file, want: ErrMissingBaseURL},
			{name: "nothing at all", targets: nil, file: nil, want: ErrNoTarget},
		}

		for _, tt := range tests {
			cfg := NewConfig()
			cfg.SiteConfigs = tt.file
			cfg.Targets = tt.targets

			if _, err := cfg.Sites(); !errors.Is(err, tt.want) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
			}
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.perfumeharvest")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `defaults:
  maxListingPages: 20
  headers:
    Accept-Language: "de-DE"
sites:
  vicioso:
    baseURL: "https://vicioso.example"
    seeds:
      - "/collections/all"
    maxListingPages: 40
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/products/gift-*"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.MaxListingPages != 20 {
			t.Errorf("expected default cap 20, got %d", cfg.Defaults.MaxListingPages)
		}

		site, ok := cfg.Sites["vicioso"]
		if !ok {
			t.Fatal("expected vicioso in sites")
		}
		if site.BaseURL != "https://vicioso.example" || site.MaxListingPages != 40 {
			t.Errorf("unexpected site %+v", site)
		}
		if len(site.Seeds) != 1 || site.Seeds[0] != "/collections/all" {
			t.Errorf("unexpected seeds %v", site.Seeds)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header")
		}
		if len(site.IgnorePatterns) != 1 {
			t.Errorf("expected 1 ignore pattern, got %d", len(site.IgnorePatterns))
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("rejects blank site names", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := "sites:\n  \" \":\n    baseURL: \"https://x.example\"\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for blank site name")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte("defaults:\n  maxListingPages: 25\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("unexpected data dir %q", XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("unexpected config dir %q", XDGConfigDir())
	}
}
