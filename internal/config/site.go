package config

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
)

// SiteConfig holds the configuration of one shop.
type SiteConfig struct {
	// BaseURL is the shop origin relative seeds are resolved against.
	BaseURL string `yaml:"baseURL,omitempty"`

	// Seeds are the listing pages the walk starts from. Relative seeds are
	// resolved against BaseURL. When empty, the walk starts at BaseURL.
	Seeds []string `yaml:"seeds,omitempty"`

	// MaxListingPages overrides the global listing page cap for this site.
	// If zero, the global MaxListingPages is used.
	MaxListingPages int `yaml:"maxListingPages,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are URL patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`
}

// File represents the structure of the .perfumeharvest configuration file.
type File struct {
	// Sites maps site names to their configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a site name.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(name string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	if siteConfig, ok := cf.Sites[name]; ok {
		result = mergeSiteConfig(result, siteConfig)
	}

	return result
}

// mergeSiteConfig overrides defaults with the non-zero values of override.
// Headers are merged key by key.
func mergeSiteConfig(defaults, override SiteConfig) SiteConfig {
	result := defaults

	if override.BaseURL != "" {
		result.BaseURL = override.BaseURL
	}
	if len(override.Seeds) > 0 {
		result.Seeds = override.Seeds
	}
	if override.MaxListingPages > 0 {
		result.MaxListingPages = override.MaxListingPages
	}
	if len(override.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range override.Headers {
			result.Headers[k] = v
		}
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = override.IgnorePatterns
	}

	return result
}

// Site is one harvest target with defaults applied.
type Site struct {
	Name            string
	BaseURL         string
	Seeds           []string
	MaxListingPages int
	Headers         map[string]string
	IgnorePatterns  []string
}

// Sites resolves the targets into sites.
//
// A target is a configured site name or an absolute http(s) listing URL.
// A URL target is harvested with the file defaults, its host as name and
// its origin as base URL. Without targets, every configured site is
// returned, ordered by name.
func (c *Config) Sites() ([]Site, error) {
	file := c.SiteConfigs
	if file == nil {
		file = &File{}
	}

	targets := c.Targets
	if len(targets) == 0 {
		targets = slices.Sorted(maps.Keys(file.Sites))
	}
	if len(targets) == 0 {
		return nil, ErrNoTarget
	}

	sites := make([]Site, 0, len(targets))
	seen := make(map[string]bool, len(targets))
	for _, target := range targets {
		target = strings.TrimSpace(target)

		site, err := c.resolveSite(file, target)
		if err != nil {
			return nil, err
		}
		if seen[site.Name] {
			continue
		}
		seen[site.Name] = true
		sites = append(sites, site)
	}

	return sites, nil
}

func (c *Config) resolveSite(file *File, target string) (Site, error) {
	if _, ok := file.Sites[target]; ok {
		sc := file.GetSiteConfig(target)
		if sc.BaseURL == "" {
			return Site{}, fmt.Errorf("%w: %s", ErrMissingBaseURL, target)
		}
		return c.newSite(target, sc), nil
	}

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Site{}, fmt.Errorf("%w: %q is neither a configured site nor an absolute http(s) URL", ErrUnknownSite, target)
	}

	sc := file.GetSiteConfig("")
	sc.BaseURL = u.Scheme + "://" + u.Host
	sc.Seeds = []string{target}
	return c.newSite(u.Host, sc), nil
}

func (c *Config) newSite(name string, sc SiteConfig) Site {
	seeds := sc.Seeds
	if len(seeds) == 0 {
		seeds = []string{sc.BaseURL}
	}

	maxPages := c.MaxListingPages
	if sc.MaxListingPages > 0 {
		maxPages = sc.MaxListingPages
	}

	return Site{
		Name:            name,
		BaseURL:         sc.BaseURL,
		Seeds:           slices.Clone(seeds),
		MaxListingPages: maxPages,
		Headers:         sc.Headers,
		IgnorePatterns:  sc.IgnorePatterns,
	}
}
