package ingest

import (
	"net/url"
	"strings"
)

// FilterRules is the configurable denylist consulted by the rendered
// fetcher for every subrequest a page issues.
type FilterRules struct {
	Suffixes   []string `mapstructure:"suffixes"`
	Substrings []string `mapstructure:"substrings"`
	Domains    []string `mapstructure:"domains"`
	Types      []string `mapstructure:"types"`
}

// protectedTypes can never be blocked by resource type: filtering them out
// wholesale would break SPA rendering or the data feed itself. Individual
// tracker endpoints of these types are still blockable by URL pattern.
var protectedTypes = map[ResourceType]struct{}{
	ResourceDocument: {},
	ResourceXHR:      {},
	ResourceFetch:    {},
	ResourceScript:   {},
}

// PatternFilter is the denylist ResourceFilter: path suffixes, URL
// substrings, domains (exact or *.wildcard), and resource types.
type PatternFilter struct {
	suffixes   []string
	substrings []string
	domains    *domainMatcher
	types      map[ResourceType]struct{}
}

// NewPatternFilter compiles the rule set. Protected resource types in the
// configured type list are ignored.
func NewPatternFilter(rules FilterRules) *PatternFilter {
	f := &PatternFilter{
		domains: newDomainMatcher(rules.Domains),
		types:   make(map[ResourceType]struct{}, len(rules.Types)),
	}
	for _, s := range rules.Suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			f.suffixes = append(f.suffixes, s)
		}
	}
	for _, s := range rules.Substrings {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			f.substrings = append(f.substrings, s)
		}
	}
	for _, t := range rules.Types {
		rt := ResourceType(strings.ToLower(strings.TrimSpace(t)))
		if _, protected := protectedTypes[rt]; protected || rt == "" {
			continue
		}
		f.types[rt] = struct{}{}
	}
	return f
}

// DefaultFilterRules blocks the usual page weight: media assets by suffix
// and type, plus well-known analytics and social tracker domains.
func DefaultFilterRules() FilterRules {
	return FilterRules{
		Suffixes: []string{
			".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
			".woff", ".woff2", ".ttf", ".mp4", ".webm",
		},
		Substrings: []string{},
		Domains: []string{
			"*.google-analytics.com",
			"*.googletagmanager.com",
			"*.doubleclick.net",
			"*.facebook.com",
			"*.facebook.net",
			"*.googlesyndication.com",
			"*.twitter.com",
			"*.linkedin.com",
		},
		Types: []string{"image", "media", "font", "stylesheet"},
	}
}

// Allow reports whether a subrequest may proceed. The document request is
// always allowed; everything else runs through the denylist.
func (f *PatternFilter) Allow(rawURL string, resourceType ResourceType) bool {
	if f == nil {
		return true
	}
	if resourceType == ResourceDocument {
		return true
	}
	if _, blocked := f.types[resourceType]; blocked {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	if f.domains.matches(parsed.Hostname()) {
		return false
	}
	lowered := strings.ToLower(rawURL)
	for _, sub := range f.substrings {
		if strings.Contains(lowered, sub) {
			return false
		}
	}
	path := strings.ToLower(parsed.Path)
	for _, suffix := range f.suffixes {
		if strings.HasSuffix(path, suffix) {
			return false
		}
	}
	return true
}

// domainMatcher holds exact hosts and suffix wildcards.
type domainMatcher struct {
	exact    map[string]struct{}
	suffixes []string
}

func newDomainMatcher(patterns []string) *domainMatcher {
	m := &domainMatcher{exact: make(map[string]struct{})}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(value, "*."):
			m.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			m.addSuffix(strings.TrimPrefix(value, "."))
		default:
			m.exact[value] = struct{}{}
		}
	}
	return m
}

func (m *domainMatcher) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range m.suffixes {
		if existing == suffix {
			return
		}
	}
	m.suffixes = append(m.suffixes, suffix)
}

func (m *domainMatcher) matches(host string) bool {
	if m == nil {
		return false
	}
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return false
	}
	if _, ok := m.exact[host]; ok {
		return true
	}
	for _, suffix := range m.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}
