package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings holds the content-level ingestion settings that operators tune
// more often than the environment: which senders count as digests and which
// generic keywords the enrichment output must never contain.
type Settings struct {
	SenderAllowlist   []string            `yaml:"senderAllowlist"`
	KeywordExclusions map[string][]string `yaml:"keywordExclusions"`
}

// DefaultSettings returns the allowlist shipped with the system and an empty
// exclusion set.
func DefaultSettings() Settings {
	return Settings{
		SenderAllowlist: []string{
			"Bloomberg",
			"WSJ",
			"Reuters",
			"Barron's",
			"Estadão",
			"Folha",
			"Business Insider",
			"Financial Times",
			"Topdown Charts",
			"Globo",
		},
		KeywordExclusions: map[string][]string{},
	}
}

// LoadSettings reads the YAML settings file at path. An empty path or a
// missing file yields the defaults; a present-but-malformed file is an error
// so typos do not silently drop the allowlist.
func LoadSettings(path string) (Settings, error) {
	if path == "" {
		return DefaultSettings(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return settings, nil
}

// SenderAllowed reports whether a display name matches any allowlisted
// sender, case-insensitively and by substring so "Bloomberg Media" passes.
func (s Settings) SenderAllowed(name string) bool {
	lower := strings.ToLower(name)
	for _, tag := range s.SenderAllowlist {
		if strings.Contains(lower, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

// AllExclusions flattens the categorized exclusion terms into one sorted
// list for prompt building and post-filtering.
func (s Settings) AllExclusions() []string {
	var all []string
	for _, terms := range s.KeywordExclusions {
		all = append(all, terms...)
	}
	sort.Strings(all)
	return all
}
