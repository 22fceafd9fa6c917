// Package config loads coherency suite configuration from YAML or
// JSON files. Decoding is strict: unknown fields are an error rather
// than silently dropped.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"github.com/goccy/go-yaml"
)

// Prompt is one entry of a coherency prompt suite.
type Prompt struct {
	ID     string `yaml:"id" json:"id"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// Suite is a coherency test configuration: an ordered prompt list
// plus optional sub-provider ignore patterns.
type Suite struct {
	Prompts            []Prompt `yaml:"prompts" json:"prompts"`
	IgnoreSubproviders []string `yaml:"ignore_subproviders,omitempty" json:"ignore_subproviders,omitempty"`
}

// Validate checks the structural invariants of a loaded suite.
func (s *Suite) Validate() error {
	if len(s.Prompts) == 0 {
		return fmt.Errorf("suite has no prompts")
	}
	seen := map[string]bool{}
	for i, p := range s.Prompts {
		if p.ID == "" {
			return fmt.Errorf("prompt %d has no id", i)
		}
		if p.Prompt == "" {
			return fmt.Errorf("prompt %q has no text", p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate prompt id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// ParseFile loads a Suite from a file. The extension selects the
// format (JSON or YAML).
func ParseFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSON(data)
	case ".yml", ".yaml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// ParseYAML loads a Suite from YAML.
func ParseYAML(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.UnmarshalWithOptions(data, &suite, yaml.Strict()); err != nil {
		return nil, err
	}
	if err := suite.Validate(); err != nil {
		return nil, err
	}
	return &suite, nil
}

// ParseJSON loads a Suite from JSON.
func ParseJSON(data []byte) (*Suite, error) {
	var suite Suite
	if err := json.Unmarshal(data, &suite); err != nil {
		return nil, err
	}
	if err := suite.Validate(); err != nil {
		return nil, err
	}
	return &suite, nil
}

// DiscoverSuites expands a `**`-style glob pattern into the sorted
// list of matching suite files. A plain path with no glob characters
// is returned as-is when the file exists.
func DiscoverSuites(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		if _, err := os.Stat(pattern); err != nil {
			return nil, err
		}
		return []string{pattern}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid suite pattern %q: %w", pattern, err)
	}
	var suites []string
	for _, match := range matches {
		switch strings.ToLower(filepath.Ext(match)) {
		case ".json", ".yml", ".yaml":
			suites = append(suites, match)
		}
	}
	if len(suites) == 0 {
		return nil, fmt.Errorf("no suite files match %q", pattern)
	}
	return suites, nil
}

// IgnoreSet matches sub-provider names against compiled glob
// patterns. Matching is case-insensitive.
type IgnoreSet struct {
	globs []glob.Glob
}

// CompileIgnoreSet compiles ignore patterns. An empty pattern list
// yields a set that matches nothing.
func CompileIgnoreSet(patterns []string) (*IgnoreSet, error) {
	set := &IgnoreSet{}
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		set.globs = append(set.globs, g)
	}
	return set, nil
}

// Match reports whether the name matches any ignore pattern.
func (s *IgnoreSet) Match(name string) bool {
	if s == nil {
		return false
	}
	lowered := strings.ToLower(name)
	for _, g := range s.globs {
		if g.Match(lowered) {
			return true
		}
	}
	return false
}

// Filter returns the names that do not match any ignore pattern,
// preserving order.
func (s *IgnoreSet) Filter(names []string) []string {
	if s == nil || len(s.globs) == 0 {
		return names
	}
	var kept []string
	for _, name := range names {
		if !s.Match(name) {
			kept = append(kept, name)
		}
	}
	return kept
}
