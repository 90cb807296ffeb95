package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

// CuratedFile is the on-disk list of editor-curated packages.
type CuratedFile struct {
	Packages []CuratedPackage `yaml:"packages"`
}

// CuratedPackage is one curated bundle. ID is stable across restarts so
// reseeding updates rather than duplicates.
type CuratedPackage struct {
	ID          string                 `yaml:"id"`
	Kind        model.PackageKind      `yaml:"kind"`
	Title       string                 `yaml:"title"`
	Description string                 `yaml:"description"`
	Category    string                 `yaml:"category"`
	Channels    []model.PackageChannel `yaml:"channels"`
}

// LoadCuratedPackages reads the curated package file. An empty path yields no packages.
func LoadCuratedPackages(path string) ([]CuratedPackage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curated packages: %w", err)
	}
	return ParseCuratedPackages(data)
}

// ParseCuratedPackages decodes and validates curated package YAML.
func ParseCuratedPackages(data []byte) ([]CuratedPackage, error) {
	var f CuratedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse curated packages: %w", err)
	}

	seen := make(map[string]bool, len(f.Packages))
	for i := range f.Packages {
		p := &f.Packages[i]
		if p.Kind == "" {
			p.Kind = model.KindPackage
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("curated package %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("curated package %q: duplicate id", p.ID)
		}
		seen[p.ID] = true
	}
	return f.Packages, nil
}

func (p *CuratedPackage) validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("id is required")
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("%s: title is required", p.ID)
	case !p.Kind.Valid():
		return fmt.Errorf("%s: unknown kind %q", p.ID, p.Kind)
	case len(p.Channels) == 0:
		return fmt.Errorf("%s: at least one channel is required", p.ID)
	}
	for _, ch := range p.Channels {
		if ch.ChannelID == "" {
			return fmt.Errorf("%s: channel without channel_id", p.ID)
		}
	}
	return nil
}
