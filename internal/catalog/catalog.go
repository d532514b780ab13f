// Package catalog reads the static list of tradable instruments.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/efreitasn/stocksim/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default.json
var defaultCatalog []byte

// MaxVolatility is the largest accepted volatility percentage. Above it a
// single step could push a price below zero.
const MaxVolatility = 100

// Format selects the decoder used for a catalog document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

type record struct {
	Name       string  `json:"name" yaml:"name"`
	Value      float64 `json:"value" yaml:"value"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
}

// Default returns the embedded catalog.
func Default() ([]domain.CatalogEntry, error) {
	return Parse(defaultCatalog, FormatJSON)
}

// Load reads the catalog at path, choosing the format by extension
// (.yaml/.yml, anything else is JSON). An empty path returns Default.
func Load(path string) ([]domain.CatalogEntry, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}

	entries, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes and validates a catalog document. Record order is kept.
func Parse(data []byte, format Format) ([]domain.CatalogEntry, error) {
	var records []record
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}

	if len(records) == 0 {
		return nil, &domain.ValidationError{Message: "catalog must contain at least one instrument"}
	}

	seen := make(map[string]bool, len(records))
	entries := make([]domain.CatalogEntry, 0, len(records))
	for i, r := range records {
		if r.Name == "" {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("record %d: name is required", i)}
		}
		if seen[r.Name] {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("record %d: duplicate name %q", i, r.Name)}
		}
		seen[r.Name] = true

		if r.Value <= 0 {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("%s: value must be > 0", r.Name)}
		}
		value, err := domain.MoneyFromFloat(r.Value)
		if err != nil {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("%s: %v", r.Name, err)}
		}

		if r.Volatility < 0 || r.Volatility > MaxVolatility {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("%s: volatility must be between 0 and %d", r.Name, MaxVolatility),
			}
		}

		entries = append(entries, domain.CatalogEntry{
			Name:       r.Name,
			Value:      value,
			Volatility: r.Volatility,
		})
	}

	return entries, nil
}
