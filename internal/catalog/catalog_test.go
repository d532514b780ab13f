package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	entries, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	names := make(map[string]bool)
	for _, e := range entries {
		assert.False(t, names[e.Name], "duplicate %s", e.Name)
		names[e.Name] = true
		assert.Equal(t, 1, e.Value.Sign(), "%s value must be positive", e.Name)
	}
}

func TestParse_JSON(t *testing.T) {
	entries, err := Parse([]byte(`[{"name":"AAA","value":100,"volatility":0},{"name":"BBB","value":12.5,"volatility":3}]`), FormatJSON)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "AAA", entries[0].Name)
	assert.Equal(t, "100.00", entries[0].Value.String())
	assert.Equal(t, 0.0, entries[0].Volatility)
	assert.Equal(t, "BBB", entries[1].Name)
	assert.Equal(t, "12.50", entries[1].Value.String())
	assert.Equal(t, 3.0, entries[1].Volatility)
}

func TestParse_YAML(t *testing.T) {
	doc := `
- name: AAA
  value: 100.00
  volatility: 0
- name: CCC
  value: 7.25
  volatility: 1.5
`
	entries, err := Parse([]byte(doc), FormatYAML)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "CCC", entries[1].Name)
	assert.Equal(t, "7.25", entries[1].Value.String())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `[]`},
		{"malformed", `{`},
		{"unknown field", `[{"name":"AAA","value":1,"volatility":0,"sector":"x"}]`},
		{"missing name", `[{"value":1,"volatility":0}]`},
		{"duplicate", `[{"name":"AAA","value":1,"volatility":0},{"name":"AAA","value":2,"volatility":0}]`},
		{"zero value", `[{"name":"AAA","value":0,"volatility":0}]`},
		{"excess precision", `[{"name":"AAA","value":1.234,"volatility":0}]`},
		{"negative volatility", `[{"name":"AAA","value":1,"volatility":-1}]`},
		{"volatility above 100", `[{"name":"AAA","value":1,"volatility":101}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatJSON)
			assert.Error(t, err)
		})
	}
}

func TestParse_ValidationErrorType(t *testing.T) {
	_, err := Parse([]byte(`[]`), FormatJSON)
	var validationErr *domain.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "stocks.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- name: AAA\n  value: 1\n  volatility: 0\n"), 0o600))
	entries, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "AAA", entries[0].Name)

	jsonPath := filepath.Join(dir, "stocks.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"name":"BBB","value":2,"volatility":0}]`), 0o600))
	entries, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "BBB", entries[0].Name)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	entries, err := Load("")
	require.NoError(t, err)

	def, err := Default()
	require.NoError(t, err)
	assert.Equal(t, len(def), len(entries))
}
