package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultLocators_Valid(t *testing.T) {
	require.NoError(t, DefaultLocators().Validate())
}

func TestLoadLocators_EmptyPathReturnsDefaults(t *testing.T) {
	loc, err := LoadLocators("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLocators(), loc)
}

func TestLoadLocators_OverlaysFile(t *testing.T) {
	path := writeFile(t, "locators.yaml", `
base_search_url: https://maps.example/search/
name:
  - by: css
    query: h1.title
  - by: xpath
    query: //h1
website_exclude:
  - maps.example
`)

	loc, err := LoadLocators(path)
	require.NoError(t, err)

	def := DefaultLocators()
	assert.Equal(t, "https://maps.example/search/", loc.BaseSearchURL)
	assert.Equal(t, []Locator{CSS("h1.title"), XPath("//h1")}, loc.Name)
	assert.Equal(t, []string{"maps.example"}, loc.WebsiteExclude)
	assert.Equal(t, def.Links, loc.Links)
	assert.Equal(t, def.PlaceMarker, loc.PlaceMarker)
}

func TestLoadLocators_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown strategy", body: "links:\n  - by: regex\n    query: a\n"},
		{name: "bad place pattern", body: "place_pattern: \"[unclosed\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLocators(writeFile(t, "locators.yaml", tt.body))
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadLocators(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestLocator_String(t *testing.T) {
	assert.Equal(t, "css:h1", CSS("h1").String())
	assert.Equal(t, "xpath://a", XPath("//a").String())
}
