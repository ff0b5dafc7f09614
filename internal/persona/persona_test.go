// ABOUTME: Tests for persona loading and marker vocabulary validation.
// ABOUTME: Covers the embedded default, on-disk overrides, and fail-fast errors.

package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDefault(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "elf-therapist", p.Name)
	assert.InDelta(t, 0.7, p.Temperature, 0.001)
	assert.Contains(t, p.SystemPrompt, "Elf Therapist")
	assert.Len(t, p.Markers, 5)

	set := p.MarkerSet()
	require.NotNil(t, set)
	_, found, _ := set.Scan("bye<END_CHAT>", "")
	require.Len(t, found, 1)
	assert.Equal(t, "END_CHAT", found[0].Name)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.toml")
	content := `
name = "minimal"
temperature = 0.2
system_prompt = "Be brief."

[markers]
DONE = "<DONE>"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", p.Name)
	assert.Equal(t, "Be brief.", p.SystemPrompt)
	assert.Len(t, p.Markers, 1)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_EmptyMarkerTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.toml")
	content := `
name = "bad"
system_prompt = "hi"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marker table")
}

func TestLoad_MissingPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.toml")
	content := `
name = "bad"

[markers]
DONE = "<DONE>"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system prompt")
}
