// ABOUTME: Persona definition loading: system prompt, sampling temperature, marker vocabulary.
// ABOUTME: Loads TOML from disk or falls back to the embedded default persona.

package persona

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/2389/hearth-gateway/internal/marker"
)

//go:embed elf_therapist.toml
var defaultPersona []byte

// Persona bundles everything the session layer needs to drive a conversation:
// the fixed system instruction, the sampling temperature, and the validated
// marker vocabulary the backend was instructed to emit.
type Persona struct {
	Name         string  `toml:"name"`
	SystemPrompt string  `toml:"system_prompt"`
	Temperature  float64 `toml:"temperature"`

	// Markers maps marker names to their literal tags as they appear in the
	// raw stream, e.g. END_CHAT = "<END_CHAT>".
	Markers map[string]string `toml:"markers"`

	set *marker.Set
}

// Load reads a persona from the given TOML file. An empty path loads the
// embedded default persona. The marker table is validated here so a bad
// vocabulary fails at startup, not mid-stream.
func Load(path string) (*Persona, error) {
	data := defaultPersona
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading persona file: %w", err)
		}
	}
	return parse(data)
}

func parse(data []byte) (*Persona, error) {
	var p Persona
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing persona: %w", err)
	}

	if p.SystemPrompt == "" {
		return nil, fmt.Errorf("persona %q has no system prompt", p.Name)
	}

	markers := make([]marker.Marker, 0, len(p.Markers))
	for name, literal := range p.Markers {
		markers = append(markers, marker.Marker{Name: name, Literal: literal})
	}
	set, err := marker.NewSet(markers)
	if err != nil {
		return nil, fmt.Errorf("persona %q marker table: %w", p.Name, err)
	}
	p.set = set

	return &p, nil
}

// MarkerSet returns the validated scanner vocabulary for this persona.
func (p *Persona) MarkerSet() *marker.Set {
	return p.set
}
