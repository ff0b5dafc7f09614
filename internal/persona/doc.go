// Package persona loads character definitions from TOML files.
//
// # Overview
//
// A persona bundles the fixed system prompt, the sampling temperature,
// and the marker table the character is instructed to emit. A default
// persona is embedded in the binary; Load("") returns it, and
// Load(path) reads a TOML file of the same shape:
//
//	name = "Elf Therapist"
//	system_prompt = """..."""
//	temperature = 0.7
//
//	[markers]
//	END_CHAT = "<END_CHAT>"
//	EMOTE_CALM = "<EMOTE_CALM>"
//
// The marker set is compiled at load time, so a bad table fails fast at
// startup rather than mid-conversation.
package persona
