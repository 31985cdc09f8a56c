package prompt

import (
	"embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

//go:embed defaults/*.toml
var defaultFS embed.FS

// Template names used by the completion service
const (
	Chat            = "chat"
	Creative        = "creative"
	Informative     = "informative"
	Casual          = "casual"
	Professional    = "professional"
	Translate       = "translate"
	TranslateFrom   = "translate_from"
	Summarize       = "summarize"
	Starters        = "starters"
	StartersContext = "starters_context"
)

// Prompt represents the structure of a TOML prompt file
type Prompt struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

// LoadPrompt loads a prompt file and returns its contents
func LoadPrompt(filePath string) (*Prompt, error) {
	var prompt Prompt
	if _, err := toml.DecodeFile(filePath, &prompt); err != nil {
		return nil, fmt.Errorf("error decoding prompt file: %v", err)
	}
	return &prompt, nil
}

func loadDefault(name string) (*Prompt, error) {
	data, err := defaultFS.ReadFile("defaults/" + name + ".toml")
	if err != nil {
		return nil, fmt.Errorf("no built-in prompt %q: %w", name, err)
	}
	var prompt Prompt
	if err := toml.Unmarshal(data, &prompt); err != nil {
		return nil, fmt.Errorf("error decoding built-in prompt %q: %v", name, err)
	}
	return &prompt, nil
}
