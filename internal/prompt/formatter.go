package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var builtinNames = []string{
	Chat, Creative, Informative, Casual, Professional,
	Translate, TranslateFrom, Summarize, Starters, StartersContext,
}

// Set holds the task prompts, built-ins overlaid with files from prompt directories
type Set struct {
	prompts map[string]*Prompt
	sources map[string]string
}

// LoadSet loads the built-in prompts and overrides each one with "<name>.toml"
// found in promptDirs. Later directories take precedence over earlier ones.
func LoadSet(promptDirs []string) (*Set, error) {
	s := &Set{
		prompts: make(map[string]*Prompt, len(builtinNames)),
		sources: make(map[string]string, len(builtinNames)),
	}

	for _, name := range builtinNames {
		p, err := loadDefault(name)
		if err != nil {
			return nil, err
		}
		s.prompts[name] = p
		s.sources[name] = "builtin"
	}

	for _, promptDir := range promptDirs {
		for _, name := range builtinNames {
			candidatePath := filepath.Join(promptDir, name+".toml")
			if _, err := os.Stat(candidatePath); err != nil {
				continue
			}
			p, err := LoadPrompt(candidatePath)
			if err != nil {
				return nil, fmt.Errorf("error loading prompt file %s: %w", candidatePath, err)
			}
			s.prompts[name] = p
			s.sources[name] = candidatePath
		}
	}

	return s, nil
}

// Names returns the task prompt names in a fixed order
func Names() []string {
	return append([]string(nil), builtinNames...)
}

// Source reports where the named prompt was loaded from ("builtin" or a file path)
func (s *Set) Source(name string) string {
	return s.sources[name]
}

// Render formats the named prompt, replacing {{key}} placeholders in both parts
func (s *Set) Render(name string, vars map[string]string) (string, string, error) {
	p, ok := s.prompts[name]
	if !ok {
		return "", "", fmt.Errorf("unknown prompt %q", name)
	}

	// One pass over each template: substituted values are never scanned for placeholders.
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	oldnew := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		oldnew = append(oldnew, "{{"+key+"}}", vars[key])
	}
	r := strings.NewReplacer(oldnew...)

	return strings.TrimSpace(r.Replace(p.System)), r.Replace(p.User), nil
}
