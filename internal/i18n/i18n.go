// Package i18n serves the static display strings and the avatar catalogue.
package i18n

import (
	"embed"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

//go:embed data/*.toml
var dataFS embed.FS

// Strings is the fixed set of display strings of one language
type Strings struct {
	Title               string   `toml:"title" json:"title"`
	Subtitle            string   `toml:"subtitle" json:"subtitle"`
	Description         string   `toml:"description" json:"description"`
	GrowModel           string   `toml:"grow_model" json:"growModel"`
	CoacheeDescription  string   `toml:"coachee_description" json:"coacheeDescription"`
	BeforeYouStart      string   `toml:"before_you_start" json:"beforeYouStart"`
	BeforeYouStartItems []string `toml:"before_you_start_items" json:"beforeYouStartItems"`
	YourRole            string   `toml:"your_role" json:"yourRole"`
	YourRoleItems       []string `toml:"your_role_items" json:"yourRoleItems"`
	HowToUse            string   `toml:"how_to_use" json:"howToUse"`
	HowToUseSteps       []string `toml:"how_to_use_steps" json:"howToUseSteps"`
	WantToGetBetter     string   `toml:"want_to_get_better" json:"wantToGetBetter"`
	GetBetterQuestions  []string `toml:"get_better_questions" json:"getBetterQuestions"`
	ChatNow             string   `toml:"chat_now" json:"chatNow"`
	PageLanguage        string   `toml:"page_language" json:"pageLanguage"`
	AvatarLanguage      string   `toml:"avatar_language" json:"avatarLanguage"`
	AvatarIntro         string   `toml:"avatar_intro" json:"avatarIntro,omitempty"`
}

// Avatar is a selectable avatar identity
type Avatar struct {
	ID   string `toml:"avatar_id" json:"avatar_id"`
	Name string `toml:"name" json:"name"`
}

// Language is a selectable language option
type Language struct {
	Label string `toml:"label" json:"label"`
	Value string `toml:"value" json:"value"`
	Flag  string `toml:"flag" json:"flag,omitempty"`
}

// Catalog holds the read-only translation table and selection lists
type Catalog struct {
	DefaultLanguage string     `toml:"default_language" json:"defaultLanguage"`
	Avatars         []Avatar   `toml:"avatars" json:"avatars"`
	STTLanguages    []Language `toml:"stt_languages" json:"sttLanguages"`
	PageLanguages   []Language `toml:"page_languages" json:"pageLanguages"`

	translations map[string]Strings
}

// Load decodes the embedded catalogue and translation table
func Load() (*Catalog, error) {
	c := &Catalog{}
	if _, err := toml.DecodeFS(dataFS, "data/catalog.toml", c); err != nil {
		return nil, fmt.Errorf("error loading catalog: %w", err)
	}
	if _, err := toml.DecodeFS(dataFS, "data/translations.toml", &c.translations); err != nil {
		return nil, fmt.Errorf("error loading translations: %w", err)
	}
	if _, ok := c.translations[c.DefaultLanguage]; !ok {
		return nil, fmt.Errorf("no translations for default language %q", c.DefaultLanguage)
	}
	return c, nil
}

// Lookup returns the strings for lang, falling back to the default language.
// The second result is the language actually used.
func (c *Catalog) Lookup(lang string) (Strings, string) {
	if s, ok := c.translations[lang]; ok {
		return s, lang
	}
	return c.translations[c.DefaultLanguage], c.DefaultLanguage
}

// Intro returns the avatar introduction line for lang. Known languages without
// an introduction return "" so the knowledge base speaks first.
func (c *Catalog) Intro(lang string) string {
	s, _ := c.Lookup(lang)
	return s.AvatarIntro
}

// Languages lists the languages of the translation table
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.translations))
	for lang := range c.translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// HasAvatar reports whether id is one of the catalogue avatars
func (c *Catalog) HasAvatar(id string) bool {
	for _, a := range c.Avatars {
		if a.ID == id {
			return true
		}
	}
	return false
}
