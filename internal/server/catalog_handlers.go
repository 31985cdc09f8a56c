package server

import (
	"net/http"

	"github.com/longkey1/avcoach/internal/avatar"
	"github.com/longkey1/avcoach/internal/i18n"
)

type translationsResponse struct {
	Language string       `json:"language"`
	Strings  i18n.Strings `json:"strings"`
}

type catalogResponse struct {
	DefaultLanguage string             `json:"defaultLanguage"`
	Languages       []string           `json:"languages"`
	Avatars         []i18n.Avatar      `json:"avatars"`
	PageLanguages   []i18n.Language    `json:"pageLanguages"`
	STTLanguages    []i18n.Language    `json:"sttLanguages"`
	DefaultConfig   avatar.StartConfig `json:"defaultConfig"`
}

func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	strs, lang := s.catalog.Lookup(r.PathValue("lang"))
	writeJSON(w, http.StatusOK, translationsResponse{Language: lang, Strings: strs})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalogResponse{
		DefaultLanguage: s.catalog.DefaultLanguage,
		Languages:       s.catalog.Languages(),
		Avatars:         s.catalog.Avatars,
		PageLanguages:   s.catalog.PageLanguages,
		STTLanguages:    s.catalog.STTLanguages,
		DefaultConfig:   s.opts.DefaultSession,
	})
}
