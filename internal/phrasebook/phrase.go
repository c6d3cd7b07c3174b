package phrasebook

import (
	"encoding/json"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Phrase is one of SomaliPhrase or EnglishPhrase. The interface is sealed;
// switch on the concrete type to reach variant-specific data.
type Phrase interface {
	Language() Language
	// Phrase is the text as authored.
	Phrase() string
	// PhraseLower is Fold(Phrase()), computed once at construction.
	PhraseLower() string
	isPhrase()
}

// Fold lower-cases s with full Unicode case mapping. Load-time and
// query-time folding both go through here.
func Fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

type SomaliPhrase struct {
	text   string
	lower  string
	italic bool
}

func NewSomaliPhrase(text string, italic bool) SomaliPhrase {
	return SomaliPhrase{text: text, lower: Fold(text), italic: italic}
}

func (p SomaliPhrase) Language() Language  { return Somali }
func (p SomaliPhrase) Phrase() string      { return p.text }
func (p SomaliPhrase) PhraseLower() string { return p.lower }
func (SomaliPhrase) isPhrase()             {}

// Italic marks loanwords and other phrases rendered in italics.
func (p SomaliPhrase) Italic() bool { return p.italic }

func (p SomaliPhrase) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Lang   Language `json:"lang"`
		Phrase string   `json:"phrase"`
		Italic bool     `json:"italic"`
	}{Somali, p.text, p.italic})
}

type EnglishPhrase struct {
	text  string
	lower string
}

func NewEnglishPhrase(text string) EnglishPhrase {
	return EnglishPhrase{text: text, lower: Fold(text)}
}

func (p EnglishPhrase) Language() Language  { return English }
func (p EnglishPhrase) Phrase() string      { return p.text }
func (p EnglishPhrase) PhraseLower() string { return p.lower }
func (EnglishPhrase) isPhrase()             {}

func (p EnglishPhrase) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Lang   Language `json:"lang"`
		Phrase string   `json:"phrase"`
	}{English, p.text})
}

// IsItalic reports whether p should be styled as italic. Only Somali phrases
// carry the flag.
func IsItalic(p Phrase) bool {
	switch v := p.(type) {
	case SomaliPhrase:
		return v.italic
	case EnglishPhrase:
		return false
	default:
		return false
	}
}
