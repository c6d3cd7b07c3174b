// Package phrasebook defines the bilingual Somali/English phrase-book data
// model: languages, phrases, records, the immutable Dataset and the Query a
// lookup is made with. It also decodes the phrase-book JSON document.
package phrasebook

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/errors"
)

// Language tags which side of the phrase book a phrase belongs to.
type Language string

const (
	Somali  Language = "somali"
	English Language = "english"
)

// Languages lists the supported languages in display order.
var Languages = []Language{English, Somali}

func (l Language) Valid() bool {
	return l == Somali || l == English
}

// Other returns the opposite language. An unrecognised language is returned
// unchanged.
func (l Language) Other() Language {
	switch l {
	case Somali:
		return English
	case English:
		return Somali
	default:
		return l
	}
}

// Display returns the human-readable label for the language.
func (l Language) Display() string {
	switch l {
	case Somali:
		return "Somali"
	case English:
		return "English"
	default:
		return string(l)
	}
}

func OtherLanguage(l Language) Language {
	return l.Other()
}

func DisplayLanguage(l Language) string {
	return l.Display()
}

// ParseLanguage accepts a language tag in any letter case.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: unknown language %q", apperrors.ErrInvalidInput, s)
	}
	return l, nil
}
