package phrasebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/errors"
)

// MalformedRecordError describes every problem found in one record of the
// document, keyed by field path (for example "valuePhrases[1].lang").
type MalformedRecordError struct {
	Index  int
	Fields map[string]string
}

func (e *MalformedRecordError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("record %d: %s", e.Index, strings.Join(parts, "; "))
}

func (e *MalformedRecordError) Unwrap() error {
	return apperrors.ErrMalformedRecord
}

type rawPhrase struct {
	Lang   *string `json:"lang"`
	Phrase *string `json:"phrase"`
	Italic *bool   `json:"italic"`
}

type rawRecord struct {
	KeyPhrase     *rawPhrase   `json:"keyPhrase"`
	AltKeyPhrases []*rawPhrase `json:"altKeyPhrases"`
	ValuePhrases  []*rawPhrase `json:"valuePhrases"`
}

// Decode reads a phrase-book document: a JSON array of entries without ids
// or lower-cased forms. Records get their array position as id. Any
// malformed record fails the whole decode.
func Decode(r io.Reader) (*Dataset, error) {
	var raw []*rawRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", apperrors.ErrMalformedRecord)
		}
		return nil, fmt.Errorf("decoding phrase book: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decoding phrase book: unexpected data after document")
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: document is null", apperrors.ErrMalformedRecord)
	}

	entries := make([]Entry, 0, len(raw))
	for i, rr := range raw {
		entry, err := rr.toEntry(i)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return NewDataset(entries), nil
}

func (rr *rawRecord) toEntry(index int) (Entry, error) {
	errs := make(map[string]string)
	if rr == nil {
		errs["record"] = "record is null"
		return Entry{}, &MalformedRecordError{Index: index, Fields: errs}
	}

	entry := Entry{
		KeyPhrase:     rr.KeyPhrase.toPhrase("keyPhrase", errs),
		AltKeyPhrases: make([]Phrase, 0, len(rr.AltKeyPhrases)),
		ValuePhrases:  make([]Phrase, 0, len(rr.ValuePhrases)),
	}
	for i, p := range rr.AltKeyPhrases {
		entry.AltKeyPhrases = append(entry.AltKeyPhrases, p.toPhrase(fmt.Sprintf("altKeyPhrases[%d]", i), errs))
	}
	if len(rr.ValuePhrases) == 0 {
		errs["valuePhrases"] = "at least one value phrase is required"
	}
	for i, p := range rr.ValuePhrases {
		entry.ValuePhrases = append(entry.ValuePhrases, p.toPhrase(fmt.Sprintf("valuePhrases[%d]", i), errs))
	}

	if len(errs) > 0 {
		return Entry{}, &MalformedRecordError{Index: index, Fields: errs}
	}
	return entry, nil
}

func (p *rawPhrase) toPhrase(field string, errs map[string]string) Phrase {
	if p == nil {
		errs[field] = "phrase is required"
		return nil
	}
	ok := true
	if p.Phrase == nil || *p.Phrase == "" {
		errs[field+".phrase"] = "phrase text is required"
		ok = false
	}
	if p.Lang == nil {
		errs[field+".lang"] = "lang is required"
		return nil
	}
	switch Language(*p.Lang) {
	case Somali:
		if !ok {
			return nil
		}
		return NewSomaliPhrase(*p.Phrase, p.Italic != nil && *p.Italic)
	case English:
		if !ok {
			return nil
		}
		return NewEnglishPhrase(*p.Phrase)
	default:
		errs[field+".lang"] = fmt.Sprintf("unknown language %q", *p.Lang)
		return nil
	}
}
