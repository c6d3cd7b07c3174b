package phrasebook

import (
	"encoding/json"
	"fmt"
	"io"
)

// Encode writes entries in the document format Decode reads.
func Encode(w io.Writer, entries []Entry) error {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if e.AltKeyPhrases == nil {
			e.AltKeyPhrases = []Phrase{}
		}
		if e.ValuePhrases == nil {
			e.ValuePhrases = []Phrase{}
		}
		out[i] = e
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding phrase book: %w", err)
	}
	return nil
}
