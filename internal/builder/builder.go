// Package builder turns the spreadsheet export of English/Somali phrase
// pairs into phrase-book entries. Each CSV row links one English phrase to
// one Somali phrase; linked phrases are gathered into buckets and every
// phrase in a bucket becomes the key of one entry.
package builder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/phrasebook"
)

const minColumns = 4

// Link is one CSV row: an English phrase and the Somali phrase it
// translates to.
type Link struct {
	Line    int
	English phrasebook.EnglishPhrase
	Somali  phrasebook.SomaliPhrase
}

// RowError reports a CSV row that could not be turned into a Link.
type RowError struct {
	Line int
	Msg  string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ReadLinks parses the CSV export. The first row is a header and is
// skipped. Columns are: an ignored leading column, English, Somali, and an
// italic flag that is "Y" when the Somali phrase is shown in italics.
func ReadLinks(r io.Reader) ([]Link, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var links []Link
	for row := 0; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		if row == 0 {
			continue
		}
		line, _ := cr.FieldPos(0)
		link, err := toLink(line, fields)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

func toLink(line int, fields []string) (Link, error) {
	if len(fields) < minColumns {
		return Link{}, &RowError{Line: line, Msg: fmt.Sprintf("expected %d columns, got %d", minColumns, len(fields))}
	}
	english, somali := fields[1], fields[2]
	if strings.TrimSpace(english) == "" {
		return Link{}, &RowError{Line: line, Msg: "english phrase is empty"}
	}
	if strings.TrimSpace(somali) == "" {
		return Link{}, &RowError{Line: line, Msg: "somali phrase is empty"}
	}
	return Link{
		Line:    line,
		English: phrasebook.NewEnglishPhrase(english),
		Somali:  phrasebook.NewSomaliPhrase(somali, fields[3] == "Y"),
	}, nil
}

// bucket is an insertion-ordered set of phrases.
type bucket struct {
	phrases []phrasebook.Phrase
	seen    map[phrasebook.Phrase]struct{}
}

func newBucket() *bucket {
	return &bucket{seen: make(map[phrasebook.Phrase]struct{})}
}

func (b *bucket) add(p phrasebook.Phrase) {
	if _, ok := b.seen[p]; ok {
		return
	}
	b.seen[p] = struct{}{}
	b.phrases = append(b.phrases, p)
}

// touches reports whether the bucket already holds a phrase with the same
// language and text as either side of the link. Italics are not compared.
func (b *bucket) touches(l Link) bool {
	return slices.ContainsFunc(b.phrases, func(p phrasebook.Phrase) bool {
		switch p.Language() {
		case phrasebook.English:
			return p.Phrase() == l.English.Phrase()
		case phrasebook.Somali:
			return p.Phrase() == l.Somali.Phrase()
		}
		return false
	})
}

// Group gathers linked phrases into buckets, as finely as possible, so that
// both phrases of a link share a bucket and every phrase lives in exactly
// one bucket. A link touching several buckets merges them into a new bucket
// placed at the end.
func Group(links []Link) [][]phrasebook.Phrase {
	var buckets []*bucket
	for _, l := range links {
		var target *bucket
		var rest []*bucket
		var hits []*bucket
		for _, b := range buckets {
			if b.touches(l) {
				hits = append(hits, b)
			} else {
				rest = append(rest, b)
			}
		}
		switch len(hits) {
		case 0:
			target = newBucket()
			buckets = append(buckets, target)
		case 1:
			target = hits[0]
		default:
			target = newBucket()
			for _, b := range hits {
				for _, p := range b.phrases {
					target.add(p)
				}
			}
			buckets = append(rest, target)
		}
		target.add(l.English)
		target.add(l.Somali)
	}

	out := make([][]phrasebook.Phrase, len(buckets))
	for i, b := range buckets {
		out[i] = b.phrases
	}
	return out
}

// Entries expands every bucket into one entry per phrase: the phrase is the
// key, other same-language phrases with different text are alternates and
// the other language's phrases are the values.
func Entries(buckets [][]phrasebook.Phrase) []phrasebook.Entry {
	var entries []phrasebook.Entry
	for _, b := range buckets {
		for _, key := range b {
			alt := []phrasebook.Phrase{}
			values := []phrasebook.Phrase{}
			for _, p := range b {
				switch {
				case p.Language() != key.Language():
					values = append(values, p)
				case p.Phrase() != key.Phrase():
					alt = append(alt, p)
				}
			}
			entries = append(entries, phrasebook.Entry{
				KeyPhrase:     key,
				AltKeyPhrases: alt,
				ValuePhrases:  values,
			})
		}
	}
	return entries
}

// Build reads the CSV export and returns the phrase-book entries.
func Build(r io.Reader) ([]phrasebook.Entry, error) {
	links, err := ReadLinks(r)
	if err != nil {
		return nil, err
	}
	return Entries(Group(links)), nil
}
