// Package query filters and orders phrase-book records for a lookup.
// Everything here is pure: no I/O, no shared state, and inputs are never
// modified.
package query

import (
	"iter"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/phrasebook"
)

// Results returns the records of ds whose key phrase is in q.KeyLanguage and
// contains q.Search (case-insensitively), sorted by key phrase. Records with
// equal key phrases keep their dataset order.
func Results(ds *phrasebook.Dataset, q phrasebook.Query) []phrasebook.Record {
	return run(ds.All(), q)
}

// Apply runs the same filter and sort over an arbitrary record list.
func Apply(records []phrasebook.Record, q phrasebook.Query) []phrasebook.Record {
	return run(slices.Values(records), q)
}

// Matches reports whether r passes the filter for q. Only the key phrase is
// considered; alternate keys and values are display-only.
func Matches(r phrasebook.Record, q phrasebook.Query) bool {
	return matches(r, q.KeyLanguage, phrasebook.Fold(q.Search))
}

// Page trims results to at most limit records. A limit of zero or less keeps
// everything.
func Page(records []phrasebook.Record, limit int) []phrasebook.Record {
	if limit <= 0 || len(records) <= limit {
		return records
	}
	return records[:limit]
}

func run(records iter.Seq[phrasebook.Record], q phrasebook.Query) []phrasebook.Record {
	needle := phrasebook.Fold(q.Search)
	out := make([]phrasebook.Record, 0)
	for r := range records {
		if matches(r, q.KeyLanguage, needle) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, compareKeys)
	return out
}

func matches(r phrasebook.Record, lang phrasebook.Language, needle string) bool {
	if r.KeyPhrase == nil || r.KeyPhrase.Language() != lang {
		return false
	}
	return strings.Contains(r.KeyPhrase.PhraseLower(), needle)
}

// compareKeys orders by the key phrase as authored, ordinally and
// case-sensitively.
func compareKeys(a, b phrasebook.Record) int {
	return strings.Compare(a.KeyPhrase.Phrase(), b.KeyPhrase.Phrase())
}
