package query

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/phrasebook"
)

func english(key string) phrasebook.Entry {
	return phrasebook.Entry{
		KeyPhrase:    phrasebook.NewEnglishPhrase(key),
		ValuePhrases: []phrasebook.Phrase{phrasebook.NewSomaliPhrase("x", false)},
	}
}

func somali(key string) phrasebook.Entry {
	return phrasebook.Entry{
		KeyPhrase:    phrasebook.NewSomaliPhrase(key, false),
		ValuePhrases: []phrasebook.Phrase{phrasebook.NewEnglishPhrase("x")},
	}
}

func ids(records []phrasebook.Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func q(lang phrasebook.Language, search string) phrasebook.Query {
	return phrasebook.Query{KeyLanguage: lang, Search: search}
}

func TestResults_SingleMatch(t *testing.T) {
	ds := phrasebook.NewDataset([]phrasebook.Entry{{
		KeyPhrase:    phrasebook.NewEnglishPhrase("Hello"),
		ValuePhrases: []phrasebook.Phrase{phrasebook.NewSomaliPhrase("Salaan", false)},
	}})

	got := Results(ds, q(phrasebook.English, "hel"))
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].ID)

	assert.Empty(t, Results(ds, q(phrasebook.Somali, "")), "no record is keyed in somali")
}

func TestResults_SortsByKeyPhrase(t *testing.T) {
	ds := phrasebook.NewDataset([]phrasebook.Entry{english("Banana"), english("Apple")})
	assert.Equal(t, []int{1, 0}, ids(Results(ds, q(phrasebook.English, ""))))
}

func TestResults_TiesKeepDatasetOrder(t *testing.T) {
	ds := phrasebook.NewDataset([]phrasebook.Entry{english("Cat"), english("Bat"), english("Cat")})
	assert.Equal(t, []int{1, 0, 2}, ids(Results(ds, q(phrasebook.English, "at"))))
}

func TestResults_CaseInsensitiveMatchCaseSensitiveSort(t *testing.T) {
	ds := phrasebook.NewDataset([]phrasebook.Entry{
		english("apple"),
		english("Zebra"),
		english("APPLE PIE"),
		somali("Tufaax"),
	})
	got := Results(ds, q(phrasebook.English, "ApPlE"))
	// Upper-case letters sort before lower-case ones.
	assert.Equal(t, []int{2, 0}, ids(got))
}

func TestResults_OnlyKeyPhraseIsSearched(t *testing.T) {
	ds := phrasebook.NewDataset([]phrasebook.Entry{{
		KeyPhrase:     phrasebook.NewEnglishPhrase("Circle"),
		AltKeyPhrases: []phrasebook.Phrase{phrasebook.NewEnglishPhrase("Round")},
		ValuePhrases:  []phrasebook.Phrase{phrasebook.NewSomaliPhrase("Goobo", false)},
	}})
	assert.Empty(t, Results(ds, q(phrasebook.English, "round")))
	assert.Empty(t, Results(ds, q(phrasebook.English, "goobo")))
	assert.Len(t, Results(ds, q(phrasebook.English, "circ")), 1)
}

func TestResults_UnknownLanguageIsEmpty(t *testing.T) {
	ds := phrasebook.NewDataset([]phrasebook.Entry{english("One"), somali("Kow")})
	got := Results(ds, q("french", ""))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResults_NilDataset(t *testing.T) {
	got := Results(nil, phrasebook.InitialQuery())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResults_DoesNotMutateDataset(t *testing.T) {
	ds := phrasebook.NewDataset([]phrasebook.Entry{english("b"), english("a"), english("c")})
	before := ds.Records()

	out := Results(ds, q(phrasebook.English, ""))
	out[0] = phrasebook.Record{ID: 42}

	assert.Equal(t, before, ds.Records())
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	ds := phrasebook.NewDataset([]phrasebook.Entry{english("b"), english("a")})
	in := ds.Records()
	_ = Apply(in, q(phrasebook.English, ""))
	assert.Equal(t, []int{0, 1}, ids(in))
}

func TestPage(t *testing.T) {
	ds := phrasebook.NewDataset([]phrasebook.Entry{english("a"), english("b"), english("c")})
	all := Results(ds, q(phrasebook.English, ""))
	assert.Len(t, Page(all, 0), 3)
	assert.Len(t, Page(all, 2), 2)
	assert.Len(t, Page(all, 10), 3)
}

// randomDataset builds a mixed-language dataset with plenty of duplicate
// keys so tie handling gets exercised.
func randomDataset(seed uint64, n int) *phrasebook.Dataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	syllables := []string{"ka", "Ba", "xi", "SA", "la", "an", "Dh", "oo"}
	entries := make([]phrasebook.Entry, n)
	for i := range entries {
		var b strings.Builder
		for j := 0; j < 1+rng.IntN(3); j++ {
			b.WriteString(syllables[rng.IntN(len(syllables))])
		}
		if rng.IntN(2) == 0 {
			entries[i] = english(b.String())
		} else {
			entries[i] = somali(b.String())
		}
	}
	return phrasebook.NewDataset(entries)
}

func TestResults_Properties(t *testing.T) {
	searches := []string{"", "a", "KA", "xi", "ba", "dhoo", "zz"}
	for seed := uint64(1); seed <= 20; seed++ {
		ds := randomDataset(seed, 200)
		for _, lang := range phrasebook.Languages {
			for _, search := range searches {
				query := q(lang, search)
				t.Run(fmt.Sprintf("seed=%d/%s/%q", seed, lang, search), func(t *testing.T) {
					got := Results(ds, query)
					needle := strings.ToLower(search)

					// filter correctness
					for _, r := range got {
						require.Equal(t, lang, r.KeyPhrase.Language())
						require.Contains(t, strings.ToLower(r.KeyPhrase.Phrase()), needle)
					}

					// completeness: each matching record exactly once
					seen := make(map[int]int)
					for _, r := range got {
						seen[r.ID]++
					}
					for r := range ds.All() {
						want := 0
						if Matches(r, query) {
							want = 1
						}
						require.Equal(t, want, seen[r.ID], "record %d", r.ID)
					}

					// sort correctness with stable ties
					for i := 1; i < len(got); i++ {
						a, b := got[i-1], got[i]
						c := strings.Compare(a.KeyPhrase.Phrase(), b.KeyPhrase.Phrase())
						require.LessOrEqual(t, c, 0)
						if c == 0 {
							require.Less(t, a.ID, b.ID)
						}
					}

					// idempotence
					assert.Equal(t, got, Results(ds, query))
					assert.Equal(t, got, Apply(got, query))
				})
			}
		}
	}
}
