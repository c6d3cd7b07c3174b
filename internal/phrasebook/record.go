package phrasebook

import (
	"iter"
	"slices"
)

// Entry is one element of the phrase-book document: a record before an id
// has been assigned.
type Entry struct {
	KeyPhrase     Phrase   `json:"keyPhrase"`
	AltKeyPhrases []Phrase `json:"altKeyPhrases"`
	ValuePhrases  []Phrase `json:"valuePhrases"`
}

// Record is a dictionary entry. ID is the entry's position in the source
// document and is stable for the lifetime of the Dataset.
type Record struct {
	ID            int      `json:"id"`
	KeyPhrase     Phrase   `json:"keyPhrase"`
	AltKeyPhrases []Phrase `json:"altKeyPhrases"`
	ValuePhrases  []Phrase `json:"valuePhrases"`
}

// Dataset is the loaded phrase book. It is never modified after
// construction, so it can be shared freely between goroutines. Callers must
// treat the phrase slices of returned records as read-only.
type Dataset struct {
	records []Record
}

// NewDataset assigns ids 0..n-1 in entry order.
func NewDataset(entries []Entry) *Dataset {
	records := make([]Record, len(entries))
	for i, e := range entries {
		alt := slices.Clone(e.AltKeyPhrases)
		if alt == nil {
			alt = []Phrase{}
		}
		records[i] = Record{
			ID:            i,
			KeyPhrase:     e.KeyPhrase,
			AltKeyPhrases: alt,
			ValuePhrases:  slices.Clone(e.ValuePhrases),
		}
	}
	return &Dataset{records: records}
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

func (d *Dataset) Record(id int) Record {
	return d.records[id]
}

// All yields the records in id order.
func (d *Dataset) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		if d == nil {
			return
		}
		for _, r := range d.records {
			if !yield(r) {
				return
			}
		}
	}
}

// Records returns a copy of the record list.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	return slices.Clone(d.records)
}
