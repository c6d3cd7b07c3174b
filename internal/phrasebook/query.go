package phrasebook

// Query is what the user is looking up: the language they search by and the
// raw text typed into the search box. Queries are values; each change makes
// a new one.
type Query struct {
	KeyLanguage Language `json:"keyLanguage"`
	Search      string   `json:"search"`
}

// InitialQuery is the query a fresh lookup view starts with.
func InitialQuery() Query {
	return Query{KeyLanguage: English, Search: ""}
}

func (q Query) WithSearch(search string) Query {
	q.Search = search
	return q
}

func (q Query) WithKeyLanguage(l Language) Query {
	q.KeyLanguage = l
	return q
}

// Toggled flips the lookup direction and keeps the search text.
func (q Query) Toggled() Query {
	q.KeyLanguage = q.KeyLanguage.Other()
	return q
}
