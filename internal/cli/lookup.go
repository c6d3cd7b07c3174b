package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/phrasebook"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/query"
)

func newLookupCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup [search]",
		Short: "Look phrases up in a phrase-book document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := phrasebook.ParseLanguage(flags.Lang)
			if err != nil {
				return err
			}
			q := phrasebook.InitialQuery().WithKeyLanguage(lang)
			if len(args) == 1 {
				q = q.WithSearch(args[0])
			}

			ds, err := loader.New(sourceFor(flags.Data), loader.Options{}).Load(cmd.Context())
			if err != nil {
				return err
			}
			results := query.Results(ds, q)
			return Render(cmd.OutOrStdout(), q, query.Page(results, flags.Limit))
		},
	}
	cmd.Flags().StringVarP(&flags.Data, "data", "d", "data/phrase-book.json", "phrase-book document: a file path or an http(s) URL")
	cmd.Flags().StringVarP(&flags.Lang, "lang", "l", flags.Lang, "language to look up by: english or somali")
	cmd.Flags().IntVarP(&flags.Limit, "limit", "n", 0, "show at most this many results (0 shows all)")
	return cmd
}

func sourceFor(data string) loader.Source {
	if strings.HasPrefix(data, "http://") || strings.HasPrefix(data, "https://") {
		return loader.HTTPSource{URL: data}
	}
	return loader.FileSource{Path: data}
}

// Render prints the lookup direction followed by one line per record:
// the key phrase, alternate keys in parentheses, then the values. Italic
// phrases are wrapped in underscores.
func Render(w io.Writer, q phrasebook.Query, records []phrasebook.Record) error {
	if _, err := fmt.Fprintf(w, "%s ⇄ %s\n", q.KeyLanguage.Display(), q.KeyLanguage.Other().Display()); err != nil {
		return err
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no matches")
		return err
	}
	for _, r := range records {
		var b strings.Builder
		b.WriteString(styled(r.KeyPhrase))
		if len(r.AltKeyPhrases) > 0 {
			b.WriteString(" (")
			b.WriteString(joinStyled(r.AltKeyPhrases, ", "))
			b.WriteString(")")
		}
		b.WriteString(": ")
		b.WriteString(joinStyled(r.ValuePhrases, "; "))
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func styled(p phrasebook.Phrase) string {
	if phrasebook.IsItalic(p) {
		return "_" + p.Phrase() + "_"
	}
	return p.Phrase()
}

func joinStyled(phrases []phrasebook.Phrase, sep string) string {
	parts := make([]string, len(phrases))
	for i, p := range phrases {
		parts[i] = styled(p)
	}
	return strings.Join(parts, sep)
}
