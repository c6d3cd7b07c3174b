// Package cli implements the phrasebook command: building the phrase-book
// document from the spreadsheet export, looking phrases up from a terminal
// publishing a document to the configured store and load-testing a running
// server.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/logger"
)

// Flags holds the values of every command-line flag.
type Flags struct {
	LogLevel string

	Out string

	Data  string
	Lang  string
	Limit int

	ConfigFile string
}

func NewFlags() *Flags {
	return &Flags{LogLevel: "warn", Lang: "english"}
}

// NewRootCommand wires the subcommands onto a fresh root command.
func NewRootCommand(flags *Flags) *cobra.Command {
	root := &cobra.Command{
		Use:   "phrasebook",
		Short: "Somali/English phrase book tools",
		Long: `phrasebook builds, queries and publishes the Somali/English phrase book.

Examples:
  phrasebook build phrases.csv --out phrase-book.json
  phrasebook lookup water --data phrase-book.json
  phrasebook lookup biyo --lang somali --data https://example.org/phrase-book.json
  phrasebook publish phrase-book.json --config configs/development.yaml
  phrasebook loadtest --url http://localhost:8080 -c 20 --duration 1m`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logger.New(os.Stderr, flags.LogLevel, "text"))
		},
	}
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "log level: debug, info, warn, error")

	root.AddCommand(
		newBuildCommand(flags),
		newLookupCommand(flags),
		newPublishCommand(flags),
		newLoadTestCommand(),
	)
	return root
}
