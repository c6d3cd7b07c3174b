package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/builder"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/phrasebook"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/logger"
)

func newBuildCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [csv]",
		Short: "Build the phrase-book JSON document from the CSV export",
		Long: `Reads the CSV export (from the file argument or stdin), groups linked
phrases and writes the phrase-book JSON document to stdout or --out.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runBuild(in, cmd.OutOrStdout(), flags.Out)
		},
	}
	cmd.Flags().StringVarP(&flags.Out, "out", "o", "", "write the document to this file instead of stdout")
	return cmd
}

func runBuild(in io.Reader, stdout io.Writer, out string) error {
	entries, err := builder.Build(in)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := phrasebook.Encode(&buf, entries); err != nil {
		return err
	}
	if _, err := phrasebook.Decode(bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("built document does not decode: %w", err)
	}

	logger.WithComponent("build").Info("phrase book built", "entries", len(entries))
	if out == "" {
		_, err = stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(out, buf.Bytes(), 0o644)
}
