package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/phrasebook"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/sqlite"
)

const sampleCSV = `id,english,somali,italic
1,Hello,Salaan,N
2,Hi,Salaan,N
3,Water,Biyo,N
4,Bread,Rooti,Y
`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(NewFlags())
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand(NewFlags())
	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"build", "loadtest", "lookup", "publish"}, names)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func TestBuild_FromStdin(t *testing.T) {
	out, err := execute(t, sampleCSV, "build")
	require.NoError(t, err)

	ds, err := phrasebook.Decode(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 7, ds.Len())
	assert.Equal(t, "Hello", ds.Record(0).KeyPhrase.Phrase())
}

func TestBuild_ToFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "phrases.csv")
	outPath := filepath.Join(dir, "phrase-book.json")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))

	out, err := execute(t, "", "build", csvPath, "--out", outPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "["))
}

func TestBuild_BadRow(t *testing.T) {
	_, err := execute(t, "h\n1,Hello\n", "build")
	assert.ErrorContains(t, err, "line 2")
}

func writeDocument(t *testing.T) string {
	t.Helper()
	out, err := execute(t, sampleCSV, "build")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "phrase-book.json")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))
	return path
}

func TestLookup(t *testing.T) {
	path := writeDocument(t)

	out, err := execute(t, "", "lookup", "--data", path)
	require.NoError(t, err)
	assert.Equal(t, "English ⇄ Somali\n"+
		"Bread: _Rooti_\n"+
		"Hello (Hi): Salaan\n"+
		"Hi (Hello): Salaan\n"+
		"Water: Biyo\n", out)

	out, err = execute(t, "", "lookup", "ROO", "--lang", "somali", "--data", path)
	require.NoError(t, err)
	assert.Equal(t, "Somali ⇄ English\n_Rooti_: Bread\n", out)

	out, err = execute(t, "", "lookup", "zzz", "--data", path)
	require.NoError(t, err)
	assert.Equal(t, "English ⇄ Somali\nno matches\n", out)

	out, err = execute(t, "", "lookup", "--limit", "1", "--data", path)
	require.NoError(t, err)
	assert.Equal(t, "English ⇄ Somali\nBread: _Rooti_\n", out)
}

func TestLookup_Errors(t *testing.T) {
	_, err := execute(t, "", "lookup", "--lang", "french", "--data", "unused.json")
	assert.ErrorContains(t, err, "unknown language")

	_, err = execute(t, "", "lookup", "--data", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "phrase book load failed")
}

func TestSourceFor(t *testing.T) {
	assert.IsType(t, loader.HTTPSource{}, sourceFor("https://example.org/pb.json"))
	assert.IsType(t, loader.FileSource{}, sourceFor("data/phrase-book.json"))
}

func TestPublish_SQLite(t *testing.T) {
	dir := t.TempDir()
	docPath := writeDocument(t)
	dbPath := filepath.Join(dir, "phrasebook.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
source:
  kind: sqlite
  name: default
sqlite:
  path: `+dbPath+`
`), 0o644))

	_, err := execute(t, "", "publish", docPath, "--config", cfgPath)
	require.NoError(t, err)

	db, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	ds, err := loader.New(loader.NewSQLSource(db, "default"), loader.Options{}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, ds.Len())
}

func TestPublish_RejectsMalformedDocument(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Kind = config.SourceSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "pb.db")

	err := runPublish(context.Background(), cfg, []byte(`[{"keyPhrase":{"lang":"english","phrase":"x"}}]`))
	assert.ErrorContains(t, err, "refusing to publish")
}

func TestPublish_FileSourceIsNotPublishable(t *testing.T) {
	cfg := config.Default()
	err := runPublish(context.Background(), cfg, []byte(`[]`))
	assert.ErrorContains(t, err, `source kind "file" cannot be published to`)
}

func TestRender_PlainText(t *testing.T) {
	ds := phrasebook.NewDataset([]phrasebook.Entry{{
		KeyPhrase:     phrasebook.NewSomaliPhrase("Nabad", false),
		AltKeyPhrases: []phrasebook.Phrase{phrasebook.NewSomaliPhrase("Nabadeey", true)},
		ValuePhrases:  []phrasebook.Phrase{phrasebook.NewEnglishPhrase("Peace"), phrasebook.NewEnglishPhrase("Goodbye")},
	}})
	var buf bytes.Buffer
	q := phrasebook.InitialQuery().WithKeyLanguage(phrasebook.Somali)
	require.NoError(t, Render(&buf, q, ds.Records()))
	assert.Equal(t, "Somali ⇄ English\nNabad (_Nabadeey_): Peace; Goodbye\n", buf.String())
}
