package loader

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/redis"
)

// Source fetches the raw phrase-book document. Implementations return
// apperrors.ErrSourceNotFound (wrapped) when the document does not exist.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Publisher stores a phrase-book document where a Source can later read it.
type Publisher interface {
	Publish(ctx context.Context, document []byte) error
}

// FileSource reads the document from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSourceNotFound, s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.Path, err)
	}
	return f, nil
}

// HTTPSource fetches the document as a static resource. Any status other
// than 200 is a failure.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) Name() string { return "http:" + s.URL }

func (s HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", s.URL, err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrSourceNotFound, s.URL)
		}
		return nil, fmt.Errorf("fetching %s: unexpected status %d", s.URL, resp.StatusCode)
	}
	return resp.Body, nil
}

type redisDocuments interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// RedisSource keeps the whole document under a single Redis key.
type RedisSource struct {
	client redisDocuments
	key    string
}

func NewRedisSource(client redisDocuments, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

func (s *RedisSource) Name() string { return "redis:" + s.key }

func (s *RedisSource) Open(ctx context.Context) (io.ReadCloser, error) {
	data, err := s.client.GetBytes(ctx, s.key)
	if pkgredis.IsNilError(err) {
		return nil, fmt.Errorf("%w: redis key %s", apperrors.ErrSourceNotFound, s.key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading redis key %s: %w", s.key, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Publish stores document without expiry.
func (s *RedisSource) Publish(ctx context.Context, document []byte) error {
	if err := s.client.Set(ctx, s.key, document, 0); err != nil {
		return fmt.Errorf("writing redis key %s: %w", s.key, err)
	}
	return nil
}

// SQLSource keeps named documents in the phrase_books table. The statements
// are portable between PostgreSQL (lib/pq) and SQLite (go-sqlite3).
type SQLSource struct {
	db   *sql.DB
	name string
}

const (
	createPhraseBooksSQL = `CREATE TABLE IF NOT EXISTS phrase_books (
	name       TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`
	selectPhraseBookSQL = `SELECT document FROM phrase_books WHERE name = $1`
	upsertPhraseBookSQL = `INSERT INTO phrase_books (name, document, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`
)

func NewSQLSource(db *sql.DB, name string) *SQLSource {
	return &SQLSource{db: db, name: name}
}

func (s *SQLSource) Name() string { return "sql:" + s.name }

// EnsureSchema creates the phrase_books table if it is missing.
func (s *SQLSource) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createPhraseBooksSQL); err != nil {
		return fmt.Errorf("creating phrase_books table: %w", err)
	}
	return nil
}

func (s *SQLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	var document string
	err := s.db.QueryRowContext(ctx, selectPhraseBookSQL, s.name).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: phrase book %q", apperrors.ErrSourceNotFound, s.name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying phrase book %q: %w", s.name, err)
	}
	return io.NopCloser(strings.NewReader(document)), nil
}

func (s *SQLSource) Publish(ctx context.Context, document []byte) error {
	_, err := s.db.ExecContext(ctx, upsertPhraseBookSQL, s.name, string(document), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storing phrase book %q: %w", s.name, err)
	}
	return nil
}
