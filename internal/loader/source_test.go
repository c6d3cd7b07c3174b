package loader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/sqlite"
)

func readAll(t *testing.T, src Source) string {
	t.Helper()
	rc, err := src.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phrase-book.json")
	require.NoError(t, os.WriteFile(path, []byte(testDocument), 0o644))

	src := FileSource{Path: path}
	assert.Equal(t, "file:"+path, src.Name())
	assert.Equal(t, testDocument, readAll(t, src))

	_, err := FileSource{Path: filepath.Join(dir, "missing.json")}.Open(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)
}

func TestHTTPSource_ConcurrentLoadsHitServerOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testDocument))
	}))
	defer srv.Close()

	l := New(HTTPSource{URL: srv.URL + "/phrase-book.json"}, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ds, err := l.Load(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 2, ds.Len())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPSource_Statuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	_, err := HTTPSource{URL: srv.URL + "/missing"}.Open(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)

	_, err = HTTPSource{URL: srv.URL + "/broken"}.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")

	l := New(HTTPSource{URL: srv.URL + "/broken"}, Options{})
	_, err = l.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrLoadFailed)
}

type memoryRedis struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryRedis) GetBytes(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.([]byte)
	return nil
}

func TestRedisSource(t *testing.T) {
	client := &memoryRedis{data: map[string][]byte{}}
	src := NewRedisSource(client, "phrasebook:document")
	assert.Equal(t, "redis:phrasebook:document", src.Name())

	_, err := src.Open(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)

	require.NoError(t, src.Publish(context.Background(), []byte(testDocument)))
	assert.Equal(t, testDocument, readAll(t, src))
}

func TestSQLSource(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	src := NewSQLSource(db, "default")
	require.NoError(t, src.EnsureSchema(ctx))
	require.NoError(t, src.EnsureSchema(ctx), "schema creation is idempotent")
	assert.Equal(t, "sql:default", src.Name())

	_, err = src.Open(ctx)
	assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)

	require.NoError(t, src.Publish(ctx, []byte(`[]`)))
	assert.Equal(t, `[]`, readAll(t, src))

	require.NoError(t, src.Publish(ctx, []byte(testDocument)))
	assert.Equal(t, testDocument, readAll(t, src))

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM phrase_books`).Scan(&rows))
	assert.Equal(t, 1, rows)

	ds, err := New(src, Options{}).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}
