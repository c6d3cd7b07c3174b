// Package loader fetches the phrase-book document once and shares the
// decoded Dataset with every caller. A Loader moves through
// uninitialized → loading → ready, or → failed when the fetch or decode
// fails. Concurrent callers during loading share the single in-flight fetch.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/phrasebook"
	apperrors "github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/resilience"
)

const flightKey = "phrase-book"

// State is the lifecycle phase of a Loader.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options tunes a Loader. The zero value keeps a failed load failed for the
// lifetime of the Loader and puts no deadline on the fetch.
type Options struct {
	// RetryOnFailure lets the next Load after a failure start a new fetch.
	RetryOnFailure bool
	// FetchTimeout bounds a single fetch-and-decode. Zero means no limit.
	FetchTimeout time.Duration
	// FetchAttempts is how many times one fetch may open the source before
	// giving up. Values below 2 disable retries. A missing document is
	// never retried.
	FetchAttempts int
	// RetryBackoff is the delay before the second attempt; later attempts
	// back off exponentially.
	RetryBackoff time.Duration
	Metrics      *metrics.Metrics
}

// Loader is a single-flight cache for the phrase book with permanent
// retention: once ready, every Load returns the same *Dataset.
type Loader struct {
	source  Source
	opts    Options
	group   singleflight.Group
	fetches atomic.Int64
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	dataset *phrasebook.Dataset
	err     error
}

func New(source Source, opts Options) *Loader {
	return &Loader{
		source: source,
		opts:   opts,
		logger: slog.Default().With("component", "dataset-loader", "source", source.Name()),
	}
}

// Load returns the phrase book, starting the fetch on first use. A caller
// whose ctx ends stops waiting and gets ctx.Err(); the fetch itself is not
// cancelled and its result is kept for later callers.
func (l *Loader) Load(ctx context.Context) (*phrasebook.Dataset, error) {
	if ds, done, err := l.settled(); done {
		return ds, err
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(flightKey, func() (any, error) {
		// A caller that saw the loader unsettled may only get here after
		// the previous flight finished.
		if ds, done, err := l.settled(); done {
			return ds, err
		}
		return l.fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*phrasebook.Dataset), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// State reports the current lifecycle phase.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the error of the last failed load, if any.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Fetches reports how many times the source has been fetched.
func (l *Loader) Fetches() int64 {
	return l.fetches.Load()
}

func (l *Loader) SourceName() string {
	return l.source.Name()
}

func (l *Loader) settled() (*phrasebook.Dataset, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateReady:
		return l.dataset, true, nil
	case StateFailed:
		if !l.opts.RetryOnFailure {
			return nil, true, l.err
		}
	}
	return nil, false, nil
}

func (l *Loader) fetch(ctx context.Context) (*phrasebook.Dataset, error) {
	l.mu.Lock()
	l.state = StateLoading
	l.mu.Unlock()

	attempt := l.fetches.Add(1)
	start := time.Now()
	l.logger.Info("loading phrase book", "attempt", attempt)

	ds, err := l.fetchAndDecode(ctx)
	elapsed := time.Since(start)

	l.mu.Lock()
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", apperrors.ErrLoadFailed, l.source.Name(), err)
		l.state = StateFailed
		l.err = err
	} else {
		l.state = StateReady
		l.dataset = ds
		l.err = nil
	}
	l.mu.Unlock()

	if m := l.opts.Metrics; m != nil {
		m.LoadDuration.Observe(elapsed.Seconds())
		if err != nil {
			m.LoadsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		} else {
			m.LoadsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
			m.DatasetRecords.Set(float64(ds.Len()))
		}
	}

	if err != nil {
		l.logger.Error("phrase book load failed",
			"attempt", attempt,
			"retry_on_failure", l.opts.RetryOnFailure,
			"latency_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return nil, err
	}
	l.logger.Info("phrase book loaded",
		"attempt", attempt,
		"records", ds.Len(),
		"latency_ms", elapsed.Milliseconds(),
	)
	return ds, nil
}

func (l *Loader) fetchAndDecode(ctx context.Context) (*phrasebook.Dataset, error) {
	if l.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.FetchTimeout)
		defer cancel()
	}
	var rc io.ReadCloser
	err := resilience.Retry(ctx, "open "+l.source.Name(), resilience.RetryConfig{
		MaxAttempts:    l.opts.FetchAttempts,
		InitialDelay:   l.opts.RetryBackoff,
		JitterFraction: 0.2,
		Retryable: func(err error) bool {
			return !errors.Is(err, apperrors.ErrSourceNotFound)
		},
	}, func(ctx context.Context) error {
		var err error
		rc, err = l.source.Open(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return phrasebook.Decode(rc)
}
