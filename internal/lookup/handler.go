// Package lookup serves phrase-book lookups over HTTP. Each request builds
// its own Query, waits for the shared Dataset and runs the query engine
// against it.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/phrasebook"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/tracing"
)

const (
	PhrasesPath   = "/api/v1/phrases"
	LanguagesPath = "/api/v1/languages"

	unavailableMessage = "phrase book unavailable"
)

// DatasetLoader is satisfied by *loader.Loader.
type DatasetLoader interface {
	Load(ctx context.Context) (*phrasebook.Dataset, error)
}

type Options struct {
	// Tracker receives one event per served lookup; nil disables tracking.
	Tracker analytics.Tracker
	Metrics *metrics.Metrics
	// DefaultLimit applies when the request has no limit; zero means all
	// matches. MaxResults caps any limit.
	DefaultLimit int
	MaxResults   int
}

type Handler struct {
	loader DatasetLoader
	opts   Options
	logger *slog.Logger
}

func New(loader DatasetLoader, opts Options) *Handler {
	return &Handler{
		loader: loader,
		opts:   opts,
		logger: slog.Default().With("component", "lookup-handler"),
	}
}

// Response is the body of a phrases lookup. Total counts every match;
// Results may be cut short by the limit.
type Response struct {
	Query         phrasebook.Query    `json:"query"`
	KeyLanguage   string              `json:"keyLanguage"`
	ValueLanguage string              `json:"valueLanguage"`
	Total         int                 `json:"total"`
	Results       []phrasebook.Record `json:"results"`
}

// Direction describes the lookup direction for a key language.
type Direction struct {
	Key        phrasebook.Language `json:"key"`
	Value      phrasebook.Language `json:"value"`
	KeyLabel   string              `json:"keyLabel"`
	ValueLabel string              `json:"valueLabel"`
}

// Register mounts the lookup routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+PhrasesPath, h.Phrases)
	mux.HandleFunc("GET "+LanguagesPath, h.Languages)
}

func (h *Handler) Phrases(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := logger.RequestIDFromContext(r.Context())
	ctx, span := tracing.StartSpan(r.Context(), "lookup", requestID)
	defer span.End()
	log := logger.FromContext(ctx)

	q, limit, err := h.parseQuery(r)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	span.SetAttr("key_language", string(q.KeyLanguage))

	loadCtx, loadSpan := tracing.StartChildSpan(ctx, "dataset.load")
	ds, err := h.loader.Load(loadCtx)
	loadSpan.End()
	if err != nil {
		h.loadFailed(ctx, w, err)
		return
	}

	_, qSpan := tracing.StartChildSpan(ctx, "query.results")
	results := query.Results(ds, q)
	qSpan.SetAttr("matches", len(results))
	qSpan.End()

	resp := Response{
		Query:         q,
		KeyLanguage:   q.KeyLanguage.Display(),
		ValueLanguage: q.KeyLanguage.Other().Display(),
		Total:         len(results),
		Results:       query.Page(results, limit),
	}
	latency := time.Since(start)

	log.Debug("lookup served",
		"key_language", q.KeyLanguage,
		"search", q.Search,
		"total", resp.Total,
		"returned", len(resp.Results),
		"latency_ms", latency.Milliseconds(),
	)
	if m := h.opts.Metrics; m != nil {
		m.LookupsTotal.WithLabelValues(string(q.KeyLanguage)).Inc()
		m.LookupResults.Observe(float64(resp.Total))
	}
	if h.opts.Tracker != nil {
		h.opts.Tracker.Track(analytics.LookupEvent{
			KeyLanguage: string(q.KeyLanguage),
			Search:      q.Search,
			Returned:    len(resp.Results),
			LatencyMs:   latency.Milliseconds(),
			Timestamp:   time.Now().UTC(),
			RequestID:   requestID,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Languages reports the lookup direction for ?lang= (default English).
func (h *Handler) Languages(w http.ResponseWriter, r *http.Request) {
	lang := phrasebook.InitialQuery().KeyLanguage
	if raw := r.URL.Query().Get("lang"); raw != "" {
		parsed, err := phrasebook.ParseLanguage(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		lang = parsed
	}
	other := phrasebook.OtherLanguage(lang)
	h.writeJSON(w, http.StatusOK, Direction{
		Key:        lang,
		Value:      other,
		KeyLabel:   phrasebook.DisplayLanguage(lang),
		ValueLabel: phrasebook.DisplayLanguage(other),
	})
}

func (h *Handler) parseQuery(r *http.Request) (phrasebook.Query, int, error) {
	params := r.URL.Query()
	q := phrasebook.InitialQuery().WithSearch(params.Get("q"))

	if raw := params.Get("lang"); raw != "" {
		lang, err := phrasebook.ParseLanguage(raw)
		if err != nil {
			return q, 0, err
		}
		q = q.WithKeyLanguage(lang)
	}

	limit := h.opts.DefaultLimit
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"limit must be a positive integer, got %q", raw)
		}
		limit = n
	}
	if h.opts.MaxResults > 0 && (limit <= 0 || limit > h.opts.MaxResults) {
		limit = h.opts.MaxResults
	}
	return q, limit, nil
}

func (h *Handler) loadFailed(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)
	if ctx.Err() != nil && !errors.Is(err, apperrors.ErrLoadFailed) {
		// The caller stopped waiting; the load carries on for others.
		log.Warn("gave up waiting for phrase book", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "request timeout")
		return
	}
	log.Error("phrase book unavailable", "error", err)
	h.writeError(w, http.StatusServiceUnavailable, unavailableMessage)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
