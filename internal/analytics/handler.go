package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/logger"
)

// Handler serves the aggregated lookup statistics.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats writes the current Stats. The optional top parameter (1 to
// topSearchesLimit) trims both search rankings.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := topSearchesLimit
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > topSearchesLimit {
			appErr := apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"top must be an integer between 1 and %d", topSearchesLimit)
			logger.FromContext(r.Context()).Debug("rejected analytics request", "top", v, "error", appErr)
			h.writeJSON(w, apperrors.HTTPStatusCode(appErr), map[string]string{"error": appErr.Message})
			return
		}
		top = n
	}

	stats := h.aggregator.Stats()
	stats.TopSearches = stats.TopSearches[:min(top, len(stats.TopSearches))]
	stats.ZeroResultSearches = stats.ZeroResultSearches[:min(top, len(stats.ZeroResultSearches))]

	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
