package analytics

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/phrasebook"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	topSearchesLimit  = 10
)

type Stats struct {
	TotalLookups       int64            `json:"total_lookups"`
	ByKeyLanguage      map[string]int64 `json:"by_key_language"`
	ZeroResultCount    int64            `json:"zero_result_count"`
	AvgLatencyMs       float64          `json:"avg_latency_ms"`
	P50LatencyMs       int64            `json:"p50_latency_ms"`
	P95LatencyMs       int64            `json:"p95_latency_ms"`
	P99LatencyMs       int64            `json:"p99_latency_ms"`
	TopSearches        []SearchCount    `json:"top_searches"`
	ZeroResultSearches []SearchCount    `json:"zero_result_searches"`
	LookupsPerMinute   float64          `json:"lookups_per_minute"`
}

type SearchCount struct {
	Search string `json:"search"`
	Count  int64  `json:"count"`
}

// Aggregator keeps running lookup statistics. Latency percentiles cover the
// most recent samples only.
type Aggregator struct {
	mu           sync.RWMutex
	total        int64
	zeroResults  int64
	byLanguage   map[string]int64
	latencies    []int64
	next         int
	searchCounts map[string]int64
	zeroSearches map[string]int64
	startTime    time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byLanguage:   make(map[string]int64),
		latencies:    make([]int64, 0, 1024),
		searchCounts: make(map[string]int64),
		zeroSearches: make(map[string]int64),
		startTime:    time.Now(),
	}
}

// Record folds one event into the statistics. Searches are counted
// case-insensitively; empty searches count towards totals only.
func (a *Aggregator) Record(event LookupEvent) {
	search := phrasebook.Fold(strings.TrimSpace(event.Search))

	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.byLanguage[event.KeyLanguage]++
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	if event.Returned == 0 {
		a.zeroResults++
	}
	if search == "" {
		return
	}
	a.searchCounts[search]++
	if event.Returned == 0 {
		a.zeroSearches[search]++
	}
}

// HandleEvent adapts the aggregator to a Kafka consumer. Undecodable
// messages are logged by the consumer and left uncommitted.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(_ context.Context, _, value []byte) error {
		event, err := kafka.DecodeJSON[LookupEvent](value)
		if err != nil {
			return err
		}
		agg.Record(event)
		return nil
	}
}

// DirectPublisher feeds events straight into an aggregator when no Kafka
// brokers are configured.
type DirectPublisher struct {
	Aggregator *Aggregator
}

func (d DirectPublisher) Publish(_ context.Context, events ...kafka.Event) error {
	for _, e := range events {
		if event, ok := e.Value.(LookupEvent); ok {
			d.Aggregator.Record(event)
		}
	}
	return nil
}

func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		TotalLookups:    a.total,
		ByKeyLanguage:   make(map[string]int64, len(a.byLanguage)),
		ZeroResultCount: a.zeroResults,
	}
	for lang, n := range a.byLanguage {
		stats.ByKeyLanguage[lang] = n
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopSearches = topN(a.searchCounts, topSearchesLimit)
	stats.ZeroResultSearches = topN(a.zeroSearches, topSearchesLimit)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.LookupsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then search ascending.
func topN(counts map[string]int64, n int) []SearchCount {
	result := make([]SearchCount, 0, len(counts))
	for search, count := range counts {
		result = append(result, SearchCount{Search: search, Count: count})
	}
	slices.SortFunc(result, func(x, y SearchCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return strings.Compare(x.Search, y.Search)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
