package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/lookup"
)

// lookupMix is the rotation of (lang, search) pairs each worker cycles through.
var lookupMix = [][2]string{
	{"english", ""},
	{"english", "w"},
	{"english", "tha"},
	{"english", "good"},
	{"english", "where"},
	{"somali", ""},
	{"somali", "b"},
	{"somali", "maha"},
	{"somali", "nab"},
	{"somali", "xageed"},
}

type LoadTestConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
}

// LoadStats collects per-request outcomes from every worker.
type LoadStats struct {
	mu          sync.Mutex
	total       int
	errors      int
	latencies   []time.Duration
	statusCodes map[int]int
}

func newLoadStats() *LoadStats {
	return &LoadStats{statusCodes: make(map[int]int)}
}

func (s *LoadStats) record(d time.Duration, status int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if err != nil {
		s.errors++
		return
	}
	if status < 200 || status >= 300 {
		s.errors++
	}
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
}

func newLoadTestCommand() *cobra.Command {
	cfg := LoadTestConfig{BaseURL: "http://localhost:8080", Concurrency: 10, Duration: 30 * time.Second}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Hammer a running server's lookup endpoint and report latencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Concurrency < 1 {
				return errors.New("concurrency must be at least 1")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Target:      %s\nConcurrency: %d\nDuration:    %s\n\n", cfg.BaseURL, cfg.Concurrency, cfg.Duration)
			stats := RunLoadTest(cmd.Context(), cfg)
			return stats.Report(out, cfg.Duration)
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the phrase-book server")
	cmd.Flags().IntVarP(&cfg.Concurrency, "concurrency", "c", cfg.Concurrency, "number of concurrent workers")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", cfg.Duration, "how long to run")
	return cmd
}

// RunLoadTest issues lookups from cfg.Concurrency workers until cfg.Duration
// elapses or ctx ends.
func RunLoadTest(ctx context.Context, cfg LoadTestConfig) *LoadStats {
	stats := newLoadStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := range cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; ctx.Err() == nil; i++ {
				pair := lookupMix[i%len(lookupMix)]
				target := fmt.Sprintf("%s%s?lang=%s&q=%s&limit=20",
					cfg.BaseURL, lookup.PhrasesPath, pair[0], url.QueryEscape(pair[1]))

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats.record(0, 0, err)
					return
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.record(elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(elapsed, resp.StatusCode, nil)
			}
		}()
	}
	wg.Wait()
	return stats
}

// Report writes totals, latency percentiles and status-code counts. It
// fails when no request completed.
func (s *LoadStats) Report(w io.Writer, elapsed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", s.total)
	fmt.Fprintf(w, "Successful:      %d\n", s.total-s.errors)
	fmt.Fprintf(w, "Errors:          %d\n", s.errors)
	if s.total == 0 {
		return errors.New("no requests completed; is the server running?")
	}
	fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(s.errors)/float64(s.total)*100)
	fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(s.total)/elapsed.Seconds())

	if len(s.latencies) > 0 {
		latencies := slices.Clone(s.latencies)
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Fprintln(w, "\n=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", avg)
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(w, "P%-2.0f:    %s\n", p, latencyPercentile(latencies, p))
		}
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Fprintln(w, "\n=== Status Codes ===")
	codes := make([]int, 0, len(s.statusCodes))
	for code := range s.statusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.statusCodes[code])
	}
	return nil
}

func latencyPercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
