// Package probe measures round trip latency to the telemetry API.
package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"time"

	"github.com/hytalede/statistics/internal/domain"
	"github.com/hytalede/statistics/pkg/log"
)

const (
	// DefaultAttempts is the number of samples taken per measurement.
	DefaultAttempts = 3
	// FailedSample marks an attempt that did not complete.
	FailedSample int64 = math.MaxInt64
)

// Prober issues sequential GET requests and reports the median round trip time.
type Prober struct {
	client *http.Client
}

func New(client *http.Client) *Prober {
	return &Prober{client: client}
}

// MedianLatency performs attempts GET requests against pingURL, each bounded by timeout, and
// returns the median in milliseconds. Failed attempts never abort the probe; when the median
// itself is a failed sample 0 is returned.
func (p *Prober) MedianLatency(ctx context.Context, pingURL string, timeout time.Duration, attempts int) int64 {
	attempts = max(1, attempts)
	samples := make([]int64, attempts)

	for attempt := range attempts {
		elapsed, errPing := p.ping(ctx, pingURL, timeout)
		if errPing != nil {
			slog.Warn("Ping measurement failed", slog.Int("attempt", attempt+1),
				slog.String("url", pingURL), log.ErrAttr(errPing))

			samples[attempt] = FailedSample

			continue
		}

		samples[attempt] = elapsed.Milliseconds()
	}

	return Median(samples)
}

func (p *Prober) ping(ctx context.Context, pingURL string, timeout time.Duration) (time.Duration, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, errReq := http.NewRequestWithContext(reqCtx, http.MethodGet, pingURL, nil)
	if errReq != nil {
		return 0, errors.Join(errReq, domain.ErrCreateRequest)
	}

	startTime := time.Now()

	resp, errResp := p.client.Do(req)
	if errResp != nil {
		return 0, errors.Join(errResp, domain.ErrNetwork)
	}

	defer log.Closer(resp.Body)

	if _, errDiscard := io.Copy(io.Discard, resp.Body); errDiscard != nil {
		return 0, errors.Join(errDiscard, domain.ErrNetwork)
	}

	return time.Since(startTime), nil
}

// Median sorts a copy of samples and returns the element at index len/2. For an even number of
// samples this is the upper of the two middle values; they are not averaged. A FailedSample
// median, meaning most attempts failed, yields 0.
func Median(samples []int64) int64 {
	if len(samples) == 0 {
		return 0
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	median := sorted[len(sorted)/2]
	if median == FailedSample {
		return 0
	}

	return median
}
