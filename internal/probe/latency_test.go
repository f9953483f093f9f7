package probe_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hytalede/statistics/internal/probe"
	"github.com/hytalede/statistics/pkg/httpio"
	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int64
		expected int64
	}{
		{"odd", []int64{50, 10, 30}, 30},
		{"even picks index len/2", []int64{50, 10}, 50},
		{"single", []int64{7}, 7},
		{"one failure", []int64{probe.FailedSample, 10, 30}, 30},
		{"majority failed", []int64{probe.FailedSample, 10, probe.FailedSample}, 0},
		{"all failed", []int64{probe.FailedSample, probe.FailedSample, probe.FailedSample}, 0},
		{"empty", nil, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, probe.Median(test.samples))
		})
	}
}

func TestMedianDoesNotModifyInput(t *testing.T) {
	samples := []int64{50, 10, 30}
	probe.Median(samples)
	require.Equal(t, []int64{50, 10, 30}, samples)
}

func TestMedianLatency(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			hits.Add(1)
		}

		_, _ = w.Write([]byte("pong"))
	}))
	defer server.Close()

	prober := probe.New(httpio.NewHTTPClient(time.Second))
	latency := prober.MedianLatency(t.Context(), server.URL+"/api/v1/ping", time.Second, probe.DefaultAttempts)

	require.GreaterOrEqual(t, latency, int64(0))
	require.Less(t, latency, int64(1000))
	require.Equal(t, int32(probe.DefaultAttempts), hits.Load())
}

func TestMedianLatencyAllFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := server.URL + "/api/v1/ping"
	server.Close()

	prober := probe.New(httpio.NewHTTPClient(time.Second))
	require.Equal(t, int64(0), prober.MedianLatency(t.Context(), url, time.Second, 3))
}

func TestMedianLatencyTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	prober := probe.New(httpio.NewHTTPClient(time.Second))

	start := time.Now()
	latency := prober.MedianLatency(t.Context(), server.URL, 50*time.Millisecond, 3)

	require.Equal(t, int64(0), latency)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestMedianLatencyMinimumOneAttempt(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	prober := probe.New(httpio.NewHTTPClient(time.Second))
	prober.MedianLatency(t.Context(), server.URL, time.Second, 0)

	require.Equal(t, int32(1), hits.Load())
}
