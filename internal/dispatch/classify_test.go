package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/hytalede/statistics/internal/dispatch"
	"github.com/hytalede/statistics/internal/domain"
	"github.com/stretchr/testify/require"
)

const endpoint = "https://hyrp.de/api/v1/server-api/telemetry"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		result   dispatch.SendResult
		level    slog.Level
		accepted bool
		contains []string
	}{
		{
			name:     "accepted",
			result:   dispatch.SendResult{StatusCode: 204},
			level:    slog.LevelInfo,
			accepted: true,
			contains: []string{"204"},
		},
		{
			name:     "unauthorized",
			result:   dispatch.SendResult{StatusCode: 401},
			level:    slog.LevelError,
			contains: []string{"HTTP 401", "endpoint=" + endpoint, "check bearerToken"},
		},
		{
			name:     "forbidden",
			result:   dispatch.SendResult{StatusCode: 403, ResponseBody: "nope"},
			level:    slog.LevelError,
			contains: []string{"HTTP 403", ": nope", "check bearerToken"},
		},
		{
			name:     "bad request",
			result:   dispatch.SendResult{StatusCode: 400},
			level:    slog.LevelWarn,
			contains: []string{"check endpoint (/api/v1/) and vanityUrl"},
		},
		{
			name:     "rate limited",
			result:   dispatch.SendResult{StatusCode: 429},
			level:    slog.LevelWarn,
			contains: []string{"increasing interval"},
		},
		{
			name:     "server error truncated",
			result:   dispatch.SendResult{StatusCode: 503, ResponseBody: "overloaded", Truncated: true},
			level:    slog.LevelWarn,
			contains: []string{": overloaded... (truncated)", "try again later"},
		},
		{
			name:     "ok is still rejected",
			result:   dispatch.SendResult{StatusCode: 200, ResponseBody: "  "},
			level:    slog.LevelWarn,
			contains: []string{"HTTP 200 (endpoint=" + endpoint + ")"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			verdict := dispatch.Classify(test.result, endpoint)
			require.Equal(t, test.level, verdict.Level)
			require.Equal(t, test.accepted, verdict.Accepted)

			for _, want := range test.contains {
				require.Contains(t, verdict.Message, want)
			}
		})
	}
}

func TestClassifyBlankBodyOmitted(t *testing.T) {
	verdict := dispatch.Classify(dispatch.SendResult{StatusCode: 418, ResponseBody: " \n", Truncated: true}, endpoint)
	require.Equal(t, "Telemetry rejected with HTTP 418 (endpoint="+endpoint+")", verdict.Message)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		level    slog.Level
		contains string
	}{
		{"validation", fmt.Errorf("%w: players", domain.ErrValidation), slog.LevelError, "invalid"},
		{"network", fmt.Errorf("%w: refused", domain.ErrNetwork), slog.LevelWarn, "unreachable"},
		{"timeout", fmt.Errorf("%w: deadline", domain.ErrTimeout), slog.LevelWarn, "unreachable"},
		{"canceled", context.Canceled, slog.LevelWarn, "interrupted"},
		{"other", errors.New("boom"), slog.LevelError, "Unexpected"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			verdict := dispatch.ClassifyError(test.err, endpoint)
			require.Equal(t, test.level, verdict.Level)
			require.False(t, verdict.Accepted)
			require.Contains(t, verdict.Message, test.contains)
		})
	}
}
