package plugin_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hytalede/statistics/internal/config"
	"github.com/hytalede/statistics/internal/domain"
	"github.com/hytalede/statistics/internal/plugin"
	"github.com/hytalede/statistics/internal/reporter"
	"github.com/hytalede/statistics/internal/tests"
	"github.com/stretchr/testify/require"
	"go.uber.org/ratelimit"
)

func staticSource() domain.SnapshotSource {
	return domain.SnapshotSourceFunc(func() domain.Snapshot {
		return domain.Snapshot{Players: 5, Slots: 10, Version: "1.0"}
	})
}

type failingLoader struct{}

func (failingLoader) Load() (config.Settings, error) {
	return config.Settings{}, errors.Join(errors.New("file is gone"), domain.ErrConfigMissing)
}

func newPlugin(t *testing.T, loader plugin.ConfigLoader) *plugin.Plugin {
	t.Helper()

	statsPlugin, errPlugin := plugin.New(loader, staticSource(),
		plugin.WithLimiter(ratelimit.NewUnlimited()),
		plugin.WithReporterOptions(reporter.WithPingAttempts(1), reporter.WithGracePeriod(100*time.Millisecond)))
	require.NoError(t, errPlugin)
	t.Cleanup(statsPlugin.Close)

	return statsPlugin
}

func TestNewRequiresDependencies(t *testing.T) {
	_, errPlugin := plugin.New(nil, staticSource())
	require.ErrorIs(t, errPlugin, domain.ErrNotInitialized)

	_, errPlugin = plugin.New(failingLoader{}, nil)
	require.ErrorIs(t, errPlugin, domain.ErrNotInitialized)
}

func TestStart(t *testing.T) {
	server := tests.NewTelemetryServer(t, http.StatusNoContent)
	statsPlugin := newPlugin(t, config.NewStore(tests.WriteConfig(t, server.Endpoint(), "")))

	require.NoError(t, statsPlugin.Start())
	require.NoError(t, statsPlugin.Start())

	require.Eventually(t, func() bool {
		return server.Posts() == 1
	}, 2*time.Second, 10*time.Millisecond)

	status := statsPlugin.Status()
	require.Equal(t, "running", status.State)
	require.Equal(t, server.Endpoint()+"server-api/telemetry", status.Endpoint)
	require.Equal(t, "abc123", status.VanityURL)
	require.Equal(t, "5m0s", status.Interval)

	require.Eventually(t, func() bool {
		last := statsPlugin.Status().LastReport
		return last != nil && last.Accepted
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, []string{"Bearer token123"}, server.Authorizations())
}

func TestStartSafely(t *testing.T) {
	statsPlugin := newPlugin(t, failingLoader{})

	require.False(t, statsPlugin.StartSafely())
	require.Equal(t, "idle", statsPlugin.Status().State)

	require.ErrorIs(t, statsPlugin.Start(), domain.ErrConfigMissing)
}

func TestStartInvalidConfig(t *testing.T) {
	path := tests.WriteConfig(t, "https://hyrp.de/wrong/", "")
	statsPlugin := newPlugin(t, config.NewStore(path))

	require.ErrorIs(t, statsPlugin.Start(), domain.ErrConfigValidation)
	require.False(t, statsPlugin.StartSafely())
}

func TestSendOnceNowOneShot(t *testing.T) {
	server := tests.NewTelemetryServer(t, http.StatusNoContent)
	statsPlugin := newPlugin(t, config.NewStore(tests.WriteConfig(t, server.Endpoint(), "")))

	result, errSend := statsPlugin.SendOnceNow(t.Context())
	require.NoError(t, errSend)
	require.True(t, result.Accepted())
	require.Equal(t, "idle", statsPlugin.Status().State)

	payloads := server.Payloads()
	require.Len(t, payloads, 1)
	require.Equal(t, "abc123", payloads[0]["vanityUrl"])
	require.InDelta(t, 5, payloads[0]["playersOnline"], 0)
}

func TestSendOnceNowReusesRunning(t *testing.T) {
	server := tests.NewTelemetryServer(t, http.StatusNoContent)
	statsPlugin := newPlugin(t, config.NewStore(tests.WriteConfig(t, server.Endpoint(), "")))

	require.NoError(t, statsPlugin.Start())

	_, errSend := statsPlugin.SendOnceNow(t.Context())
	require.NoError(t, errSend)

	require.Eventually(t, func() bool {
		return server.Posts() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendOnceNowConfigError(t *testing.T) {
	statsPlugin := newPlugin(t, failingLoader{})

	_, errSend := statsPlugin.SendOnceNow(t.Context())
	require.ErrorIs(t, errSend, domain.ErrConfigMissing)
}

func TestSendOnceNowRecoversPanic(t *testing.T) {
	server := tests.NewTelemetryServer(t, http.StatusNoContent)

	statsPlugin, errPlugin := plugin.New(config.NewStore(tests.WriteConfig(t, server.Endpoint(), "")),
		domain.SnapshotSourceFunc(func() domain.Snapshot { panic("host gone") }),
		plugin.WithLimiter(ratelimit.NewUnlimited()),
		plugin.WithReporterOptions(reporter.WithPingAttempts(1)))
	require.NoError(t, errPlugin)
	t.Cleanup(statsPlugin.Close)

	_, errSend := statsPlugin.SendOnceNow(t.Context())
	require.ErrorIs(t, errSend, reporter.ErrPanic)
}

func TestSendOnceNowAsync(t *testing.T) {
	server := tests.NewTelemetryServer(t, http.StatusTooManyRequests)
	statsPlugin := newPlugin(t, config.NewStore(tests.WriteConfig(t, server.Endpoint(), "")))

	select {
	case outcome := <-statsPlugin.SendOnceNowAsync(t.Context()):
		require.NoError(t, outcome.Err)
		require.Equal(t, http.StatusTooManyRequests, outcome.Result.StatusCode)
	case <-time.After(5 * time.Second):
		t.Fatal("async send did not complete")
	}
}

func TestClose(t *testing.T) {
	server := tests.NewTelemetryServer(t, http.StatusNoContent)
	statsPlugin := newPlugin(t, config.NewStore(tests.WriteConfig(t, server.Endpoint(), "")))

	require.NoError(t, statsPlugin.Start())

	statsPlugin.Close()
	statsPlugin.Close()

	require.Equal(t, "closed", statsPlugin.Status().State)
	require.ErrorIs(t, statsPlugin.Start(), plugin.ErrClosed)

	_, errSend := statsPlugin.SendOnceNow(t.Context())
	require.ErrorIs(t, errSend, plugin.ErrClosed)

	outcome := <-statsPlugin.SendOnceNowAsync(t.Context())
	require.ErrorIs(t, outcome.Err, plugin.ErrClosed)
}

// countingLimiter records Take calls without ever waiting.
type countingLimiter struct {
	takes atomic.Int32
}

func (l *countingLimiter) Take() time.Time {
	l.takes.Add(1)

	return time.Now()
}

func TestSendOnceNowSkipsLimiter(t *testing.T) {
	server := tests.NewTelemetryServer(t, http.StatusNoContent)
	limiter := &countingLimiter{}

	statsPlugin, errPlugin := plugin.New(config.NewStore(tests.WriteConfig(t, server.Endpoint(), "")), staticSource(),
		plugin.WithLimiter(limiter),
		plugin.WithReporterOptions(reporter.WithPingAttempts(1)))
	require.NoError(t, errPlugin)
	t.Cleanup(statsPlugin.Close)

	canceled, cancel := context.WithCancel(t.Context())
	cancel()

	_, errSend := statsPlugin.SendOnceNow(canceled)
	require.ErrorIs(t, errSend, context.Canceled)
	require.Equal(t, int32(0), limiter.takes.Load())

	_, errSend = statsPlugin.SendOnceNow(t.Context())
	require.NoError(t, errSend)
	require.Equal(t, int32(1), limiter.takes.Load())

	statsPlugin.Close()

	_, errSend = statsPlugin.SendOnceNow(t.Context())
	require.ErrorIs(t, errSend, plugin.ErrClosed)
	require.Equal(t, int32(1), limiter.takes.Load())
	require.Equal(t, 1, server.Posts())
}
