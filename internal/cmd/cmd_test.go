package cmd

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/hytalede/statistics/internal/domain"
	"github.com/hytalede/statistics/internal/host"
	"github.com/hytalede/statistics/internal/tests"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)

	errExec := rootCmd.ExecuteContext(t.Context())

	return out.String(), errExec
}

func TestSimulatedAdapter(t *testing.T) {
	adapter, errAdapter := newSimulatedAdapter(simulatedMaxPlayers, "v1.0.0-alpha")
	require.NoError(t, errAdapter)
	require.True(t, adapter.Capabilities().PlayerList)

	provider, errProvider := host.NewProvider(adapter)
	require.NoError(t, errProvider)

	for range 20 {
		snapshot := provider.Snapshot()
		require.NoError(t, snapshot.Validate())
		require.Equal(t, simulatedMaxPlayers, snapshot.Slots)
		require.Less(t, snapshot.Players, simulatedMaxPlayers)
		require.Equal(t, "v1.0.0-alpha", snapshot.Version)
		require.Len(t, snapshot.PlayerList, snapshot.Players)

		for _, player := range snapshot.PlayerList {
			_, errUUID := uuid.FromString(player.UUID)
			require.NoError(t, errUUID)
		}

		require.Equal(t, []domain.PluginInfo{
			{Name: "ExamplePlugin", Version: domain.UnknownVersion},
			{Name: "StatisticsPlugin", Version: domain.UnknownVersion},
		}, snapshot.Plugins)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "statistics.json")

	out, errExec := execute(t, "config", "init", "--config", path)
	require.NoError(t, errExec)
	require.Contains(t, out, "Created")

	body, errRead := os.ReadFile(path)
	require.NoError(t, errRead)
	require.Contains(t, string(body), "REPLACE_WITH_TOKEN")

	out, errExec = execute(t, "config", "init", "--config", path)
	require.NoError(t, errExec)
	require.Contains(t, out, "already exists")
}

func TestConfigCheck(t *testing.T) {
	path := tests.WriteConfig(t, "https://hyrp.de/api/v1", `,"intervalSeconds":60`)

	out, errExec := execute(t, "config", "check", "--config", path)
	require.NoError(t, errExec)
	require.Contains(t, out, "https://hyrp.de/api/v1/server-api/telemetry")
	require.Contains(t, out, "https://hyrp.de/api/v1/ping")
	require.Contains(t, out, "1m0s")
}

func TestConfigCheckInvalid(t *testing.T) {
	path := tests.WriteConfig(t, "https://hyrp.de/wrong/", "")

	_, errExec := execute(t, "config", "check", "--config", path)
	require.ErrorIs(t, errExec, domain.ErrConfigValidation)
}

func TestSend(t *testing.T) {
	server := tests.NewTelemetryServer(t, http.StatusNoContent)
	path := tests.WriteConfig(t, server.Endpoint(), `,"sendPlayerList":true`)

	out, errExec := execute(t, "send", "--config", path, "--ping-attempts", "1")
	require.NoError(t, errExec)
	require.Contains(t, out, "Status:    204")
	require.Equal(t, 1, server.Posts())
	require.Equal(t, 1, server.Pings())

	payloads := server.Payloads()
	require.Len(t, payloads, 1)
	require.Equal(t, "abc123", payloads[0]["vanityUrl"])
	require.Contains(t, payloads[0], "players")
}

func TestSendRejected(t *testing.T) {
	server := tests.NewTelemetryServer(t, http.StatusForbidden)
	path := tests.WriteConfig(t, server.Endpoint(), "")

	out, errExec := execute(t, "send", "--config", path, "--ping-attempts", "1")
	require.ErrorIs(t, errExec, errRejected)
	require.Contains(t, out, "Status:    403")
}

func TestSendMissingConfig(t *testing.T) {
	_, errExec := execute(t, "send", "--config", filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, errExec, domain.ErrConfigMissing)
}
