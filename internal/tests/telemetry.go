// Package tests holds shared fixtures for package tests.
package tests

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// TelemetryServer is a fake telemetry API answering pings with 200 and telemetry posts with a
// configurable status.
type TelemetryServer struct {
	*httptest.Server

	status atomic.Int32
	pings  atomic.Int32
	posts  atomic.Int32

	mu       sync.Mutex
	payloads []map[string]any
	auth     []string
}

func NewTelemetryServer(t *testing.T, status int) *TelemetryServer {
	t.Helper()

	server := &TelemetryServer{}
	server.status.Store(int32(status))
	server.Server = httptest.NewServer(http.HandlerFunc(server.handle))
	t.Cleanup(server.Close)

	return server
}

func (s *TelemetryServer) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/api/v1/ping"):
		s.pings.Add(1)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/api/v1/server-api/telemetry"):
		body, _ := io.ReadAll(r.Body)

		var payload map[string]any
		_ = json.Unmarshal(body, &payload)

		s.mu.Lock()
		s.payloads = append(s.payloads, payload)
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		s.mu.Unlock()

		s.posts.Add(1)
		w.WriteHeader(int(s.status.Load()))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *TelemetryServer) SetStatus(status int) {
	s.status.Store(int32(status))
}

func (s *TelemetryServer) Posts() int {
	return int(s.posts.Load())
}

func (s *TelemetryServer) Pings() int {
	return int(s.pings.Load())
}

// Payloads returns the decoded bodies of all received telemetry posts.
func (s *TelemetryServer) Payloads() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, len(s.payloads))
	copy(out, s.payloads)

	return out
}

func (s *TelemetryServer) Authorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.auth))
	copy(out, s.auth)

	return out
}

// Endpoint is the api base url of the server.
func (s *TelemetryServer) Endpoint() string {
	return s.URL + "/api/v1/"
}

// WriteConfig writes a statistics.json pointing at server into a temp dir and returns its path.
func WriteConfig(t *testing.T, endpoint string, extra string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "statistics.json")
	body := `{"endpoint":"` + endpoint + `","bearerToken":"token123","vanityUrl":"abc123"` + extra + `}`

	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	return path
}
