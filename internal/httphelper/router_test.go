package httphelper_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hytalede/statistics/internal/httphelper"
	"github.com/stretchr/testify/require"
)

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	return recorder
}

func TestRouterSecureHeaders(t *testing.T) {
	router := httphelper.CreateRouter(httphelper.RouterOpts{Mode: gin.TestMode})
	router.GET("/ping", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": true})
	})

	resp := serve(router, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "DENY", resp.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", resp.Header().Get("X-Content-Type-Options"))
}

func TestRouterAPIError(t *testing.T) {
	router := httphelper.CreateRouter(httphelper.RouterOpts{Mode: gin.TestMode})
	router.GET("/fail", func(ctx *gin.Context) {
		httphelper.SetError(ctx, httphelper.NewAPIErrorf(http.StatusBadGateway,
			errors.Join(errors.New("dial tcp: refused"), httphelper.ErrSendFailed), "endpoint down"))
	})

	resp := serve(router, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/fail", nil))
	require.Equal(t, http.StatusBadGateway, resp.Code)
	require.Equal(t, "application/problem+json", resp.Header().Get("Content-Type"))
	require.Contains(t, resp.Body.String(), `"title":"telemetry send failed"`)
	require.Contains(t, resp.Body.String(), `"detail":"endpoint down"`)
	require.NotContains(t, resp.Body.String(), "refused")
}

func TestRouterRecovers(t *testing.T) {
	router := httphelper.CreateRouter(httphelper.RouterOpts{Mode: gin.TestMode})
	router.GET("/panic", func(_ *gin.Context) {
		panic("boom")
	})

	resp := serve(router, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestRouterOptionalRoutes(t *testing.T) {
	testCases := []struct {
		name     string
		opts     httphelper.RouterOpts
		path     string
		expected int
	}{
		{"pprof disabled", httphelper.RouterOpts{Mode: gin.TestMode}, "/debug/pprof/", http.StatusNotFound},
		{"pprof enabled", httphelper.RouterOpts{Mode: gin.TestMode, PProfEnabled: true}, "/debug/pprof/", http.StatusOK},
		{"metrics disabled", httphelper.RouterOpts{Mode: gin.TestMode}, "/metrics", http.StatusNotFound},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			router := httphelper.CreateRouter(testCase.opts)
			resp := serve(router, httptest.NewRequestWithContext(t.Context(), http.MethodGet, testCase.path, nil))
			require.Equal(t, testCase.expected, resp.Code)
		})
	}
}

func TestRouterCORS(t *testing.T) {
	router := httphelper.CreateRouter(httphelper.RouterOpts{
		Mode:        gin.TestMode,
		CORSOrigins: []string{"https://panel.example.com"},
	})
	router.GET("/status", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{})
	})

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://panel.example.com")

	resp := serve(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "https://panel.example.com", resp.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	resp = serve(router, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}
