package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/auth"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/config"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/handlers"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/middleware"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	tokens := auth.New("", "")

	return NewRouter(RouterConfig{
		AuthMiddleware: middleware.NewAuthMiddleware(log, tokens),

		ReadyHandler:         handlers.NewReadyHandler(nil, nil, nil, nil),
		AuthHandler:          handlers.NewAuthHandler(log, tokens),
		DocumentsHandler:     handlers.NewDocumentsHandler(log, nil, nil, nil),
		QueryHandler:         handlers.NewQueryHandler(log, nil),
		ConversationsHandler: handlers.NewConversationsHandler(log, nil, nil, nil, nil),
		QueryLogsHandler:     handlers.NewQueryLogsHandler(log, nil),
		IngestionJobsHandler: handlers.NewIngestionJobsHandler(log, nil),
		AnalysisHandler:      handlers.NewAnalysisHandler(log, nil, nil),
		AdminHandler:         handlers.NewAdminHandler(log, config.Config{}, nil),
	})
}

func TestPublicRoutes(t *testing.T) {
	router := testRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthcheck: status=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("ready: status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := testRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/documents"},
		{http.MethodPost, "/api/query"},
		{http.MethodGet, "/api/conversations"},
		{http.MethodGet, "/api/query_logs"},
		{http.MethodGet, "/api/ingestion_jobs"},
		{http.MethodGet, "/api/analysis"},
		{http.MethodPost, "/api/admin/reset"},
	}
	for _, tc := range paths {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status=%d, want 401", tc.method, tc.path, rr.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/documents", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight: status=%d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allow-origin=%q", got)
	}
}
