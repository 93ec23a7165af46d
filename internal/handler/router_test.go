package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zhouzirui/millionaire/backend/internal/repository"
	"github.com/zhouzirui/millionaire/backend/internal/service/audience"
	gameService "github.com/zhouzirui/millionaire/backend/internal/service/game"
	"github.com/zhouzirui/millionaire/backend/pkg/utils"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()

	repo, err := repository.NewFileRepository(filepath.Join(dir, "games.json"))
	if err != nil {
		t.Fatalf("repo err: %v", err)
	}
	log, err := audience.OpenLog(filepath.Join(dir, "participants.txt"))
	if err != nil {
		t.Fatalf("log err: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	svc := gameService.NewService(repo, gameService.Deps{Responses: log})
	return NewRouter(context.Background(), svc, 10*time.Millisecond, "447700900000")
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/_/health", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body["status"] != "ok" {
		t.Fatalf("unexpected body %v (err=%v)", body, err)
	}
}

func TestMetrics(t *testing.T) {
	r := setupRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "go_goroutines") {
		t.Fatalf("expected default collectors in metrics output")
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	r := setupRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var problem utils.Problem
	if err := json.NewDecoder(resp.Body).Decode(&problem); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if problem.Status != http.StatusNotFound || problem.Title != "Not Found" {
		t.Fatalf("unexpected problem: %+v", problem)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	r := setupRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/games", nil))

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestPreflight(t *testing.T) {
	r := setupRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/games", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected CORS headers")
	}
}

func TestRoutesMounted(t *testing.T) {
	r := setupRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/games", strings.NewReader(`{"title":"Quiz night","url":"https://example.com"}`)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/voice/answer?to=447700900001", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"connect"`) {
		t.Fatalf("voice answer: unexpected %d %s", resp.Code, resp.Body.String())
	}
}
