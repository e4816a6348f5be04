package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aurora-borealis222/url-shortener/pkg/adapters/cache"
	"github.com/aurora-borealis222/url-shortener/pkg/adapters/handler"
	"github.com/aurora-borealis222/url-shortener/pkg/adapters/repository/sqlite"
	"github.com/aurora-borealis222/url-shortener/pkg/config"
	"github.com/aurora-borealis222/url-shortener/pkg/core/services"
)

func TestIntegration(t *testing.T) {
	cfg := &config.Config{
		JWTSecret: "testsecret",
		CacheTTL:  time.Minute,
	}

	dbURL := "file:e2edb?mode=memory&cache=shared"
	repo, err := sqlite.NewSQLiteRepository(dbURL)
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	defer repo.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := services.NewLinkService(repo, services.NewCodeGenerator(), cache.NewMemoryCache(cfg.CacheTTL), cfg.CacheTTL)

	server := httptest.NewServer(handler.NewRouter(cfg, service, logger))
	defer server.Close()

	client := server.Client()
	// Don't follow redirects automatically so 307s are observable.
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	authCookie := &http.Cookie{Name: "auth_token", Value: signTestToken(t, cfg.JWTSecret, "alice@example.com")}

	// TEST 1: Anonymous shorten
	resp := postJSON(t, client, server.URL+"/links/shorten", map[string]any{
		"original_url": "https://example.com",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Shorten expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		OriginalURL string `json:"original_url"`
		ShortCode   string `json:"short_code"`
	}
	decodeBody(t, resp, &created)
	if len(created.ShortCode) != services.CodeLength {
		t.Errorf("Expected %d-char code, got %q", services.CodeLength, created.ShortCode)
	}
	if created.OriginalURL != "https://example.com" {
		t.Errorf("Expected original url, got %s", created.OriginalURL)
	}

	// TEST 2: Redirect
	resp = doRequest(t, client, "GET", server.URL+"/links/"+created.ShortCode, nil, nil)
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("Redirect expected 307, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com" {
		t.Errorf("Redirect location mismatch: %s", loc)
	}
	resp.Body.Close()

	// TEST 3: Stats reflect the redirect
	resp = doRequest(t, client, "GET", server.URL+"/links/"+created.ShortCode+"/stats", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Stats expected 200, got %d", resp.StatusCode)
	}
	var stats struct {
		ClicksCount int64 `json:"clicks_count"`
	}
	decodeBody(t, resp, &stats)
	if stats.ClicksCount != 1 {
		t.Errorf("Expected 1 click, got %d", stats.ClicksCount)
	}

	// TEST 4: Owned link with custom alias
	resp = postJSON(t, client, server.URL+"/links/shorten", map[string]any{
		"original_url": "https://example.org/docs",
		"custom_alias": "mydocs",
	}, authCookie)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Owned shorten expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// TEST 5: Duplicate alias
	resp = postJSON(t, client, server.URL+"/links/shorten", map[string]any{
		"original_url": "https://example.org/other",
		"custom_alias": "mydocs",
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Duplicate alias expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// TEST 6: Search by original URL
	resp = doRequest(t, client, "GET", server.URL+"/links/search?original_url=https://example.org/docs", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Search expected 200, got %d", resp.StatusCode)
	}
	var results []struct {
		ShortCode string `json:"short_code"`
	}
	decodeBody(t, resp, &results)
	if len(results) != 1 || results[0].ShortCode != "mydocs" {
		t.Errorf("Search results mismatch: %+v", results)
	}

	// TEST 7: List requires auth
	resp = doRequest(t, client, "GET", server.URL+"/links/all", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Unauthenticated list expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, client, "GET", server.URL+"/links/all", nil, authCookie)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Authenticated list expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// TEST 8: Delete by a non-owner
	bobCookie := &http.Cookie{Name: "auth_token", Value: signTestToken(t, cfg.JWTSecret, "bob@example.com")}
	resp = doRequest(t, client, "DELETE", server.URL+"/links/mydocs", nil, bobCookie)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Foreign delete expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// TEST 9: Rotate by the owner
	resp = doRequest(t, client, "PUT", server.URL+"/links/mydocs", nil, authCookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Rotate expected 200, got %d", resp.StatusCode)
	}
	var rotated struct {
		ShortCode string `json:"short_code"`
	}
	decodeBody(t, resp, &rotated)
	if rotated.ShortCode == "mydocs" {
		t.Error("Rotate returned the old code")
	}

	resp = doRequest(t, client, "GET", server.URL+"/links/mydocs", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Old code expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, client, "GET", server.URL+"/links/"+rotated.ShortCode, nil, nil)
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("Rotated code expected 307, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// TEST 10: Delete by the owner, then the alias is free again
	resp = doRequest(t, client, "DELETE", server.URL+"/links/"+rotated.ShortCode, nil, authCookie)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Owner delete expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, client, "GET", server.URL+"/links/"+rotated.ShortCode, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Deleted code expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, client, server.URL+"/links/shorten", map[string]any{
		"original_url": "https://example.net",
		"custom_alias": "mydocs",
	}, bobCookie)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Alias reuse expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// TEST 11: Expired links show up in the owner's history
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	resp = postJSON(t, client, server.URL+"/links/shorten?expires_at="+past, map[string]any{
		"original_url": "https://example.com/old",
	}, authCookie)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expiring shorten expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, client, "GET", server.URL+"/links/history_expired", nil, authCookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("History expected 200, got %d", resp.StatusCode)
	}
	var history []struct {
		OriginalURL string `json:"original_url"`
	}
	decodeBody(t, resp, &history)
	if len(history) != 1 || history[0].OriginalURL != "https://example.com/old" {
		t.Errorf("History mismatch: %+v", history)
	}
}

func postJSON(t *testing.T, client *http.Client, url string, payload map[string]any, cookie *http.Cookie) *http.Response {
	t.Helper()
	body, _ := json.Marshal(payload)
	return doRequest(t, client, "POST", url, bytes.NewReader(body), cookie)
}

func doRequest(t *testing.T, client *http.Client, method, url string, body io.Reader, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
}

func signTestToken(t *testing.T, secret, subject string) string {
	t.Helper()
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}
