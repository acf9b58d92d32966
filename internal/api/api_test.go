package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/httpmap/httpmap/internal/config"
	"github.com/httpmap/httpmap/internal/scanner"
	"go.uber.org/zap"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		Scan: config.ScanConfig{
			SubnetPrefix: 30,
			Ports:        []int{80},
			Concurrency:  5,
			RateLimit:    1000,
			Timeout:      500,
			UserAgent:    "httpmap-test",
		},
	}
	scan := scanner.New(cfg.Scan, nil, zap.NewNop().Sugar())
	return New(cfg, scan, zap.NewNop().Sugar())
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestStatusIdleBeforeAnyScan(t *testing.T) {
	s := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scan/status", nil)
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp ScanStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "idle" || resp.Running {
		t.Errorf("expected idle status, got %+v", resp)
	}
}

func TestStartScanRejectsInvalidPrefix(t *testing.T) {
	s := testServer(t)

	w := httptest.NewRecorder()
	body := strings.NewReader(`{"base_ip": "127.0.0.1", "subnet_prefix": 33}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/start", body)
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestProbeEndpoint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<title>Device</title>")
	}))
	defer ts.Close()

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)

	s := testServer(t)

	w := httptest.NewRecorder()
	body := strings.NewReader(fmt.Sprintf(`{"ip": %q, "port": %d}`, host, port))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/probe", body)
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Responded  bool   `json:"responded"`
		StatusCode int    `json:"status_code"`
		Title      string `json:"title"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Responded || resp.StatusCode != 200 || resp.Title != "Device" {
		t.Errorf("unexpected probe response: %+v", resp)
	}
}

func TestProbeEndpointValidatesInput(t *testing.T) {
	s := testServer(t)

	w := httptest.NewRecorder()
	body := strings.NewReader(`{"ip": "not-an-ip", "port": 80}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/probe", body)
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
