package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shubham78763/trafficSignal/internal/storage"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000/api", "secret123")

	if c == nil {
		t.Fatal("New returned nil")
	}
	if c.baseURL != "http://localhost:5000/api" {
		t.Errorf("expected baseURL=http://localhost:5000/api, got %s", c.baseURL)
	}
	if c.apiKey != "secret123" {
		t.Errorf("expected apiKey=secret123, got %s", c.apiKey)
	}
	if c.httpClient == nil {
		t.Error("httpClient is nil")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/api/", "secret")
	if c.baseURL != "http://localhost:5000/api" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/healthcheck" {
			t.Errorf("expected path /api/healthcheck, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL+"/api", "")
	if err := c.Healthcheck(context.Background()); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	if err := c.Healthcheck(context.Background()); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, "")
	if err := c.Healthcheck(context.Background()); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestUpload_Success(t *testing.T) {
	received := map[string]string{}
	var receivedFile []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != UploadPath {
			t.Errorf("expected path %s, got %s", UploadPath, r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, k := range []string{"secret", "filename", "intersections", "signalChanges", "vehicleArrivals", "startedAt", "duration"} {
			received[k] = r.FormValue(k)
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("failed to get file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		receivedFile, _ = io.ReadAll(file)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	testFile := filepath.Join(t.TempDir(), "trafficsim_20240501_080000.json.gz")
	if err := os.WriteFile(testFile, []byte("session content"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	c := New(server.URL, "mysecret")
	meta := storage.ExportMetadata{
		Intersections:   3,
		SignalChanges:   120,
		VehicleArrivals: 42,
		StartedAt:       time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Duration:        90 * time.Second,
	}
	if err := c.Upload(context.Background(), testFile, meta); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	want := map[string]string{
		"secret":          "mysecret",
		"filename":        "trafficsim_20240501_080000.json.gz",
		"intersections":   "3",
		"signalChanges":   "120",
		"vehicleArrivals": "42",
		"startedAt":       "2024-05-01T08:00:00Z",
		"duration":        "90.000000",
	}
	for k, v := range want {
		if received[k] != v {
			t.Errorf("expected %s=%s, got %s", k, v, received[k])
		}
	}
	if string(receivedFile) != "session content" {
		t.Errorf("expected file content 'session content', got '%s'", string(receivedFile))
	}
}

func TestUpload_FileNotFound(t *testing.T) {
	c := New("http://localhost:5000", "secret")
	if err := c.Upload(context.Background(), "/nonexistent/file.json.gz", storage.ExportMetadata{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "bad secret")
	}))
	defer server.Close()

	testFile := filepath.Join(t.TempDir(), "test.json.gz")
	_ = os.WriteFile(testFile, []byte("content"), 0644)

	c := New(server.URL, "wrong-secret")
	err := c.Upload(context.Background(), testFile, storage.ExportMetadata{})
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "bad secret") {
		t.Errorf("expected status and body in error, got %v", err)
	}
}

func TestHealthcheck_SendsAPIKey(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(APIKeyHeader)
	}))
	defer server.Close()

	if err := New(server.URL, "k1").Healthcheck(context.Background()); err != nil {
		t.Fatalf("Healthcheck failed: %v", err)
	}
	if got != "k1" {
		t.Errorf("expected %s=k1, got %q", APIKeyHeader, got)
	}
}

func TestHealthcheck_Canceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New(server.URL, "").Healthcheck(ctx); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestPostReport(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api"+ReportPath {
			t.Errorf("expected path /api%s, got %s", ReportPath, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	report := map[string]int{"totalVehicles": 42}
	if err := New(server.URL+"/api", "").PostReport(context.Background(), report); err != nil {
		t.Fatalf("PostReport failed: %v", err)
	}
	if body["totalVehicles"] != float64(42) {
		t.Errorf("expected totalVehicles=42, got %v", body["totalVehicles"])
	}
}

func TestPostReport_Unencodable(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	if err := c.PostReport(context.Background(), make(chan int)); err == nil {
		t.Error("expected encode error")
	}
}
