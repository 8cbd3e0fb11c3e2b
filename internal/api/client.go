package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shubham78763/trafficSignal/internal/storage"
)

// Paths appended to the base URL.
const (
	HealthcheckPath = "/healthcheck"
	UploadPath      = "/v1/sessions/add"
	ReportPath      = "/v1/sessions/report"
)

// APIKeyHeader carries the key on JSON requests. Uploads also send it as
// the "secret" form field.
const APIKeyHeader = "X-API-Key"

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// Client talks to the remote session collector.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck reports whether the collector answers 200 on /healthcheck.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthcheckPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus("healthcheck", resp)
}

// Upload streams a session export to the collector as a multipart form.
// The file is never held in memory.
func (c *Client) Upload(ctx context.Context, filePath string, meta storage.ExportMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		err := writeUploadForm(writer, c.apiKey, filePath, file, meta)
		if cerr := writer.Close(); err == nil {
			err = cerr
		}
		_ = pw.CloseWithError(err)
		errCh <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		<-errCh
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		<-errCh
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	// A rejecting server may answer before reading the whole form.
	if err := checkStatus("upload", resp); err != nil {
		_ = pr.CloseWithError(err)
		<-errCh
		return err
	}
	return <-errCh
}

func writeUploadForm(w *multipart.Writer, secret, filePath string, file io.Reader, meta storage.ExportMetadata) error {
	fields := []struct{ key, value string }{
		{"secret", secret},
		{"filename", filepath.Base(filePath)},
		{"intersections", strconv.Itoa(meta.Intersections)},
		{"signalChanges", strconv.Itoa(meta.SignalChanges)},
		{"vehicleArrivals", strconv.Itoa(meta.VehicleArrivals)},
		{"startedAt", meta.StartedAt.UTC().Format(time.RFC3339)},
		{"duration", fmt.Sprintf("%f", meta.Duration.Seconds())},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f.key, err)
		}
	}

	part, err := w.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return nil
}

// PostReport sends report as JSON to the collector.
func (c *Client) PostReport(ctx context.Context, report any) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ReportPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus("report", resp)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
	return c.httpClient.Do(req)
}

// checkStatus accepts any 2xx and otherwise quotes the start of the body.
func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if s := strings.TrimSpace(string(msg)); s != "" {
		return fmt.Errorf("%s returned status %d: %s", op, resp.StatusCode, s)
	}
	return fmt.Errorf("%s returned status %d", op, resp.StatusCode)
}
