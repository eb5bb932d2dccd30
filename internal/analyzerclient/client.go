// Package analyzerclient is the orchestrator-side HTTP client for the
// analysis service, used by the symbol index builder and the call-graph
// builder. It owns the retry-once-with-exponential-backoff policy for
// ErrAnalyzerUnavailable and the halved-batch-size retry on timeout.
package analyzerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"jcpg/internal/analyzer"
	"jcpg/internal/errs"
)

// Client talks to one cmd/cpganalyzer process over loopback HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client pointed at the analyzer's base URL
// (e.g. "http://127.0.0.1:8971"). timeout bounds a single HTTP round trip;
// the batch-size-halving retry is layered on top by callers.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (analyzer.HealthResponse, error) {
	var resp analyzer.HealthResponse
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp)
	return resp, err
}

// IndexSymbols calls POST /index/batch, retrying the whole batch once with
// exponential backoff on ErrAnalyzerUnavailable.
func (c *Client) IndexSymbols(ctx context.Context, classFiles []string) (analyzer.IndexBatchResponse, error) {
	req := analyzer.IndexRequest{ClassFiles: classFiles}
	result, err := backoff.Retry(ctx, func() (analyzer.IndexBatchResponse, error) {
		var resp analyzer.IndexBatchResponse
		callErr := c.doJSON(ctx, http.MethodPost, "/index/batch", req, &resp)
		if callErr != nil {
			return analyzer.IndexBatchResponse{}, callErr
		}
		return resp, nil
	}, backoff.WithMaxTries(2), backoff.WithBackOff(backoff.NewExponentialBackOff()))
	if err != nil {
		return analyzer.IndexBatchResponse{}, err
	}
	return result, nil
}

// Analyze calls POST /analyze. If the request fails, it retries once by
// splitting the batch's class-file list into two halves, submitting each as
// its own request and concatenating their classes in order; if either half
// fails, the error is returned and the package fails.
func (c *Client) Analyze(ctx context.Context, req analyzer.AnalyzeRequest) (analyzer.AnalyzeResponse, error) {
	resp, err := c.analyzeOnce(ctx, req)
	if err == nil {
		return resp, nil
	}
	if len(req.ClassFiles) < 2 {
		return analyzer.AnalyzeResponse{}, err
	}

	half := len(req.ClassFiles) / 2
	merged := analyzer.AnalyzeResponse{Success: true}
	for _, part := range [][]string{req.ClassFiles[:half], req.ClassFiles[half:]} {
		halved := req
		halved.ClassFiles = part
		partResp, retryErr := c.analyzeOnce(ctx, halved)
		if retryErr != nil {
			return analyzer.AnalyzeResponse{}, fmt.Errorf("analyzerclient: halved retry also failed: %w", retryErr)
		}
		merged.Classes = append(merged.Classes, partResp.Classes...)
	}
	return merged, nil
}

func (c *Client) analyzeOnce(ctx context.Context, req analyzer.AnalyzeRequest) (analyzer.AnalyzeResponse, error) {
	var resp analyzer.AnalyzeResponse
	err := c.doJSON(ctx, http.MethodPost, "/analyze", req, &resp)
	return resp, err
}

// Shutdown calls POST /shutdown.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/shutdown", nil, &analyzer.ShutdownResponse{})
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var bodyReader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("analyzerclient: encode request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("analyzerclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrAnalyzerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: analyzer returned %d", errs.ErrAnalyzerUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var envelope analyzer.ErrorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return fmt.Errorf("analyzerclient: %s %s: %s", method, path, envelope.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("analyzerclient: decode response: %w", err)
	}
	return nil
}
