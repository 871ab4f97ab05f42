// Package backend is the HTTP client for the diagnosis/workflow service.
// Every call carries a timeout and returns a typed error so the tool layer
// can map each failure category to a distinct user-facing message.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lynkup/aitas/types"
)

// WorkflowSummary is one entry of the workflow listing.
type WorkflowSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Step is one ordered step of a workflow.
type Step struct {
	Description string `json:"description"`
}

// Client talks to the backend service.
type Client struct {
	baseURL   string
	companyID string
	http      *http.Client
	logger    *zap.Logger
}

// New creates a backend client. An empty baseURL yields a client whose calls
// fail with ErrConfigMissing; the tool layer converts that to the
// configuration apology rather than crashing.
func New(baseURL, companyID string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 40 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		companyID: companyID,
		http:      &http.Client{Timeout: timeout},
		logger:    logger.With(zap.String("component", "backend_client")),
	}
}

// Configured reports whether a base URL is set.
func (c *Client) Configured() bool { return c.baseURL != "" }

func (c *Client) requireConfig() error {
	if c.baseURL == "" {
		return types.NewError(types.ErrConfigMissing, "backend base URL not configured")
	}
	return nil
}

// ListWorkflows fetches the workflow catalog for the configured company.
func (c *Client) ListWorkflows(ctx context.Context) ([]WorkflowSummary, error) {
	if err := c.requireConfig(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v2/workflows/list?companyId=%s", c.baseURL, url.QueryEscape(c.companyID))
	var out []WorkflowSummary
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetWorkflow fetches the ordered steps of one workflow.
func (c *Client) GetWorkflow(ctx context.Context, id string) ([]Step, error) {
	if err := c.requireConfig(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v2/workflows/get?id=%s&companyId=%s",
		c.baseURL, url.QueryEscape(id), url.QueryEscape(c.companyID))
	var out []Step
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Diagnose forwards the raw device payload to the scoring service and
// returns the diagnosis text.
func (c *Client) Diagnose(ctx context.Context, fieldpieceData string) (string, error) {
	if err := c.requireConfig(); err != nil {
		return "", err
	}

	body, _ := json.Marshal(map[string]string{"fp_data_object": fieldpieceData})
	endpoint := c.baseURL + "/diagnoseV2"

	var out struct {
		Diagnosis string `json:"diagnosis"`
	}
	if err := c.postJSON(ctx, endpoint, body, &out); err != nil {
		return "", err
	}
	if out.Diagnosis == "" {
		return "", types.NewError(types.ErrMalformedPayload, "diagnosis missing from response")
	}
	return out.Diagnosis, nil
}

// GenerateReport posts the session transcript. Fire-and-forget at session
// end; the caller logs and ignores the error.
func (c *Client) GenerateReport(ctx context.Context, sessionID string, transcript any) error {
	if err := c.requireConfig(); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"transcript": transcript,
		"sessionId":  sessionID,
	})
	if err != nil {
		return types.NewError(types.ErrInternal, "marshal transcript").WithCause(err)
	}
	return c.postJSON(ctx, c.baseURL+"/v2/generate-report", body, nil)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.NewError(types.ErrInternal, "build request").WithCause(err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return types.NewError(types.ErrInternal, "build request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("backend request failed", zap.String("url", req.URL.Path), zap.Error(err))
		return types.NewError(types.ErrTransport, "backend unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return types.NewError(types.ErrNotFound, "resource not found").WithHTTPStatus(resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("backend error status",
			zap.String("url", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return types.NewError(types.ErrUpstreamStatus,
			fmt.Sprintf("backend returned %d", resp.StatusCode)).WithHTTPStatus(resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(types.ErrMalformedPayload, "decode backend response").WithCause(err)
	}
	return nil
}
