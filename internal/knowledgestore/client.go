// Package knowledgestore provides an HTTP client for the RAG knowledge
// store: file upload with background processing, processing-status
// polling, knowledge-base search/create, and batch file attachment.
package knowledgestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/helixir/paper-ingest-service/internal/domain"
)

const (
	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultPollInterval is the cadence of processing-status polls.
	DefaultPollInterval = 2 * time.Second

	// sourceName labels errors raised by this client.
	sourceName = "KnowledgeStore"

	// maxResponseBytes caps response bodies read by this client.
	maxResponseBytes = 10 << 20
)

// Config holds knowledge-store client configuration.
type Config struct {
	// BaseURL is the service base address. Required; trailing slashes and
	// surrounding whitespace are trimmed.
	BaseURL string

	// APIKey is the bearer credential. Required.
	APIKey string

	// Timeout is the per-request timeout. Defaults to 60 seconds.
	Timeout time.Duration

	// PollInterval is the wait between processing-status polls. Defaults
	// to 2 seconds.
	PollInterval time.Duration
}

// Client talks to the knowledge store. All methods perform a single
// attempt; only WaitForFileProcessed repeats requests, as a poll loop.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	httpClient   *http.Client
}

// New creates a knowledge-store client, failing fast when the base address
// or credential is absent.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("knowledge store base URL is required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("knowledge store API key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		pollInterval: cfg.PollInterval,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// KnowledgeBase is a server-side document corpus. AccessControl is nil for
// public bases and a restriction object otherwise.
type KnowledgeBase struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	AccessControl map[string]any `json:"access_control"`
}

// IsPublic reports whether the base carries no access restriction.
func (kb *KnowledgeBase) IsPublic() bool {
	return kb.AccessControl == nil
}

// GetOrCreateParams holds the inputs of GetOrCreateKnowledgeBase.
type GetOrCreateParams struct {
	Name        string
	Description string
	MakePublic  bool
}

// ProcessResult is the terminal outcome of waiting for file processing.
type ProcessResult struct {
	Status domain.ProcessingStatus
	FileID string
}

// createKnowledgeBaseRequest is the create payload. AccessControl is
// serialized as null (public) or an empty object (restricted).
type createKnowledgeBaseRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	AccessControl map[string]any `json:"access_control"`
}

// SearchKnowledgeBases lists bases matching name server-side. A query
// that matches nothing returns an empty list, not an error.
func (c *Client) SearchKnowledgeBases(ctx context.Context, name string) ([]KnowledgeBase, error) {
	endpoint := c.baseURL + "/api/v1/knowledge/search?text=" + url.QueryEscape(name)

	body, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		return nil, err
	}

	var bases []KnowledgeBase
	if err := json.Unmarshal(body, &bases); err != nil {
		return nil, fmt.Errorf("decoding knowledge base list: %w", err)
	}
	return bases, nil
}

// GetOrCreateKnowledgeBase reuses an existing base whose name matches
// case-insensitively after trimming, ignoring description and visibility
// mismatches, and creates one otherwise. The second return value reports
// whether a base was created.
func (c *Client) GetOrCreateKnowledgeBase(ctx context.Context, params GetOrCreateParams) (*KnowledgeBase, bool, error) {
	wanted := strings.TrimSpace(params.Name)

	bases, err := c.SearchKnowledgeBases(ctx, wanted)
	if err != nil {
		return nil, false, err
	}
	for i := range bases {
		if strings.EqualFold(strings.TrimSpace(bases[i].Name), wanted) {
			return &bases[i], false, nil
		}
	}

	reqBody := createKnowledgeBaseRequest{
		Name:        wanted,
		Description: params.Description,
	}
	if !params.MakePublic {
		reqBody.AccessControl = map[string]any{}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("encoding create request: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/knowledge/create"
	body, err := c.do(ctx, http.MethodPost, endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}

	var created KnowledgeBase
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, false, fmt.Errorf("decoding created knowledge base: %w", err)
	}
	return &created, true, nil
}

// UploadFile submits a local file for ingestion with server-side
// background processing and returns the assigned file ID. The transmitted
// content type is inferred from the file extension: PDF for ".pdf",
// markdown for anything else. Metadata travels as a serialized form field.
func (c *Client) UploadFile(ctx context.Context, path string, metadata map[string]any) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading upload file: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", contentTypeForFile(path))
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("creating multipart file part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("writing multipart file part: %w", err)
	}

	if metadata != nil {
		metaJSON, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("encoding upload metadata: %w", err)
		}
		if err := writer.WriteField("metadata", string(metaJSON)); err != nil {
			return "", fmt.Errorf("writing metadata field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/files/?process=true&process_in_background=true"
	body, err := c.do(ctx, http.MethodPost, endpoint, writer.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if uploaded.ID == "" {
		return "", fmt.Errorf("upload response carried no file ID")
	}
	return uploaded.ID, nil
}

// GetFileProcessStatus returns the processing status of an uploaded file.
// A response without a status field means processing has not started and
// is reported as pending.
func (c *Client) GetFileProcessStatus(ctx context.Context, fileID string) (domain.ProcessingStatus, error) {
	endpoint := c.baseURL + "/api/v1/files/" + url.PathEscape(fileID) + "/process/status"

	body, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		return "", err
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return "", fmt.Errorf("decoding process status: %w", err)
	}
	if status.Status == "" {
		return domain.StatusPending, nil
	}
	return domain.ProcessingStatus(status.Status), nil
}

// WaitForFileProcessed polls the processing status until it is completed
// or failed, or until timeout elapses, in which case the result status is
// timeout. The wait between polls is timer-based and honors context
// cancellation.
func (c *Client) WaitForFileProcessed(ctx context.Context, fileID string, timeout time.Duration) (ProcessResult, error) {
	deadline := time.Now().Add(timeout)

	for {
		status, err := c.GetFileProcessStatus(ctx, fileID)
		if err != nil {
			return ProcessResult{}, err
		}
		if status == domain.StatusCompleted || status == domain.StatusFailed {
			return ProcessResult{Status: status, FileID: fileID}, nil
		}
		if time.Now().After(deadline) {
			return ProcessResult{Status: domain.StatusTimeout, FileID: fileID}, nil
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ProcessResult{}, ctx.Err()
		case <-timer.C:
		}
	}
}

// AddFilesToKnowledgeBase attaches the given files to a knowledge base in
// a single batch call. The operation is all-or-nothing at the transport
// level; no partial-success reconciliation happens here.
func (c *Client) AddFilesToKnowledgeBase(ctx context.Context, kbID string, fileIDs []string) error {
	refs := make([]map[string]string, 0, len(fileIDs))
	for _, id := range fileIDs {
		refs = append(refs, map[string]string{"file_id": id})
	}
	payload, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("encoding batch add request: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/knowledge/" + url.PathEscape(kbID) + "/files/batch/add"
	_, err = c.do(ctx, http.MethodPost, endpoint, "application/json", bytes.NewReader(payload))
	return err
}

// do executes one request with the bearer credential and returns the
// response body. Non-2xx responses become typed errors carrying the
// status, endpoint, and a truncated body snippet.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, endpoint, string(respBody))
	}
	return respBody, nil
}

// contentTypeForFile infers the transmitted content type from the file
// extension.
func contentTypeForFile(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return "application/pdf"
	}
	return "text/markdown"
}
