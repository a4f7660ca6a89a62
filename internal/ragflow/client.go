package ragflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	shortTimeout = 10 * time.Second
	longTimeout  = 30 * time.Second

	maxResults = 5
)

// Client implements Gateway against a RAGFlow-compatible HTTP API.
type Client struct {
	baseURL string
	apiKey  string

	// Status and delete requests are quick metadata lookups; uploads and
	// queries can run long.
	shortClient *http.Client
	longClient  *http.Client
}

// NewClient constructs a Client for the given API base URL.
func NewClient(baseURL, apiKey string) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("RAGFLOW_API_URL is required")
	}
	return &Client{
		baseURL:     trimmed,
		apiKey:      apiKey,
		shortClient: &http.Client{Timeout: shortTimeout},
		longClient:  &http.Client{Timeout: longTimeout},
	}, nil
}

// Register uploads a document and returns the external document id.
func (c *Client) Register(ctx context.Context, file io.Reader, name string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("ragflow upload: build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("ragflow upload: read file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("ragflow upload: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/documents/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.longClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ragflow upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ragflow upload failed: HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ragflow upload response parse: %w", err)
	}
	if strings.TrimSpace(parsed.DocumentID) == "" {
		return "", fmt.Errorf("ragflow upload response missing document_id")
	}
	return parsed.DocumentID, nil
}

// Query asks a question against the given external document ids.
func (c *Client) Query(ctx context.Context, question string, externalIDs []string, conversationContext string) (QueryResult, error) {
	payload := map[string]any{
		"question":     question,
		"document_ids": externalIDs,
		"max_results":  maxResults,
	}
	if conversationContext != "" {
		payload["conversation_context"] = conversationContext
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return QueryResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/query", bytes.NewReader(encoded))
	if err != nil {
		return QueryResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.longClient.Do(req)
	if err != nil {
		return QueryResult{}, fmt.Errorf("ragflow query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return QueryResult{}, fmt.Errorf("ragflow query failed: HTTP %d", resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return QueryResult{}, fmt.Errorf("ragflow query response parse: %w", err)
	}

	result := QueryResult{Raw: raw}
	if answer, ok := raw["answer"].(string); ok {
		result.Answer = answer
	}
	if score, ok := raw["confidence_score"].(float64); ok {
		result.ConfidenceScore = score
	}
	return result, nil
}

// Status reports the processing state of a registered document.
func (c *Client) Status(ctx context.Context, externalID string) (DocumentStatus, error) {
	endpoint := c.baseURL + "/api/v1/documents/" + url.PathEscape(externalID) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return DocumentStatus{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.shortClient.Do(req)
	if err != nil {
		return DocumentStatus{}, fmt.Errorf("ragflow status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DocumentStatus{}, fmt.Errorf("ragflow status failed: HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		Status    string         `json:"status"`
		PageCount int            `json:"page_count"`
		Metadata  map[string]any `json:"metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return DocumentStatus{}, fmt.Errorf("ragflow status response parse: %w", err)
	}
	return DocumentStatus{
		Status:    parsed.Status,
		PageCount: parsed.PageCount,
		Metadata:  parsed.Metadata,
	}, nil
}

// Delete removes a registered document. A 404 means the document is already
// gone and is treated as success.
func (c *Client) Delete(ctx context.Context, externalID string) error {
	endpoint := c.baseURL + "/api/v1/documents/" + url.PathEscape(externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.shortClient.Do(req)
	if err != nil {
		return fmt.Errorf("ragflow delete: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("ragflow delete failed: HTTP %d", resp.StatusCode)
	}
}

// Ping checks connectivity to the external service, used by health checks.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.shortClient.Do(req)
	if err != nil {
		return fmt.Errorf("ragflow ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ragflow ping failed: HTTP %d", resp.StatusCode)
	}
	return nil
}

var _ Gateway = (*Client)(nil)
