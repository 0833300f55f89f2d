// ABOUTME: HTTP client for the remote notes API (paged list plus single-note CRUD)
// ABOUTME: Outbound calls are rate limited and non-2xx responses decode into typed APIErrors

package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"note-sync/models"
	"note-sync/utils"
)

// NotesAPIConfig configures a NotesAPIClient.
type NotesAPIConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// NotesAPIClient talks to the notes API through the supplied transport chain.
type NotesAPIClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewNotesAPIClient creates a client. A zero RequestsPerSecond disables rate limiting.
func NewNotesAPIClient(cfg NotesAPIConfig, transport http.RoundTripper, logger *slog.Logger) *NotesAPIClient {
	if logger == nil {
		logger = slog.Default()
	}
	if transport == nil {
		transport = http.DefaultTransport
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "note-sync/1.0"
	}

	return &NotesAPIClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter: limiter,
		logger:  logger,
	}
}

// ListNotes fetches one page. A nil cursor asks for the first page.
func (c *NotesAPIClient) ListNotes(ctx context.Context, limit int, cursor *string, order string) (*models.PagedNotesDTO, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if cursor != nil {
		params.Set("cursor", *cursor)
	}
	if order != "" {
		params.Set("order", order)
	}

	var page models.PagedNotesDTO
	if err := c.do(ctx, "list", http.MethodGet, "/notes?"+params.Encode(), nil, &page); err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched notes page",
		"item_count", len(page.Items),
		"has_cursor", page.NextCursor != nil,
		"has_more", page.HasMore)

	return &page, nil
}

// GetNote fetches a single note.
func (c *NotesAPIClient) GetNote(ctx context.Context, id int64) (*models.NoteDTO, error) {
	var note models.NoteDTO
	if err := c.do(ctx, "get", http.MethodGet, notePath(id), nil, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// CreateNote creates a note and returns the server's representation.
func (c *NotesAPIClient) CreateNote(ctx context.Context, request models.NoteRequest) (*models.NoteDTO, error) {
	var note models.NoteDTO
	if err := c.do(ctx, "create", http.MethodPost, "/notes", request, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// UpdateNote replaces title and content of a note.
func (c *NotesAPIClient) UpdateNote(ctx context.Context, id int64, request models.NoteRequest) (*models.NoteDTO, error) {
	var note models.NoteDTO
	if err := c.do(ctx, "update", http.MethodPut, notePath(id), request, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// DeleteNote deletes a note on the server.
func (c *NotesAPIClient) DeleteNote(ctx context.Context, id int64) error {
	return c.do(ctx, "delete", http.MethodDelete, notePath(id), nil, nil)
}

// Health checks that the notes API is reachable.
func (c *NotesAPIClient) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

func notePath(id int64) string {
	return "/notes/" + strconv.FormatInt(id, 10)
}

func (c *NotesAPIClient) do(ctx context.Context, endpoint, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s notes: rate limiter: %w", endpoint, err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		utils.RecordRemoteRequest(endpoint, "error")
		return fmt.Errorf("failed to execute %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	utils.RecordRemoteRequest(endpoint, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := newAPIError(resp.StatusCode, raw)

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			c.logger.Warn("Notes API rate limited",
				"endpoint", endpoint,
				"retry_after", resp.Header.Get("Retry-After"))
		case http.StatusNotFound:
			c.logger.Debug("Notes API returned not found", "endpoint", endpoint)
		default:
			c.logger.Error("Notes API request failed",
				"endpoint", endpoint,
				"status_code", resp.StatusCode,
				"error_code", apiErr.Code,
				"trace_id", apiErr.TraceID)
		}
		return fmt.Errorf("%s notes: %w", endpoint, apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
