package driver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"note-sync/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *NotesAPIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewNotesAPIClient(NotesAPIConfig{
		BaseURL: server.URL + "/",
		Timeout: 2 * time.Second,
	}, nil, nil)
}

func TestNotesAPIClient_ListNotes(t *testing.T) {
	cursor := "2024-01-01T00:00:00Z_7"

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/notes", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, cursor, r.URL.Query().Get("cursor"))
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"id": 7, "userId": "u1", "userName": "Ann", "title": "t", "content": "c",
				 "summarize": "s", "sentiment": 0.25, "createdAt": "2024-01-01T00:00:00Z"},
				{"id": 6, "userId": "u1", "userName": "Ann", "title": "t2", "content": "c2",
				 "summarize": null, "sentiment": null, "createdAt": null}
			],
			"next_cursor": "c2",
			"has_more": true
		}`))
	})

	page, err := client.ListNotes(context.Background(), 20, &cursor, "desc")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(7), page.Items[0].ID)
	assert.Equal(t, "Ann", page.Items[0].UserName)
	require.NotNil(t, page.Items[0].Sentiment)
	assert.InDelta(t, 0.25, *page.Items[0].Sentiment, 1e-9)
	assert.Nil(t, page.Items[1].Summarize)
	assert.Nil(t, page.Items[1].CreatedAt)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "c2", *page.NextCursor)
	assert.True(t, page.HasMore)
}

func TestNotesAPIClient_ListNotesFirstPageOmitsCursor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasCursor := r.URL.Query()["cursor"]
		assert.False(t, hasCursor)
		_, _ = w.Write([]byte(`{"items":[],"next_cursor":null,"has_more":false}`))
	})

	page, err := client.ListNotes(context.Background(), 10, nil, "desc")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextCursor)
}

func TestNotesAPIClient_CRUD(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/notes":
			var req models.NoteRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(models.NoteDTO{ID: 11, Title: req.Title, Content: req.Content})
		case r.Method == http.MethodGet && r.URL.Path == "/notes/11":
			_ = json.NewEncoder(w).Encode(models.NoteDTO{ID: 11, Title: "hello"})
		case r.Method == http.MethodPut && r.URL.Path == "/notes/11":
			var req models.NoteRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			_ = json.NewEncoder(w).Encode(models.NoteDTO{ID: 11, Title: req.Title, Content: req.Content})
		case r.Method == http.MethodDelete && r.URL.Path == "/notes/11":
			_, _ = w.Write([]byte(`{"deleted":11}`))
		case r.Method == http.MethodGet && r.URL.Path == "/health":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"note not found","traceId":"t-1"}}`))
		}
	})
	ctx := context.Background()

	created, err := client.CreateNote(ctx, models.NoteRequest{Title: "hello", Content: "world"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)
	assert.Equal(t, "world", created.Content)

	got, err := client.GetNote(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)

	updated, err := client.UpdateNote(ctx, 11, models.NoteRequest{Title: "edited", Content: "body"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Title)

	require.NoError(t, client.DeleteNote(ctx, 11))
	require.NoError(t, client.Health(ctx))

	_, err = client.GetNote(ctx, 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.Equal(t, "t-1", apiErr.TraceID)
}

func TestNotesAPIClient_ErrorMapping(t *testing.T) {
	tests := map[string]struct {
		status    int
		body      string
		expectErr error
	}{
		"unauthorized": {status: http.StatusUnauthorized, expectErr: ErrUnauthorized},
		"bad_request":  {status: http.StatusBadRequest, body: `{"error":{"code":"bad_request","message":"limit must be an integer"}}`, expectErr: ErrBadRequest},
		"rate_limited": {status: http.StatusTooManyRequests, expectErr: ErrRateLimited},
		"server_error": {status: http.StatusInternalServerError, body: `not json`, expectErr: ErrTemporaryFailure},
		"bad_gateway":  {status: http.StatusBadGateway, expectErr: ErrTemporaryFailure},
		"not_found":    {status: http.StatusNotFound, expectErr: ErrNotFound},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.ListNotes(context.Background(), 10, nil, "desc")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expectErr)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.StatusCode)
		})
	}
}

func TestNotesAPIClient_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": [`))
	})

	_, err := client.ListNotes(context.Background(), 10, nil, "desc")
	assert.Error(t, err)
}

func TestNotesAPIClient_RateLimiterHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewNotesAPIClient(NotesAPIConfig{
		BaseURL:           server.URL,
		RequestsPerSecond: 0.001,
		Burst:             1,
	}, nil, nil)

	require.NoError(t, client.Health(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := client.Health(ctx)
	assert.Error(t, err)
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(&APIError{StatusCode: 401, Err: ErrUnauthorized}))
	assert.True(t, IsAuthError(ErrCredentialUnavailable))
	assert.True(t, IsAuthError(ErrTokenRevoked))
	assert.False(t, IsAuthError(ErrTemporaryFailure))
	assert.False(t, IsAuthError(errors.New("dial tcp: refused")))
}
