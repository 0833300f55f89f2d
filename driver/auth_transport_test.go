package driver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"note-sync/mocks"
	"note-sync/models"
)

// authServer answers 401 for the first rejectFirst attempts, then accepts only validToken.
func authServer(t *testing.T, rejectFirst int32, validToken string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= rejectFirst || r.Header.Get("Authorization") != "Bearer "+validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"token expired"}}`))
			return
		}
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(append([]byte("ok:"), body...))
	}))
	t.Cleanup(server.Close)
	return server, &attempts
}

func TestAuthTransport_RoundTrip(t *testing.T) {
	tests := map[string]struct {
		rejectFirst     int32
		setupMock       func(m *mocks.MockCredentialProvider)
		expectStatus    int
		expectErr       error
		expectAttempts  int32
		expectBodyMatch string
	}{
		"valid_token_no_retry": {
			rejectFirst: 0,
			setupMock: func(m *mocks.MockCredentialProvider) {
				m.EXPECT().CurrentToken(gomock.Any(), false).Return(models.CredentialOf("fresh"))
			},
			expectStatus:    http.StatusOK,
			expectAttempts:  1,
			expectBodyMatch: "ok:payload",
		},
		"401_once_then_success": {
			rejectFirst: 1,
			setupMock: func(m *mocks.MockCredentialProvider) {
				m.EXPECT().CurrentToken(gomock.Any(), false).Return(models.CredentialOf("stale"))
				m.EXPECT().CurrentToken(gomock.Any(), true).Return(models.CredentialOf("fresh")).Times(1)
			},
			expectStatus:    http.StatusOK,
			expectAttempts:  2,
			expectBodyMatch: "ok:payload",
		},
		"always_401_retries_once": {
			rejectFirst: 1000,
			setupMock: func(m *mocks.MockCredentialProvider) {
				m.EXPECT().CurrentToken(gomock.Any(), false).Return(models.CredentialOf("stale"))
				m.EXPECT().CurrentToken(gomock.Any(), true).Return(models.CredentialOf("fresh")).Times(1)
			},
			expectStatus:   http.StatusUnauthorized,
			expectAttempts: 2,
		},
		"unauthenticated_request_not_retried": {
			rejectFirst: 1000,
			setupMock: func(m *mocks.MockCredentialProvider) {
				m.EXPECT().CurrentToken(gomock.Any(), false).Return(models.Credential{Status: models.CredentialAuthRequired})
			},
			expectStatus:   http.StatusUnauthorized,
			expectAttempts: 1,
		},
		"refresh_yields_no_credential": {
			rejectFirst: 1,
			setupMock: func(m *mocks.MockCredentialProvider) {
				m.EXPECT().CurrentToken(gomock.Any(), false).Return(models.CredentialOf("stale"))
				m.EXPECT().CurrentToken(gomock.Any(), true).Return(models.Credential{
					Status: models.CredentialTransientFailure,
					Err:    errors.New("token endpoint down"),
				})
			},
			expectErr:      ErrCredentialUnavailable,
			expectAttempts: 1,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			credentials := mocks.NewMockCredentialProvider(ctrl)
			tc.setupMock(credentials)

			server, attempts := authServer(t, tc.rejectFirst, "fresh")
			client := &http.Client{Transport: NewAuthTransport(nil, credentials, nil)}

			req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL+"/notes", strings.NewReader("payload"))
			require.NoError(t, err)

			resp, err := client.Do(req)
			if tc.expectErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectErr)
				assert.Equal(t, tc.expectAttempts, attempts.Load())
				return
			}

			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.expectStatus, resp.StatusCode)
			assert.Equal(t, tc.expectAttempts, attempts.Load())

			if tc.expectBodyMatch != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tc.expectBodyMatch, string(body))
			}
		})
	}
}

func TestAuthTransport_DoesNotMutateCallerRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	credentials := mocks.NewMockCredentialProvider(ctrl)
	credentials.EXPECT().CurrentToken(gomock.Any(), false).Return(models.CredentialOf("fresh"))

	server, _ := authServer(t, 0, "fresh")
	client := &http.Client{Transport: NewAuthTransport(nil, credentials, nil)}

	req, err := http.NewRequest(http.MethodGet, server.URL+"/notes", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestNotesAPIClient_ThroughAuthTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	credentials := mocks.NewMockCredentialProvider(ctrl)
	credentials.EXPECT().CurrentToken(gomock.Any(), false).Return(models.CredentialOf("stale")).Times(2)
	credentials.EXPECT().CurrentToken(gomock.Any(), true).Return(models.CredentialOf("fresh")).Times(2)

	var (
		attempts    atomic.Int32
		rejectFresh atomic.Bool
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		if rejectFresh.Load() || r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[],"next_cursor":null,"has_more":false}`))
	}))
	defer server.Close()

	client := NewNotesAPIClient(NotesAPIConfig{BaseURL: server.URL}, NewAuthTransport(nil, credentials, nil), nil)

	page, err := client.ListNotes(context.Background(), 10, nil, "desc")
	require.NoError(t, err)
	assert.Nil(t, page.NextCursor)
	assert.Equal(t, int32(2), attempts.Load())

	// a server that still rejects the refreshed token surfaces ErrUnauthorized after two attempts
	attempts.Store(0)
	rejectFresh.Store(true)
	_, err = client.ListNotes(context.Background(), 10, nil, "desc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(2), attempts.Load())
}
