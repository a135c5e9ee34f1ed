package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/common/logging"
)

type staticTokens struct {
	token string
	err   error
	calls int
}

func (s *staticTokens) Token(ctx context.Context) (string, error) {
	s.calls++
	return s.token, s.err
}

type revocableTokens struct {
	staticTokens
	invalidated int
}

func (r *revocableTokens) Invalidate(ctx context.Context) {
	r.invalidated++
}

func TestClient_ExecuteSnap_InvalidatesRejectedToken(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		wantInvalidated int
	}{
		{"unauthorized", http.StatusUnauthorized, 1},
		{"not found", http.StatusNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			tokens := &revocableTokens{staticTokens: staticTokens{token: "stale"}}
			client := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, tokens, logging.NewDefaultLogger())

			_, err := client.ExecuteSnap(context.Background(), "u1", "a1", "pubsub", nil)
			require.Error(t, err)
			assert.Equal(t, tt.wantInvalidated, tokens.invalidated)
		})
	}
}

func TestClient_ExecuteSnap(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "svc-token"}
	client := NewClient(Config{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, tokens, logging.NewDefaultLogger())

	rv, err := client.ExecuteSnap(context.Background(), "auth0|u1", "a1", "pubsub", map[string]interface{}{
		"message":      map[string]interface{}{"data": "aGVsbG8="},
		"subscription": "projects/p1/subscriptions/snapmaster-a1-t1",
	})
	require.NoError(t, err)

	assert.True(t, rv.IsSuccess())
	assert.Equal(t, "gcp: invoked snap engine at "+srv.URL+"/executesnap/auth0%7Cu1/a1", rv.Message)
	assert.Equal(t, "/executesnap/auth0%7Cu1/a1", gotPath)
	assert.Equal(t, "Bearer svc-token", gotAuth)
	assert.Equal(t, "pubsub", gotBody["event"])
	assert.Equal(t, "projects/p1/subscriptions/snapmaster-a1-t1", gotBody["subscription"])
	assert.Equal(t, 1, tokens.calls)
}

func TestClient_ExecuteSnap_Failures(t *testing.T) {
	t.Run("token failure", func(t *testing.T) {
		client := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, &staticTokens{err: apperrors.AuthError("denied")}, logging.NewDefaultLogger())
		_, err := client.ExecuteSnap(context.Background(), "u1", "a1", "pubsub", nil)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAuth))
	})

	t.Run("engine error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewClient(Config{BaseURL: srv.URL}, &staticTokens{token: "t"}, logging.NewDefaultLogger())
		_, err := client.ExecuteSnap(context.Background(), "u1", "a1", "pubsub", nil)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConnection))
	})

	t.Run("engine too slow", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		client := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, &staticTokens{token: "t"}, logging.NewDefaultLogger())
		_, err := client.ExecuteSnap(context.Background(), "u1", "a1", "pubsub", nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeTimeout))
	})
}
