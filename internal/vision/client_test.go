package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photobucket/internal/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.VisionConfig{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		Model:     "gpt-4o-mini",
		Timeout:   5 * time.Second,
		MaxTokens: 300,
	}, zerolog.Nop())
}

func TestCompleteReturnsContent(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"title\":\"T\",\"description\":\"D\"}"}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	content, err := client.Complete(context.Background(), "aW1hZ2U=")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"T","description":"D"}`, content)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])

	// the image travels as a base64 data URI inside the user message
	raw, err := json.Marshal(gotBody["messages"])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "data:image/jpeg;base64,aW1hZ2U="))
}

func TestCompleteNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Complete(context.Background(), "aW1hZ2U=")
	require.ErrorIs(t, err, ErrExternalService)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestCompleteEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Complete(context.Background(), "aW1hZ2U=")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestCompleteEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Complete(context.Background(), "aW1hZ2U=")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
