package newsdata

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSource(baseURL string, maxAttempts int) *Source {
	return New(Config{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Language:       "en",
		Timeout:        5 * time.Second,
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}, testLogger())
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, `"tech" OR "science"`, BuildQuery([]string{"tech", "science"}))
	assert.Equal(t, `"tech"`, BuildQuery([]string{"tech"}))
	assert.Equal(t, "", BuildQuery(nil))
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		assert.Equal(t, `"tech" OR "science"`, r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"totalResults": 2,
			"results": [
				{"title": "First", "description": "first body"},
				{"title": "Second", "description": null}
			]
		}`))
	}))
	defer srv.Close()

	src := newTestSource(srv.URL, 3)

	articles, err := src.Fetch(context.Background(), BuildQuery([]string{"tech", "science"}))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "First", articles[0].Title)
	require.NotNil(t, articles[0].Description)
	assert.Equal(t, "first body", *articles[0].Description)

	assert.Equal(t, "Second", articles[1].Title)
	assert.Nil(t, articles[1].Description)
	assert.False(t, articles[1].HasDescription())
}

func TestFetch_ServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := newTestSource(srv.URL, 3)

	_, err := src.Fetch(context.Background(), `"tech"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status": "success", "results": [{"title": "Late", "description": "ok"}]}`))
	}))
	defer srv.Close()

	src := newTestSource(srv.URL, 3)

	articles, err := src.Fetch(context.Background(), `"tech"`)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Late", articles[0].Title)
	assert.Equal(t, 3, calls)
}

func TestFetch_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [`))
	}))
	defer srv.Close()

	src := newTestSource(srv.URL, 1)

	_, err := src.Fetch(context.Background(), `"tech"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}
