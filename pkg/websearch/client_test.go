package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/Acme%20Robotics%20partnership", r.URL.EscapedPath())
		//nolint:errcheck
		w.Write([]byte(`{
			"code": 200,
			"data": [
				{"title": "Acme signs deal", "url": "https://news.test/acme", "description": "Acme partners with Initech", "date": "2026-03-02"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), "Acme Robotics partnership")
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Acme signs deal", resp.Data[0].Title)
	assert.Equal(t, "https://news.test/acme", resp.Data[0].URL)
	assert.Equal(t, "2026-03-02", resp.Data[0].Date)
}

func TestSearch_Options(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "news.test", r.URL.Query().Get("site"))
		assert.Equal(t, "10", r.URL.Query().Get("num"))
		w.Write([]byte(`{"code": 200, "data": []}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), "query",
		WithSiteFilter("news.test"), WithNumResults(10))
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestSearch_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"code": 200, "data": []}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch_NonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "query")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "query")
	assert.Error(t, err)
}
