package blog_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quill/svc/blog"
)

type recordedRequest struct {
	Method, Path string
	Body         map[string]any
}

func newFakeCluster(t *testing.T, handle func(w http.ResponseWriter, r *http.Request) bool) (*opensearch.Client, func() []recordedRequest) {
	t.Helper()

	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}
		mu.Lock()
		reqs = append(reqs, rec)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if handle != nil && handle(w, r) {
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{srv.URL}, DisableRetry: true})
	require.NoError(t, err)

	return client, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func TestOpenSearchIndexer(t *testing.T) {
	t.Parallel()

	client, requests := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request) bool {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/posts":
			w.WriteHeader(http.StatusNotFound)
			return true
		case r.Method == http.MethodDelete && r.URL.Path == "/posts/_doc/404":
			w.WriteHeader(http.StatusNotFound)
			return true
		case r.URL.Path == "/posts/_search":
			_, _ = w.Write([]byte(`{"hits":{"total":{"value":12},"hits":[{"_id":"3"},{"_id":"x"},{"_id":"1"}]}}`))
			return true
		}
		return false
	})
	ctx := t.Context()

	idx, err := blog.NewOpenSearchIndexer(ctx, client, "posts")
	require.NoError(t, err)

	require.NoError(t, idx.Index(ctx, blog.Post{ID: 7, Title: "Hello", Slug: "hello", Body: "world", AuthorID: 2}))
	require.NoError(t, idx.Remove(ctx, 7))
	require.NoError(t, idx.Remove(ctx, 404), "removing a missing document is not an error")

	ids, total, err := idx.Search(ctx, "hello", 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids)
	assert.Equal(t, 12, total)

	reqs := requests()
	require.Len(t, reqs, 6)

	assert.Equal(t, http.MethodHead, reqs[0].Method)
	assert.Equal(t, http.MethodPut, reqs[1].Method)
	assert.Equal(t, "/posts", reqs[1].Path)
	assert.Contains(t, reqs[1].Body, "mappings")

	assert.Equal(t, "/posts/_doc/7", reqs[2].Path)
	assert.Equal(t, "Hello", reqs[2].Body["title"])
	assert.Equal(t, "hello", reqs[2].Body["slug"])

	assert.Equal(t, http.MethodDelete, reqs[3].Method)
	assert.Equal(t, "/posts/_doc/7", reqs[3].Path)

	query := reqs[5].Body["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "hello", query["query"])
	assert.Equal(t, []any{"title^2", "body"}, query["fields"])
}

func TestOpenSearchIndexerErrors(t *testing.T) {
	t.Parallel()

	client, _ := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method == http.MethodHead {
			return false
		}
		w.WriteHeader(http.StatusInternalServerError)
		return true
	})
	ctx := t.Context()

	idx, err := blog.NewOpenSearchIndexer(ctx, client, "posts")
	require.NoError(t, err)

	assert.ErrorIs(t, idx.Index(ctx, blog.Post{ID: 1}), blog.ErrSearchFailed)
	assert.ErrorIs(t, idx.Remove(ctx, 1), blog.ErrSearchFailed)
	_, _, err = idx.Search(ctx, "q", 0, 10)
	assert.ErrorIs(t, err, blog.ErrSearchFailed)
}
