package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quill/pkg/requestid"
)

func serve(t *testing.T, incoming string) (ctxID, headerID string) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = requestid.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if incoming != "" {
		req.Header.Set(requestid.Header, incoming)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	return ctxID, rec.Header().Get(requestid.Header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates id", func(t *testing.T) {
		t.Parallel()
		ctxID, headerID := serve(t, "")
		assert.NotEmpty(t, ctxID)
		assert.Equal(t, ctxID, headerID)
	})

	t.Run("keeps valid incoming id", func(t *testing.T) {
		t.Parallel()
		ctxID, headerID := serve(t, "abc-123_XYZ")
		assert.Equal(t, "abc-123_XYZ", ctxID)
		assert.Equal(t, "abc-123_XYZ", headerID)
	})

	for _, bad := range []string{"a b", "<script>", "x/y", strings.Repeat("a", 129)} {
		t.Run("replaces "+bad[:min(len(bad), 8)], func(t *testing.T) {
			t.Parallel()
			ctxID, headerID := serve(t, bad)
			assert.NotEqual(t, bad, ctxID)
			assert.Equal(t, ctxID, headerID)
		})
	}
}

func TestLogExtractor(t *testing.T) {
	t.Parallel()

	_, ok := requestid.LogExtractor(context.Background())
	assert.False(t, ok)

	attr, ok := requestid.LogExtractor(requestid.WithContext(context.Background(), "id-1"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "id-1", attr.Value.String())
}
