package binder_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quill/pkg/binder"
)

type postPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func TestJSON(t *testing.T) {
	t.Parallel()

	bind := binder.JSON()

	newReq := func(body, contentType string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/posts/", strings.NewReader(body))
		if contentType != "" {
			r.Header.Set("Content-Type", contentType)
		}
		return r
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		var p postPayload
		err := bind(newReq(`{"title":"Hi","body":"<b>raw</b> & *md*"}`, "application/json; charset=utf-8"), &p)
		require.NoError(t, err)
		assert.Equal(t, "Hi", p.Title)
		assert.Equal(t, "<b>raw</b> & *md*", p.Body, "strings must not be altered")
	})

	tests := []struct {
		name        string
		body        string
		contentType string
		want        error
	}{
		{name: "missing content type", body: `{}`, want: binder.ErrMissingContentType},
		{name: "wrong content type", body: `{}`, contentType: "text/plain", want: binder.ErrUnsupportedMediaType},
		{name: "empty body", body: ``, contentType: "application/json", want: binder.ErrInvalidJSON},
		{name: "malformed", body: `{"title":`, contentType: "application/json", want: binder.ErrInvalidJSON},
		{name: "unknown field", body: `{"title":"a","admin":true}`, contentType: "application/json", want: binder.ErrInvalidJSON},
		{name: "trailing data", body: `{"title":"a"}{}`, contentType: "application/json", want: binder.ErrInvalidJSON},
		{name: "too large", body: `{"body":"` + strings.Repeat("a", binder.DefaultMaxJSONSize) + `"}`, contentType: "application/json", want: binder.ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var p postPayload
			assert.ErrorIs(t, bind(newReq(tt.body, tt.contentType), &p), tt.want)
		})
	}
}

type listRequest struct {
	Page   int    `query:"page"`
	Query  string `query:"q"`
	Limit  *int   `query:"limit"`
	Hidden string
}

func TestQuery(t *testing.T) {
	t.Parallel()

	t.Run("binds tagged fields only", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/posts/?page=3&q=go&limit=5&hidden=x", nil)
		var req listRequest
		require.NoError(t, binder.Query()(r, &req))
		assert.Equal(t, 3, req.Page)
		assert.Equal(t, "go", req.Query)
		require.NotNil(t, req.Limit)
		assert.Equal(t, 5, *req.Limit)
		assert.Empty(t, req.Hidden)
	})

	t.Run("bad int", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/posts/?page=abc", nil)
		var req listRequest
		assert.ErrorIs(t, binder.Query()(r, &req), binder.ErrInvalidQuery)
	})

	t.Run("non pointer target", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.ErrorIs(t, binder.Query()(r, listRequest{}), binder.ErrInvalidTarget)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()

	type req struct {
		ID   int64  `path:"id"`
		Slug string `path:"slug"`
	}
	params := map[string]string{"id": "42", "slug": "hello-world"}
	extract := func(_ *http.Request, name string) string { return params[name] }

	var got req
	require.NoError(t, binder.Path(extract)(httptest.NewRequest(http.MethodGet, "/", nil), &got))
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "hello-world", got.Slug)

	bad := func(*http.Request, string) string { return "nope" }
	assert.ErrorIs(t, binder.Path(bad)(httptest.NewRequest(http.MethodGet, "/", nil), &req{}), binder.ErrInvalidPath)
	assert.ErrorIs(t, binder.Path(nil)(httptest.NewRequest(http.MethodGet, "/", nil), &req{}), binder.ErrInvalidPath)
}

type profileForm struct {
	Name     string                `form:"name"`
	Location string                `form:"location"`
	Notify   bool                  `form:"notify"`
	Photo    *multipart.FileHeader `file:"photo"`
}

func TestForm(t *testing.T) {
	t.Parallel()

	t.Run("urlencoded", func(t *testing.T) {
		t.Parallel()
		form := url.Values{"name": {"john"}, "location": {"Kyiv"}, "notify": {"on"}}
		r := httptest.NewRequest(http.MethodPost, "/admin/profile", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		var got profileForm
		require.NoError(t, binder.Form()(r, &got))
		assert.Equal(t, "john", got.Name)
		assert.Equal(t, "Kyiv", got.Location)
		assert.True(t, got.Notify)
		assert.Nil(t, got.Photo)
	})

	t.Run("multipart with file", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("name", "john"))
		fw, err := mw.CreateFormFile("photo", "me.png")
		require.NoError(t, err)
		_, err = fw.Write([]byte("\x89PNG fake"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		r := httptest.NewRequest(http.MethodPost, "/admin/profile", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())

		var got profileForm
		require.NoError(t, binder.Form()(r, &got))
		assert.Equal(t, "john", got.Name)
		require.NotNil(t, got.Photo)
		assert.Equal(t, "me.png", got.Photo.Filename)
		assert.Equal(t, int64(9), got.Photo.Size)
	})

	t.Run("get binds nothing", func(t *testing.T) {
		t.Parallel()
		var got profileForm
		require.NoError(t, binder.Form()(httptest.NewRequest(http.MethodGet, "/admin/profile?name=x", nil), &got))
		assert.Empty(t, got.Name)
	})

	t.Run("json is rejected", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/admin/profile", strings.NewReader(`{}`))
		r.Header.Set("Content-Type", "application/json")
		assert.ErrorIs(t, binder.Form()(r, &profileForm{}), binder.ErrUnsupportedMediaType)
	})
}
