package handler_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quill/handler"
	"github.com/dmitrymomot/quill/pkg/binder"
	"github.com/dmitrymomot/quill/pkg/logger"
)

type getPostRequest struct {
	ID   int64 `path:"id"`
	Page int   `query:"page"`
}

var errMissing = errors.New("post missing")

func classify(err error) (handler.HTTPError, bool) {
	if errors.Is(err, errMissing) {
		return handler.NewHTTPError(http.StatusNotFound, "Post not found."), true
	}
	return handler.HTTPError{}, false
}

func pathParams(params map[string]string) func(*http.Request, string) string {
	return func(_ *http.Request, name string) string { return params[name] }
}

func TestWrap(t *testing.T) {
	t.Parallel()

	errHandler := handler.NewJSONErrorHandler(logger.Discard(), classify)

	h := handler.Wrap(
		func(ctx handler.Context, req getPostRequest) handler.Response {
			if req.ID == 404 {
				return handler.Error(errMissing)
			}
			return handler.JSON(map[string]any{"id": req.ID, "page": req.Page})
		},
		handler.WithBinders[getPostRequest](
			binder.Path(pathParams(map[string]string{"id": "7"})),
			binder.Query(),
		),
		handler.WithErrorHandler[getPostRequest](errHandler),
	)

	t.Run("binds and renders", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/posts/7?page=2", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"id":7,"page":2}`, w.Body.String())
	})

	t.Run("bind error is 400", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/posts/7?page=x", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"message"`)
	})

	t.Run("classified domain error", func(t *testing.T) {
		t.Parallel()
		notFound := handler.Wrap(
			func(ctx handler.Context, req getPostRequest) handler.Response {
				return handler.Error(errMissing)
			},
			handler.WithErrorHandler[getPostRequest](errHandler),
		)
		w := httptest.NewRecorder()
		notFound(w, httptest.NewRequest(http.MethodGet, "/posts/404", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"message":"Post not found."}`, w.Body.String())
	})

	t.Run("invalid path param is 404", func(t *testing.T) {
		t.Parallel()
		bad := handler.Wrap(
			func(ctx handler.Context, req getPostRequest) handler.Response { return handler.Empty() },
			handler.WithBinders[getPostRequest](binder.Path(pathParams(map[string]string{"id": "abc"}))),
			handler.WithErrorHandler[getPostRequest](errHandler),
		)
		w := httptest.NewRecorder()
		bad(w, httptest.NewRequest(http.MethodGet, "/posts/abc", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("nil response and unknown errors do not leak", func(t *testing.T) {
		t.Parallel()
		nilResp := handler.Wrap(
			func(ctx handler.Context, req struct{}) handler.Response { return nil },
			handler.WithErrorHandler[struct{}](errHandler),
		)
		w := httptest.NewRecorder()
		nilResp(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"message":"Internal server error."}`, w.Body.String())
	})

	t.Run("default error handler", func(t *testing.T) {
		t.Parallel()
		plain := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response {
			return handler.Error(handler.ErrForbidden)
		})
		w := httptest.NewRecorder()
		plain(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "Forbidden.")
	})
}

func TestJSONResponses(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	resp := handler.JSON(map[string]string{"url": "/posts/1"},
		handler.WithJSONStatus(http.StatusCreated),
		handler.WithHeader("Location", "/posts/1"),
	)
	require.NoError(t, resp.Render(w, httptest.NewRequest(http.MethodPost, "/", nil)))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/posts/1", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	require.NoError(t, handler.JSONMessage(http.StatusUnauthorized, "Could not verify.").Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Could not verify."}`, w.Body.String())

	w = httptest.NewRecorder()
	err := handler.JSON(map[string]any{"bad": make(chan int)}).Render(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Error(t, err)
	assert.Empty(t, w.Body.String(), "nothing is written when encoding fails")
}

func text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func TestTempl(t *testing.T) {
	t.Parallel()

	t.Run("html", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		require.NoError(t, handler.Templ(text("<p>hi</p>")).Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "<p>hi</p>", w.Body.String())
	})

	t.Run("status", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		require.NoError(t, handler.TemplStatus(http.StatusNotFound, text("gone")).Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("datastar patch", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/post/1/comments", nil)
		r.Header.Set("Datastar-Request", "true")
		w := httptest.NewRecorder()

		resp := handler.TemplMulti(
			handler.Patch(text("<li>new</li>"), handler.WithTarget("#comments"), handler.WithPatchMode(handler.PatchAppend)),
			handler.Patch(text(`<form id="comment-form"></form>`)),
		)
		require.NoError(t, resp.Render(w, r))
		assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
		assert.Contains(t, w.Body.String(), "<li>new</li>")
		assert.Contains(t, w.Body.String(), "#comments")
		assert.Contains(t, w.Body.String(), "comment-form")
	})

	t.Run("render failure writes nothing", func(t *testing.T) {
		t.Parallel()
		boom := templ.ComponentFunc(func(context.Context, io.Writer) error { return errors.New("boom") })
		w := httptest.NewRecorder()
		assert.Error(t, handler.Templ(boom).Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))
		assert.Empty(t, w.Body.String())
	})
}

func TestRedirect(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	require.NoError(t, handler.Redirect("/post/1").Render(w, httptest.NewRequest(http.MethodPost, "/post/1/comments", nil)))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/post/1", w.Header().Get("Location"))

	r := httptest.NewRequest(http.MethodPost, "/post/1/comments", nil)
	r.Header.Set("Datastar-Request", "true")
	w = httptest.NewRecorder()
	require.NoError(t, handler.Redirect("/post/1").Render(w, r))
	assert.Contains(t, w.Body.String(), "/post/1")
}

func TestHTMLErrorHandler(t *testing.T) {
	t.Parallel()

	page := func(p handler.ErrorPageParams) templ.Component {
		return text("error page: " + p.Error)
	}
	toast := func(p handler.ErrorToastParams) templ.Component {
		return text(`<div class="toast">` + p.Message + `</div>`)
	}
	eh := handler.NewErrorHandler(logger.Discard(), handler.ErrorHandlerConfig{
		ErrorPage:  page,
		ErrorToast: toast,
		Classifier: classify,
	})

	t.Run("page", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/post/9", nil)
		eh(handler.NewContext(w, r), errMissing)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "error page: Post not found.", w.Body.String())
	})

	t.Run("toast", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/post/9/comments", nil)
		r.Header.Set("Datastar-Request", "true")
		eh(handler.NewContext(w, r), errors.New("db down"))

		assert.True(t, strings.Contains(w.Body.String(), "Internal server error."))
		assert.NotContains(t, w.Body.String(), "db down")
	})
}

func TestIsDataStar(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, handler.IsDataStar(r))

	r.Header.Set("Accept", "text/event-stream")
	assert.True(t, handler.IsDataStar(r))

	r = httptest.NewRequest(http.MethodGet, "/?datastar=%7B%7D", nil)
	assert.True(t, handler.IsDataStar(r))
}

func TestContextValue(t *testing.T) {
	t.Parallel()

	key := handler.NewContextKey("identity")
	ctx := context.WithValue(t.Context(), key, 42)

	assert.Equal(t, 42, handler.ContextValue[int](ctx, key))
	assert.Empty(t, handler.ContextValue[string](ctx, key))
}
