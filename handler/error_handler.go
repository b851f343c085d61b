package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/dmitrymomot/quill/pkg/binder"
	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/pkg/requestid"
)

type ErrorPageParams struct {
	Error      string
	StatusCode int
	RequestID  string
	RetryURL   string
}

type ErrorToastParams struct {
	Message   string
	Type      string // "error" or "warning"
	RequestID string
}

// Classifier maps domain errors to HTTP errors. It reports false for errors
// it does not recognize.
type Classifier func(err error) (HTTPError, bool)

type ErrorHandlerConfig struct {
	ErrorPage  func(ErrorPageParams) templ.Component
	ErrorToast func(ErrorToastParams) templ.Component

	// ToastTarget defaults to "#toast-container", ToastMode to PatchPrepend.
	ToastTarget string
	ToastMode   datastar.ElementPatchMode

	Classifier Classifier
}

// ErrorInfo is the public view of an error.
type ErrorInfo struct {
	StatusCode int
	Message    string
}

func (i ErrorInfo) clientError() bool { return i.StatusCode < http.StatusInternalServerError }

func (i ErrorInfo) toastType() string {
	if i.clientError() {
		return "warning"
	}
	return "error"
}

var bindErrors = []error{
	binder.ErrUnsupportedMediaType,
	binder.ErrMissingContentType,
	binder.ErrInvalidJSON,
	binder.ErrInvalidForm,
	binder.ErrInvalidQuery,
}

// ClassifyError resolves err in order: HTTPError, classify, malformed path
// parameters (404), other bind errors (400). Anything else is a 500 whose
// message does not leak err.
func ClassifyError(err error, classify Classifier) ErrorInfo {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return ErrorInfo{httpErr.Code, httpErr.Message}
	}
	if classify != nil {
		if mapped, ok := classify(err); ok {
			return ErrorInfo{mapped.Code, mapped.Message}
		}
	}
	// Non-numeric ids never match a resource.
	if errors.Is(err, binder.ErrInvalidPath) {
		return ErrorInfo{ErrNotFound.Code, ErrNotFound.Message}
	}
	for _, target := range bindErrors {
		if errors.Is(err, target) {
			return ErrorInfo{http.StatusBadRequest, err.Error()}
		}
	}
	return ErrorInfo{ErrInternalServer.Code, ErrInternalServer.Message}
}

func logError(log *slog.Logger, r *http.Request, err error, info ErrorInfo) {
	level := slog.LevelError
	if info.clientError() {
		level = slog.LevelWarn
	}
	log.LogAttrs(r.Context(), level, "request error",
		logger.Error(err),
		slog.Int("status_code", info.StatusCode),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// NewJSONErrorHandler writes {"message": ...} with the classified status.
func NewJSONErrorHandler(log *slog.Logger, classify Classifier) ErrorHandler {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With(logger.Component("error_handler"))

	return func(ctx Context, err error) {
		r := ctx.Request()
		info := ClassifyError(err, classify)
		logError(log, r, err, info)

		if rerr := JSONMessage(info.StatusCode, info.Message).Render(ctx.ResponseWriter(), r); rerr != nil {
			log.ErrorContext(r.Context(), "failed to render error response", logger.Error(rerr))
		}
	}
}

// NewErrorHandler renders an error page for regular requests and a toast
// patch for datastar requests.
func NewErrorHandler(log *slog.Logger, cfg ErrorHandlerConfig) ErrorHandler {
	if cfg.ToastTarget == "" {
		cfg.ToastTarget = "#toast-container"
	}
	if cfg.ToastMode == "" {
		cfg.ToastMode = PatchPrepend
	}
	if log == nil {
		log = logger.Discard()
	}
	log = log.With(logger.Component("error_handler"))

	return func(ctx Context, err error) {
		w, r := ctx.ResponseWriter(), ctx.Request()
		reqID := requestid.FromContext(r.Context())
		info := ClassifyError(err, cfg.Classifier)
		logError(log, r, err, info)

		if IsDataStar(r) {
			if cfg.ErrorToast == nil {
				return
			}
			// SSE responses are always 200; the toast carries the error.
			toast := cfg.ErrorToast(ErrorToastParams{Message: info.Message, Type: info.toastType(), RequestID: reqID})
			if rerr := Templ(toast, WithTarget(cfg.ToastTarget), WithPatchMode(cfg.ToastMode)).Render(w, r); rerr != nil {
				log.ErrorContext(r.Context(), "failed to render error toast", logger.Error(rerr))
			}
			return
		}

		if cfg.ErrorPage == nil {
			http.Error(w, info.Message, info.StatusCode)
			return
		}
		page := cfg.ErrorPage(ErrorPageParams{
			Error:      info.Message,
			StatusCode: info.StatusCode,
			RequestID:  reqID,
			RetryURL:   r.URL.Path,
		})
		if rerr := TemplStatus(info.StatusCode, page).Render(w, r); rerr != nil {
			log.ErrorContext(r.Context(), "failed to render error page", logger.Error(rerr))
			http.Error(w, ErrInternalServer.Message, ErrInternalServer.Code)
		}
	}
}
