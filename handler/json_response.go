package handler

import (
	"encoding/json"
	"net/http"
)

// MessageBody is the body of every JSON error and of plain status replies.
type MessageBody struct {
	Message string `json:"message"`
}

type jsonResponse struct {
	status  int
	headers http.Header
	body    any
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	payload, err := json.Marshal(j.body)
	if err != nil {
		return err
	}

	for key, values := range j.headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	_, err = w.Write(append(payload, '\n'))
	return err
}

// JSONOption configures JSON response
type JSONOption func(*jsonResponse)

// WithJSONStatus sets custom HTTP status code
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// WithHeader adds a response header, e.g. Location for created resources.
func WithHeader(key, value string) JSONOption {
	return func(r *jsonResponse) {
		if r.headers == nil {
			r.headers = http.Header{}
		}
		r.headers.Add(key, value)
	}
}

// JSON encodes v as the whole response body with status 200.
// Encoding happens before anything is written, so a marshal failure still
// reaches the error handler.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: v}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONMessage responds with {"message": message}.
func JSONMessage(status int, message string, opts ...JSONOption) Response {
	return JSON(MessageBody{Message: message}, append([]JSONOption{WithJSONStatus(status)}, opts...)...)
}
