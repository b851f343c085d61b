package binder

import "net/http"

// Query binds URL query parameters to fields tagged `query:"name"`.
//
//	type ListRequest struct {
//		Page  int    `query:"page"`
//		Query string `query:"q"`
//	}
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindValues(v, "query", r.URL.Query(), ErrInvalidQuery)
	}
}
