package handler

import "net/http"

type emptyResponse struct {
	status int
}

func (e emptyResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(e.status)
	return nil
}

// Empty responds with 204 No Content, e.g. after a delete.
func Empty() Response {
	return emptyResponse{status: http.StatusNoContent}
}
