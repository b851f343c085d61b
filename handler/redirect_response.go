package handler

import "net/http"

type redirectResponse struct {
	url    string
	status int
}

// Render redirects through the datastar client for SSE requests, with a
// regular HTTP redirect otherwise.
func (rr redirectResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if IsDataStar(r) {
		return newSSE(w, r).Redirect(rr.url)
	}
	http.Redirect(w, r, rr.url, rr.status)
	return nil
}

// Redirect responds with 303 See Other, the usual reply to a form post.
func Redirect(url string) Response {
	return redirectResponse{url: url, status: http.StatusSeeOther}
}
