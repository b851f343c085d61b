// Package clientip resolves the address of the client behind proxies.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// headers are consulted in order before falling back to RemoteAddr.
var headers = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// Get returns the normalized client IP or "" when nothing parses.
// For X-Forwarded-For the first valid entry wins.
func Get(r *http.Request) string {
	for _, h := range headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		for part := range strings.SplitSeq(v, ",") {
			if ip := normalize(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

func normalize(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
