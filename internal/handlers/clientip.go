package handlers

import (
	"net"
	"net/http"
	"strings"
)

// clientIP returns address of the client that sent request.
// The first X-Forwarded-For entry wins, so the server is expected to run behind a proxy that overwrites it.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
