package relay

import (
	"net/http"
	"strings"
)

// hopByHopHeaders are the connection-control headers of RFC 7230 section
// 6.1. They describe a single transport hop and must not be forwarded.
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ScrubHeader returns a copy of h without hop-by-hop headers and without any
// header nominated by a Connection field. End-to-end headers are copied
// untouched, in their original multi-value order.
func ScrubHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for key, values := range h {
		out[key] = append([]string(nil), values...)
	}
	for _, value := range out.Values("Connection") {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		out.Del(name)
	}
	return out
}

// IsWebSocketUpgrade reports whether the request headers negotiate a
// WebSocket upgrade on this hop.
func IsWebSocketUpgrade(h http.Header) bool {
	return headerContainsToken(h, "Connection", "upgrade") &&
		headerContainsToken(h, "Upgrade", "websocket")
}

func headerContainsToken(h http.Header, name, token string) bool {
	for _, value := range h.Values(name) {
		for _, candidate := range strings.Split(value, ",") {
			if strings.EqualFold(strings.TrimSpace(candidate), token) {
				return true
			}
		}
	}
	return false
}
