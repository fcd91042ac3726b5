// Package model defines shared types for the relay.
package model

import (
	"context"
	"io"
	"net/http"
)

// RelayRequest represents an inbound request to be forwarded to the origin.
// It and the matching RelayResponse live for exactly one invocation; nothing
// is retained once the response has been relayed.
type RelayRequest struct {
	Ctx    context.Context
	Method string
	Host   string
	Path   string
	// RawPath preserves the original percent-encoding of Path; empty when
	// the default encoding of Path already matches the wire form.
	RawPath string
	// RawQuery is carried as the verbatim query string rather than parsed
	// url.Values; re-encoding would reorder parameters.
	RawQuery string
	Header   http.Header
	Body     io.ReadCloser
	// ContentLength mirrors the inbound declaration so the origin sees the
	// same framing: >0 known length, 0 none, -1 unknown (chunked).
	ContentLength int64
}

// RelayResponse represents the origin response to be streamed back.
type RelayResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
