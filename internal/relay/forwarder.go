// Package relay implements the single-hop forwarding core: one inbound
// request goes out to the fixed origin as received, and the origin response
// comes back still streaming.
package relay

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"edge-relay/internal/client"
	"edge-relay/internal/config"
	"edge-relay/internal/model"
)

// Forwarder relays requests to the one configured origin.
type Forwarder struct {
	client *client.OriginClient
	cfg    *config.Config
	logger *slog.Logger
	origin *url.URL
}

// NewForwarder creates a Forwarder bound to the origin named in the config.
func NewForwarder(c *client.OriginClient, cfg *config.Config, logger *slog.Logger) (*Forwarder, error) {
	u, err := url.Parse(cfg.Origin.URL)
	if err != nil {
		return nil, fmt.Errorf("parse origin url: %w", err)
	}

	return &Forwarder{
		client: c,
		cfg:    cfg,
		logger: logger.With("component", "forwarder"),
		origin: u,
	}, nil
}

// Forward sends a RelayRequest to the origin and returns the response with
// its body still streaming. The caller is responsible for closing the body.
//
// Method, path, query, headers and body pass through unchanged except for
// hop-by-hop headers, which are scrubbed on both legs. Nothing is retried:
// an error means the origin never produced a response.
func (f *Forwarder) Forward(rr *model.RelayRequest) (*model.RelayResponse, error) {
	header := ScrubHeader(rr.Header)
	if _, ok := header["User-Agent"]; !ok {
		// An explicit empty value keeps the transport from inserting its
		// default Go-http-client agent; the origin sees no User-Agent,
		// exactly as the caller sent none.
		header.Set("User-Agent", "")
	}

	body := rr.Body
	if rr.ContentLength == 0 {
		// A declared-empty body goes out as no body at all so the
		// transport does not switch to chunked framing.
		body = nil
	}

	req, err := http.NewRequestWithContext(rr.Ctx, rr.Method, f.originURL(rr), body)
	if err != nil {
		return nil, fmt.Errorf("build origin request: %w", err)
	}
	req.Header = header
	if rr.ContentLength > 0 {
		req.ContentLength = rr.ContentLength
	}
	if f.cfg.Origin.PreserveHost && rr.Host != "" {
		req.Host = rr.Host
	}

	f.logger.Debug("forwarding request",
		"method", rr.Method,
		"path", rr.Path,
	)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward to origin: %w", err)
	}

	resp.Header = ScrubHeader(resp.Header)
	return resp, nil
}

// originURL swaps the origin's scheme and authority under the inbound path
// and query. The query string is reused verbatim.
func (f *Forwarder) originURL(rr *model.RelayRequest) string {
	u := *f.origin
	u.Path = rr.Path
	u.RawPath = rr.RawPath
	u.RawQuery = rr.RawQuery
	return u.String()
}
