package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"edge-relay/internal/metrics"
	"edge-relay/internal/model"
	"edge-relay/internal/relay"
	"edge-relay/internal/ws"
)

// RelayHandler forwards every inbound request to the configured origin.
type RelayHandler struct {
	forwarder *relay.Forwarder
	sockets   *ws.Relayer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewRelayHandler creates a RelayHandler. The sockets parameter may be nil
// when the execution mode cannot carry upgraded connections; upgrade
// requests are then forwarded as plain HTTP. The metrics parameter may be
// nil to disable byte accounting.
func NewRelayHandler(fw *relay.Forwarder, sockets *ws.Relayer, m *metrics.Metrics, logger *slog.Logger) *RelayHandler {
	return &RelayHandler{
		forwarder: fw,
		sockets:   sockets,
		metrics:   m,
		logger:    logger.With("component", "relay_handler"),
	}
}

// Handle relays the request to the origin and streams the response back.
// WebSocket upgrades divert to the frame relay before any forwarding.
func (h *RelayHandler) Handle(c echo.Context) error {
	req := c.Request()

	if h.sockets != nil && relay.IsWebSocketUpgrade(req.Header) {
		if err := h.sockets.Relay(c.Response(), req); err != nil {
			return h.mapError(c, err)
		}
		return nil
	}

	body := req.Body
	if h.metrics != nil && body != nil {
		body = &countingBody{
			rc:      body,
			counter: h.metrics.RelayedBytes.WithLabelValues(metrics.DirectionInbound),
		}
	}

	rr := &model.RelayRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		Host:          req.Host,
		Path:          req.URL.Path,
		RawPath:       req.URL.RawPath,
		RawQuery:      req.URL.RawQuery,
		Header:        req.Header,
		Body:          body,
		ContentLength: req.ContentLength,
	}

	resp, err := h.forwarder.Forward(rr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Copy the origin headers verbatim; hygiene scrubbing already happened
	// in the forwarder.
	res := c.Response()
	for key, vals := range resp.Header {
		for _, v := range vals {
			res.Header().Add(key, v)
		}
	}

	res.WriteHeader(resp.StatusCode)

	// Stream the origin body directly to the caller, flushing each chunk so
	// the first bytes arrive while the origin is still sending. If the copy
	// fails mid-stream (client disconnect, network error), the status line
	// has already gone out, so the caller sees a truncated response with
	// the original status. This is an inherent trade-off of streaming
	// relays; the error is logged for observability.
	out := io.Writer(res)
	if f, ok := res.Writer.(http.Flusher); ok {
		out = flushWriter{w: res, f: f}
	}
	n, err := io.Copy(out, resp.Body)
	if h.metrics != nil {
		h.metrics.RelayedBytes.WithLabelValues(metrics.DirectionOutbound).Add(float64(n))
	}
	if err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

func (h *RelayHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("relay error",
		"err", err,
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "origin request timed out",
		})
	}

	// The configured origin timeout surfaces as a transport-level timeout
	// (a url.Error whose inner error reports Timeout), not as a context
	// deadline; it is still a timeout to the caller.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "origin request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "origin host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "origin connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "origin request failed",
	})
}

// flushWriter pushes each chunk to the caller as soon as it is written, so
// the first origin bytes arrive before the origin has finished sending.
type flushWriter struct {
	w io.Writer
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if n > 0 {
		fw.f.Flush()
	}
	return n, err
}

// countingBody counts request body bytes as the origin consumes them.
type countingBody struct {
	rc      io.ReadCloser
	counter prometheus.Counter
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.counter.Add(float64(n))
	}
	return n, err
}

func (b *countingBody) Close() error {
	return b.rc.Close()
}
