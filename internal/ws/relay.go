// Package ws relays WebSocket sessions between the caller and the origin.
package ws

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"edge-relay/internal/config"
	"edge-relay/internal/metrics"
	"edge-relay/internal/relay"
)

// Relayer upgrades inbound WebSocket requests and pipes frames to and from
// the configured origin. The origin connection is established first: if the
// origin cannot be reached, the caller is never upgraded.
type Relayer struct {
	origin   *url.URL
	dialer   *websocket.Dialer
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewRelayer creates a Relayer bound to the origin named in the config.
// The metrics parameter is optional; pass nil to disable session metrics.
func NewRelayer(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Relayer, error) {
	u, err := url.Parse(cfg.Origin.URL)
	if err != nil {
		return nil, fmt.Errorf("parse origin url: %w", err)
	}

	return &Relayer{
		origin: u,
		dialer: &websocket.Dialer{
			HandshakeTimeout: time.Duration(cfg.Origin.TimeoutSeconds) * time.Second,
		},
		upgrader: websocket.Upgrader{
			// Origin checks belong to the origin service; the relay does
			// not impose its own browser-origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger.With("component", "ws_relayer"),
		metrics: m,
	}, nil
}

// Relay performs the two-sided handshake and pumps frames until either side
// closes. An error is returned only before the caller has been upgraded, so
// the caller's error handling can still produce a plain HTTP response.
func (r *Relayer) Relay(w http.ResponseWriter, req *http.Request) error {
	header := relay.ScrubHeader(req.Header)
	// The dialer generates its own handshake headers and rejects any
	// duplicates supplied by the caller.
	for _, key := range []string{
		"Sec-Websocket-Key",
		"Sec-Websocket-Version",
		"Sec-Websocket-Extensions",
		"Sec-Websocket-Protocol",
	} {
		header.Del(key)
	}

	dialer := *r.dialer
	dialer.Subprotocols = websocket.Subprotocols(req)

	originConn, resp, err := dialer.DialContext(req.Context(), r.originURL(req.URL), header)
	if err != nil {
		if resp != nil {
			// The origin answered but refused the upgrade; its refusal is
			// relayed as a plain HTTP response. The dialer caps how much of
			// the refusal body it captures, so Content-Length comes off
			// rather than promising bytes that were never read.
			defer func() { _ = resp.Body.Close() }()
			hdr := relay.ScrubHeader(resp.Header)
			hdr.Del("Content-Length")
			for key, values := range hdr {
				w.Header()[key] = values
			}
			w.WriteHeader(resp.StatusCode)
			_, _ = io.Copy(w, resp.Body)
			return nil
		}
		return fmt.Errorf("dial origin websocket: %w", err)
	}
	defer func() { _ = originConn.Close() }()

	respHeader := http.Header{}
	if proto := resp.Header.Get("Sec-Websocket-Protocol"); proto != "" {
		respHeader.Set("Sec-Websocket-Protocol", proto)
	}

	clientConn, err := r.upgrader.Upgrade(w, req, respHeader)
	if err != nil {
		// Upgrade has already written its HTTP error to the caller.
		r.logger.Error("upgrade inbound connection", "err", err)
		return nil
	}
	defer func() { _ = clientConn.Close() }()

	if r.metrics != nil {
		r.metrics.WebsocketSessions.Inc()
		r.metrics.WebsocketSessionsActive.Inc()
		defer r.metrics.WebsocketSessionsActive.Dec()
	}

	r.logger.Debug("websocket session open", "path", req.URL.Path)

	var inbound, outbound prometheus.Counter
	if r.metrics != nil {
		inbound = r.metrics.RelayedBytes.WithLabelValues(metrics.DirectionInbound)
		outbound = r.metrics.RelayedBytes.WithLabelValues(metrics.DirectionOutbound)
	}

	errc := make(chan error, 2)
	go pump(clientConn, originConn, inbound, errc)
	go pump(originConn, clientConn, outbound, errc)
	err = <-errc

	if err != nil && !websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		r.logger.Debug("websocket session ended", "err", err)
	}

	// Mirror the close frame to both sides; whichever connection already
	// went away simply ignores it.
	code := websocket.CloseNormalClosure
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) &&
		closeErr.Code != websocket.CloseNoStatusReceived &&
		closeErr.Code != websocket.CloseAbnormalClosure {
		code = closeErr.Code
	}
	message := websocket.FormatCloseMessage(code, "")
	deadline := time.Now().Add(time.Second)
	_ = clientConn.WriteControl(websocket.CloseMessage, message, deadline)
	_ = originConn.WriteControl(websocket.CloseMessage, message, deadline)

	return nil
}

// originURL rewrites the inbound URL onto the origin's WebSocket endpoint.
func (r *Relayer) originURL(u *url.URL) string {
	target := *r.origin
	if target.Scheme == "https" {
		target.Scheme = "wss"
	} else {
		target.Scheme = "ws"
	}
	target.Path = u.Path
	target.RawPath = u.RawPath
	target.RawQuery = u.RawQuery
	return target.String()
}

// pump moves frames from src to dst until a read or write fails. The first
// failure from either direction ends the session.
func pump(src, dst *websocket.Conn, bytes prometheus.Counter, errc chan<- error) {
	for {
		messageType, data, err := src.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		if bytes != nil {
			bytes.Add(float64(len(data)))
		}
		if err := dst.WriteMessage(messageType, data); err != nil {
			errc <- err
			return
		}
	}
}
