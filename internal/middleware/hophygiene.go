package middleware

import (
	"github.com/labstack/echo/v4"

	"edge-relay/internal/relay"
)

// HopHygiene returns an Echo middleware that strips hop-by-hop headers from
// the inbound request before any handler sees them. Responses are left
// untouched: what the origin sends is what the caller gets.
//
// WebSocket upgrades keep their Connection and Upgrade headers so the
// handshake can still be detected downstream; the WebSocket path does its
// own scrubbing when it dials the origin.
func HopHygiene() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !relay.IsWebSocketUpgrade(req.Header) {
				req.Header = relay.ScrubHeader(req.Header)
			}
			return next(c)
		}
	}
}
