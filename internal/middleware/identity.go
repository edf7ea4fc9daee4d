package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/SuyogBora/picode-server/internal/config"
)

// userID returns the authenticated user's id as a string, or "guest"
// when JWTAuth has not run or rejected the request.
func userID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "guest"
}

// rateKey joins the request dimensions named by strategy, e.g.
// "ip_route" or "ip_user_route", under prefix.  Unknown parts are
// ignored; a strategy naming nothing known falls back to all three.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	for _, dim := range strings.Split(strings.ToLower(cfg.KeyStrategy), "_") {
		switch dim {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			parts = append(parts, "ip", ip)
		case "user":
			parts = append(parts, "user", userID(c))
		case "route":
			parts = append(parts, "route", c.Request().Method+" "+c.Path())
		}
	}
	if len(parts) == 1 {
		cfg.KeyStrategy = "ip_user_route"
		return rateKey(cfg, c)
	}
	return strings.Join(parts, ":")
}
