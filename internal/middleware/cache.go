package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/config"
)

// teeWriter forwards the response and keeps up to limit bytes of it.
type teeWriter struct {
	http.ResponseWriter
	status    int
	body      bytes.Buffer
	written   int64
	limit     int64
	truncated bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.written += int64(len(b))
	switch {
	case w.truncated:
	case w.limit > 0 && w.written > w.limit:
		w.truncated = true
	default:
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// cachedResponse is the value stored per key.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

// responseKey hashes the parts named by cfg.KeyStrategy under cfg.Prefix.
// The request path is used rather than the route template so /blogs/a and
// /blogs/b do not share an entry.
func responseKey(cfg config.CacheConfig, r *http.Request) string {
	strategy := strings.ToLower(cfg.KeyStrategy)
	if strategy == "" {
		strategy = "route_query"
	}
	h := sha1.New()
	for _, dim := range strings.Split(strategy, "_") {
		switch dim {
		case "method":
			fmt.Fprintf(h, "m=%s;", r.Method)
		case "route":
			fmt.Fprintf(h, "p=%s;", r.URL.Path)
		case "query":
			fmt.Fprintf(h, "q=%s;", r.URL.RawQuery)
		}
	}
	return fmt.Sprintf("%s:%x", cfg.Prefix, h.Sum(nil))
}

// replay writes a cached response, skipping headers the server sets.
func replay(c echo.Context, cr cachedResponse) {
	out := c.Response().Header()
	for k, vals := range cr.Header {
		if k == echo.HeaderContentLength || k == "X-Cache" {
			continue
		}
		for _, v := range vals {
			out.Add(k, v)
		}
	}
	out.Set("X-Cache", "HIT")
	c.Response().WriteHeader(cr.Status)
	if len(cr.Body) > 0 {
		_, _ = c.Response().Write(cr.Body)
	}
}

// NewRedisCache serves repeated public reads from Redis.  Only complete
// 200 responses are stored, headers included, so a HIT matches the MISS
// that filled it.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if !cfg.Methods[strings.ToUpper(r.Method)] {
				return next(c)
			}
			key := responseKey(cfg, r)

			if raw, err := rdb.Get(r.Context(), key).Bytes(); err == nil {
				var cr cachedResponse
				if json.Unmarshal(raw, &cr) == nil && cr.Status != 0 {
					replay(c, cr)
					return nil
				}
			}

			tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = tw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if tw.status != http.StatusOK || tw.truncated {
				return nil
			}
			raw, err := json.Marshal(cachedResponse{Status: tw.status, Header: c.Response().Header().Clone(), Body: tw.body.Bytes()})
			if err == nil {
				_ = rdb.SetEx(context.WithoutCancel(r.Context()), key, raw, ttl).Err()
			}
			return nil
		}
	}
}

// CacheInvalidator drops every cached response under a prefix.  Handlers
// call it after writes to the content served through NewRedisCache.
type CacheInvalidator struct {
	rdb    *redis.Client
	prefix string
	logger *zap.Logger
}

// NewCacheInvalidator returns nil when caching is off; a nil invalidator
// is valid and does nothing.
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client, logger *zap.Logger) *CacheInvalidator {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheInvalidator{rdb: rdb, prefix: cfg.Prefix, logger: logger}
}

// Invalidate scans and deletes the prefix's keys.  Errors are logged; a
// stale entry expires with its TTL anyway.
func (ci *CacheInvalidator) Invalidate(ctx context.Context) {
	if ci == nil {
		return
	}
	iter := ci.rdb.Scan(ctx, 0, ci.prefix+":*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		ci.logger.Warn("cache scan failed", zap.String("prefix", ci.prefix), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := ci.rdb.Del(ctx, keys...).Err(); err != nil {
		ci.logger.Warn("cache invalidate failed", zap.String("prefix", ci.prefix), zap.Error(err))
	}
}
