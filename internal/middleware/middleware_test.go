package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuyogBora/picode-server/internal/config"
	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/repository"
	"github.com/SuyogBora/picode-server/internal/utils"
)

const secret = "middleware-test-secret"

type loaderFunc func(ctx context.Context, id uint64) (*model.Principal, error)

func (f loaderFunc) GetPrincipal(ctx context.Context, id uint64) (*model.Principal, error) {
	return f(ctx, id)
}

func users(ps ...*model.Principal) PrincipalLoader {
	byID := map[uint64]*model.Principal{}
	for _, p := range ps {
		byID[p.ID] = p
	}
	return loaderFunc(func(_ context.Context, id uint64) (*model.Principal, error) {
		if p, ok := byID[id]; ok {
			return p, nil
		}
		return nil, repository.ErrNotFound
	})
}

func withPermissions(id uint64, role string, codes ...[2]string) *model.Principal {
	r := model.Role{Name: role}
	for _, c := range codes {
		r.Permissions = append(r.Permissions, model.Permission{Resource: c[0], Action: c[1]})
	}
	return &model.Principal{ID: id, IsActive: true, Roles: []model.Role{r}}
}

func bearer(t *testing.T, id uint64) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, 15)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthLoadsPrincipal(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		p := PrincipalFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"id": p.ID, "uid": userID(c)})
	}, JWTAuth(secret, users(withPermissions(7, "Admin"))))

	rec := do(e, http.MethodGet, "/me", bearer(t, 7))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"uid":"7"}`, rec.Body.String())
}

func TestJWTAuthRejections(t *testing.T) {
	inactive := withPermissions(8, "Admin")
	inactive.IsActive = false
	e := echo.New()
	e.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		JWTAuth(secret, users(inactive)))

	expired, err := utils.NewAccessToken(secret, 8, -1)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"garbage":        "Bearer nope",
		"expired":        "Bearer " + expired.Token,
		"unknown user":   bearer(t, 99),
		"inactive user":  bearer(t, 8),
	}
	for name, auth := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", auth).Code)
		})
	}
}

func TestRequirePermission(t *testing.T) {
	loader := users(
		withPermissions(1, "Editor", [2]string{"blogs", "create"}),
		withPermissions(2, "HRManager", [2]string{"careers", "manage"}),
		withPermissions(3, "SuperAdmin"),
	)
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.POST("/careers", ok, JWTAuth(secret, loader), RequirePermission("careers:create"))
	e.POST("/open", ok, RequirePermission("careers:create"))

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/careers", bearer(t, 1)).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/careers", bearer(t, 2)).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/careers", bearer(t, 3)).Code)
	// no JWTAuth in front means no principal
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/open", "").Code)
}

func TestRequireRole(t *testing.T) {
	loader := users(withPermissions(1, "Editor"), withPermissions(2, "Admin"), withPermissions(3, "SuperAdmin"))
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		JWTAuth(secret, loader), RequireRole("Admin"))

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/admin", bearer(t, 1)).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/admin", bearer(t, 2)).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/admin", bearer(t, 3)).Code)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.POST("/inquiries", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(cfg, rdb, nil))

	first := do(e, http.MethodPost, "/inquiries", "")
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/inquiries", "").Code)

	blocked := do(e, http.MethodPost, "/inquiries", "")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestAfterAuthKeysBucketByUser(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "user_route",
		Prefix:         "test:rl",
		Debug:          true,
	}
	e := echo.New()
	e.GET("/blogs", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		AfterAuth(JWTAuth(secret, users(withPermissions(1, "Admin"), withPermissions(2, "Admin"))), NewTokenBucket(cfg, rdb, nil)))

	first := do(e, http.MethodGet, "/blogs", bearer(t, 1))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Header().Get("X-RateLimit-Key"), "user:1")
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodGet, "/blogs", bearer(t, 1)).Code)

	// same client address, different account, separate bucket
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/blogs", bearer(t, 2)).Code)
	// rejected tokens never reach the bucket
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/blogs", "").Code)
}

func TestTokenBucketFailsOpenWithoutRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	defer rdb.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "x"}
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, nil))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/", "").Code)
}

func TestRedisCacheHitAndInvalidate(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{"GET": true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "test:cache",
	}
	calls := 0
	e := echo.New()
	e.GET("/blogs/:slug", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"slug": c.Param("slug")})
	}, NewRedisCache(cfg, rdb))

	miss := do(e, http.MethodGet, "/blogs/a", "")
	assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))
	hit := do(e, http.MethodGet, "/blogs/a", "")
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, miss.Body.String(), hit.Body.String())
	assert.Equal(t, 1, calls)

	other := do(e, http.MethodGet, "/blogs/b", "")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"slug":"b"}`, other.Body.String())

	NewCacheInvalidator(cfg, rdb, nil).Invalidate(context.Background())
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/blogs/a", "").Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestNilCacheInvalidatorIsNoop(t *testing.T) {
	var ci *CacheInvalidator
	assert.NotPanics(t, func() { ci.Invalidate(context.Background()) })
	assert.Nil(t, NewCacheInvalidator(config.CacheConfig{}, nil, nil))
}
