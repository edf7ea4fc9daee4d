package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuyogBora/picode-server/internal/handler"
	"github.com/SuyogBora/picode-server/internal/middleware"
	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/repository"
	"github.com/SuyogBora/picode-server/internal/utils"
	"github.com/SuyogBora/picode-server/internal/validation"
)

const secret = "router-secret"

type principals map[uint64]*model.Principal

func (p principals) GetPrincipal(_ context.Context, id uint64) (*model.Principal, error) {
	if u, ok := p[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func role(name string, codes ...[2]string) model.Role {
	r := model.Role{Name: name}
	for _, c := range codes {
		r.Permissions = append(r.Permissions, model.Permission{Resource: c[0], Action: c[1]})
	}
	return r
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	users := principals{
		1: {ID: 1, IsActive: true, RoleIDs: []uint64{1}, Roles: []model.Role{role("ContentManager", [2]string{"blogs", "manage"}, [2]string{"files", "read"})}},
		2: {ID: 2, IsActive: true, RoleIDs: []uint64{2}, Roles: []model.Role{role("Viewer")}},
	}
	e := echo.New()
	e.Validator = validation.New()
	auth := middleware.JWTAuth(secret, users)
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }

	RegisterRoutes(e, nil, nil, "/ws")
	RegisterRBAC(e, auth, handler.NewRoleHandler(nil, nil), handler.NewPermissionHandler(nil, nil), handler.NewUserHandler(nil, nil, nil))
	admin := Admin{
		Blogs:        handler.NewBlogHandler(nil, nil, nil, nil),
		Careers:      handler.NewCareerHandler(nil, nil, nil, nil),
		Applications: handler.NewApplicationHandler(nil, nil, nil),
		Inquiries:    handler.NewInquiryHandler(nil, nil, nil),
		Files:        handler.NewFileHandler(nil, nil),
		Dashboard:    handler.NewDashboardHandler(nil, nil),
	}
	RegisterAdmin(e, auth, admin)
	RegisterPublic(e, admin, pass, pass, pass)
	return e
}

func call(t *testing.T, e *echo.Echo, method, path string, uid uint64) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if uid != 0 {
		tok, err := utils.NewAccessToken(secret, uid, 5)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestAdminRoutesRequireToken(t *testing.T) {
	e := newServer(t)
	for _, path := range []string{"/v1/blogs", "/v1/careers", "/v1/applications", "/v1/inquiries", "/v1/roles", "/v1/users", "/v1/dashboard"} {
		assert.Equal(t, http.StatusUnauthorized, call(t, e, http.MethodGet, path, 0), path)
	}
}

func TestAdminRoutesCheckPermissions(t *testing.T) {
	e := newServer(t)

	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodGet, "/v1/roles", 1))
	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodGet, "/v1/applications", 1))
	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodGet, "/v1/files/url?key=blogs/a.png", 2))
	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodGet, "/v1/dashboard", 2))

	// Past the guard the nil presigner answers 503.
	assert.Equal(t, http.StatusServiceUnavailable, call(t, e, http.MethodGet, "/v1/files/url?key=blogs/a.png", 1))
}

func TestHealthWithoutDatabase(t *testing.T) {
	e := newServer(t)
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/healthz", 0))
}
