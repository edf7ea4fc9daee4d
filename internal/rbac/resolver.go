// Package rbac decides whether an authenticated principal may perform an
// action.  Checks are pure functions over a principal whose roles and
// permissions have already been loaded (see repository.UserRepo.GetPrincipal).
// Nothing here performs I/O or caches results: a principal that carries only
// unresolved role or permission references is treated as holding nothing.
package rbac

import (
	"errors"
	"strings"

	"github.com/SuyogBora/picode-server/internal/model"
)

const (
	// RoleSuperAdmin bypasses every role and permission check.
	RoleSuperAdmin = "SuperAdmin"
	// ActionManage grants every action on its resource.
	ActionManage = "manage"
	// ResourceAll combined with ActionManage grants every action on every resource.
	ResourceAll = "all"
)

var (
	// ErrUnauthenticated is reported when no principal is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is reported when the principal lacks the capability.
	ErrForbidden = errors.New("forbidden")
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

// Allowed reports whether the decision grants access.
func (d Decision) Allowed() bool { return d == Allow }

// Err maps a deny decision to its sentinel error; Allow yields nil.
func (d Decision) Err() error {
	switch d {
	case DenyUnauthenticated:
		return ErrUnauthenticated
	case DenyForbidden:
		return ErrForbidden
	}
	return nil
}

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyForbidden:
		return "forbidden"
	}
	return "unknown"
}

// HasRole reports whether any resolved role of p is named roleName.
func HasRole(p *model.Principal, roleName string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r.Name == roleName {
			return true
		}
	}
	return false
}

// HasPermission reports whether any resolved role of p grants code, given
// as "resource:action".
func HasPermission(p *model.Principal, code string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		for _, perm := range r.Permissions {
			if perm.Code() == code {
				return true
			}
		}
	}
	return false
}

// Authorize allows p when it is a SuperAdmin or holds any of requiredRoles.
func Authorize(p *model.Principal, requiredRoles []string) Decision {
	if p == nil {
		return DenyUnauthenticated
	}
	if HasRole(p, RoleSuperAdmin) {
		return Allow
	}
	for _, r := range requiredRoles {
		if HasRole(p, r) {
			return Allow
		}
	}
	return DenyForbidden
}

// AuthorizePermission allows p when it is a SuperAdmin, directly holds any
// of requiredPermissions, or holds "<resource>:manage" or "all:manage" for
// the resource of any required permission.
func AuthorizePermission(p *model.Principal, requiredPermissions []string) Decision {
	if p == nil {
		return DenyUnauthenticated
	}
	if HasRole(p, RoleSuperAdmin) {
		return Allow
	}
	for _, code := range requiredPermissions {
		if HasPermission(p, code) {
			return Allow
		}
	}
	globalManage := ResourceAll + ":" + ActionManage
	for _, code := range requiredPermissions {
		resource, _, _ := strings.Cut(code, ":")
		if HasPermission(p, resource+":"+ActionManage) || HasPermission(p, globalManage) {
			return Allow
		}
	}
	return DenyForbidden
}
