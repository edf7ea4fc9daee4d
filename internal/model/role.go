package model

import "time"

// Role represents a row in the `roles` table: a named bundle of
// permissions.  At most one role carries IsDefault at a time; the role
// repository enforces that when the flag is set.
type Role struct {
	ID            uint64       `json:"id"`             // roles.id
	Name          string       `json:"name"`           // roles.name (unique)
	Description   string       `json:"description"`    // roles.description
	IsDefault     bool         `json:"is_default"`     // roles.is_default
	PermissionIDs []uint64     `json:"permission_ids"` // role_permissions.permission_id
	Permissions   []Permission `json:"permissions"`    // resolved permissions
	CreatedAt     time.Time    `json:"created_at"`     // roles.created_at
	UpdatedAt     time.Time    `json:"updated_at"`     // roles.updated_at
}

// Permission is an atomic (resource, action) capability grant such as
// (blogs, create).  The pair is unique across the `permissions` table.
type Permission struct {
	ID          uint64    `json:"id"`          // permissions.id
	Resource    string    `json:"resource"`    // permissions.resource
	Action      string    `json:"action"`      // permissions.action
	Description string    `json:"description"` // permissions.description
	CreatedAt   time.Time `json:"created_at"`  // permissions.created_at
}

// Code returns the "resource:action" composite used by permission checks.
func (p Permission) Code() string {
	return p.Resource + ":" + p.Action
}
