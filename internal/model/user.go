package model

import "time"

// User represents an administrator or staff account as stored in the
// `users` table.  Roles holds the resolved role records (each with its
// permissions loaded) and is only populated by repository methods that
// explicitly join the RBAC tables.  RoleIDs carries the raw references
// from `user_roles`; a user that has RoleIDs but no Roles is considered
// unresolved and every capability check against it fails closed.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  Name         – display name.
//  PasswordHash – bcrypt hashed password (never serialized).
//  IsActive     – whether the account may sign in.
//  RoleIDs      – unresolved role references.
//  Roles        – resolved roles with permissions.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`            // users.id
	Email        string    `json:"email"`         // users.email
	Name         string    `json:"name"`          // users.name
	PasswordHash string    `json:"-"`             // users.password_hash
	IsActive     bool      `json:"is_active"`     // users.is_active
	RoleIDs      []uint64  `json:"role_ids"`      // user_roles.role_id
	Roles        []Role    `json:"roles"`         // resolved from roles + role_permissions
	CreatedAt    time.Time `json:"created_at"`    // users.created_at
	UpdatedAt    time.Time `json:"updated_at"`    // users.updated_at
}

// Principal is the authenticated identity attached to a request or a
// real-time connection.  It is the same record as User; the alias exists
// so signatures read as "who is acting" rather than "what is stored".
type Principal = User

// PermissionCodes flattens the resolved roles into a deduplicated list of
// "resource:action" strings, preserving first-seen order.
func (u *User) PermissionCodes() []string {
	if u == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			code := p.Code()
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	return out
}

// RoleNames returns the names of the resolved roles.
func (u *User) RoleNames() []string {
	if u == nil {
		return nil
	}
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name)
	}
	return out
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
