// Package service holds the application services shared by handlers that
// do not belong to a single repository: today that is the notification
// path from domain changes to connected dashboards.
package service

import (
	"context"

	"github.com/SuyogBora/picode-server/internal/rbac"
)

// Role names that receive domain notifications next to SuperAdmin.
const (
	RoleAdmin          = "Admin"
	RoleContentManager = "ContentManager"
	RoleHRManager      = "HRManager"
	RoleSupportAgent   = "SupportAgent"
)

// Notification event names, one per domain.
const (
	EventBlog        = "notification:blog"
	EventCareer      = "notification:career"
	EventApplication = "notification:application"
	EventInquiry     = "notification:inquiry"
)

// Audience returns the roles notified about changes in a domain owned by
// domainRole.
func Audience(domainRole string) []string {
	return []string{rbac.RoleSuperAdmin, RoleAdmin, domainRole}
}

// Notifier pushes an event to the live connections of every user holding
// one of roles.  Implementations never fail the caller: delivery is best
// effort and problems are logged.
type Notifier interface {
	Notify(ctx context.Context, roles []string, event string, payload any)
}

// RoleNotifier is the registry side of a Notifier.
type RoleNotifier interface {
	NotifyRoles(roles []string, event string, payload any)
}

// LocalNotifier delivers to this process's connections only.
type LocalNotifier struct {
	Registry RoleNotifier
}

// NewLocalNotifier wraps the socket registry.
func NewLocalNotifier(r RoleNotifier) *LocalNotifier {
	return &LocalNotifier{Registry: r}
}

func (n *LocalNotifier) Notify(_ context.Context, roles []string, event string, payload any) {
	if n == nil || n.Registry == nil {
		return
	}
	n.Registry.NotifyRoles(roles, event, payload)
}

// Nop discards notifications.  Handlers fall back to it when no notifier
// is wired.
type Nop struct{}

func (Nop) Notify(context.Context, []string, string, any) {}
