package socket

import (
	"context"
	"errors"
	"strings"

	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/repository"
	"github.com/SuyogBora/picode-server/internal/utils"
)

// Handshake is the first frame a client sends after the upgrade.
type Handshake struct {
	Token string `json:"token"`
}

// Authenticator turns a handshake token into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Principal, error)
}

// PrincipalLoader loads a user with roles and permissions resolved.
type PrincipalLoader interface {
	GetPrincipal(ctx context.Context, id uint64) (*model.Principal, error)
}

// TokenAuthenticator validates access tokens issued by the auth handler.
type TokenAuthenticator struct {
	Secret string
	Users  PrincipalLoader
}

// NewTokenAuthenticator wires the JWT secret and the principal loader.
func NewTokenAuthenticator(secret string, users PrincipalLoader) *TokenAuthenticator {
	return &TokenAuthenticator{Secret: secret, Users: users}
}

// Authenticate verifies the token signature and expiry, then loads the
// user it names.  Existence is the only account check.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrTokenNotProvided
	}
	uid, err := utils.ParseAccessToken(a.Secret, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	p, err := a.Users.GetPrincipal(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if p == nil {
		return nil, ErrUserNotFound
	}
	return p, nil
}
