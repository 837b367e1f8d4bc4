// Package auth resolves the caller of a request into an explicit Context
// that every service call receives.
package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrForbidden          = errors.New("insufficient workspace role")
)

// Context identifies the caller and the workspace every query is scoped to.
type Context struct {
	UserID      string
	WorkspaceID string
	IsAdmin     bool
}

const ginKey = "ledgerflow.auth"

// FromGin returns the Context stored by Middleware.
func FromGin(c *gin.Context) (Context, bool) {
	v, ok := c.Get(ginKey)
	if !ok {
		return Context{}, false
	}
	ac, ok := v.(Context)
	return ac, ok
}

// RequireAdmin fails with ErrForbidden for non-admin members.
func (ac Context) RequireAdmin() error {
	if !ac.IsAdmin {
		return ErrForbidden
	}
	return nil
}
