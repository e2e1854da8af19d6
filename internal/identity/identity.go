// Package identity carries the resolved caller of a request.
package identity

import (
	"context"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/model"
)

// Identity 请求者身份；零值即匿名
type Identity struct {
	UserID   uint64
	Username string
	Role     model.Role
}

// Anonymous is the identity of a request without credentials.
var Anonymous = Identity{}

func (i Identity) Authenticated() bool { return i.UserID != 0 }

func (i Identity) IsAdmin() bool { return i.Authenticated() && i.Role == model.RoleAdmin }

// CanPublish reports whether the role may author posts when publishing is role-gated.
func (i Identity) CanPublish() bool {
	return i.Authenticated() && (i.Role == model.RoleAuthor || i.Role == model.RoleAdmin)
}

// Owns 是否为资源作者
func (i Identity) Owns(authorID uint64) bool {
	return i.Authenticated() && i.UserID == authorID
}

// Require 未登录时返回 Unauthorized
func (i Identity) Require() error {
	if !i.Authenticated() {
		return apperr.Unauthorized("authentication credentials were not provided")
	}
	return nil
}

// RequireAdmin 需要管理员角色
func (i Identity) RequireAdmin() error {
	if err := i.Require(); err != nil {
		return err
	}
	if !i.IsAdmin() {
		return apperr.Forbidden("admin role required")
	}
	return nil
}

// ParseAssignableRole validates a role that may be granted through the API.
// Admin is never assignable this way.
func ParseAssignableRole(s string) (model.Role, error) {
	switch model.Role(s) {
	case model.RoleGuest, model.RoleAuthor:
		return model.Role(s), nil
	}
	return "", apperr.Validation("invalid role: must be Guest or Author")
}

type ctxKey struct{}

func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext 取出身份，缺省为匿名
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(ctxKey{}).(Identity); ok {
		return id
	}
	return Anonymous
}
