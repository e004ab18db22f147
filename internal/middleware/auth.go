package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/taskcrew/taskbot/internal/constants"
	apierrors "github.com/taskcrew/taskbot/internal/errors"
	"github.com/taskcrew/taskbot/internal/store"
)

// RequireGateway verifies the shared gateway token. The chat gateway
// is the only caller; user-level authentication happens there.
func RequireGateway(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(constants.HeaderGatewayToken)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			apierrors.Unauthorized(c, "Invalid gateway token")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePrincipal extracts the acting principal forwarded by the
// gateway and stores it in the request context.
func RequirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := c.GetHeader(constants.HeaderPrincipalID)
		if principal == "" {
			apierrors.Unauthorized(c, "Missing principal")
			c.Abort()
			return
		}
		c.Set(constants.ContextKeyPrincipalID, principal)
		c.Set(constants.ContextKeyIsOwner, c.GetHeader(constants.HeaderPrincipalOwner) == "true")
		c.Next()
	}
}

// GetPrincipal retrieves the current principal id from context.
func GetPrincipal(c *gin.Context) (string, bool) {
	v, exists := c.Get(constants.ContextKeyPrincipalID)
	if !exists {
		return "", false
	}
	principal, ok := v.(string)
	return principal, ok && principal != ""
}

// Authorizer resolves the privilege rule: admin is the server
// owner or a static allow-list entry; privileged is admin or manager.
type Authorizer struct {
	managers *store.ManagerRegistry
	admins   map[string]struct{}
}

// NewAuthorizer creates an Authorizer over the static admin list.
func NewAuthorizer(managers *store.ManagerRegistry, admins []string) *Authorizer {
	set := make(map[string]struct{}, len(admins))
	for _, id := range admins {
		set[id] = struct{}{}
	}
	return &Authorizer{managers: managers, admins: set}
}

// IsAdmin reports whether the principal is the server owner or on the
// static allow-list.
func (a *Authorizer) IsAdmin(c *gin.Context, principal string) bool {
	if owner, _ := c.Get(constants.ContextKeyIsOwner); owner == true {
		return true
	}
	_, ok := a.admins[principal]
	return ok
}

// IsPrivileged reports whether the principal is an admin or a manager.
func (a *Authorizer) IsPrivileged(c *gin.Context, principal string) bool {
	return a.IsAdmin(c, principal) || a.managers.IsManager(principal)
}

// RequireAdmin guards admin-only commands.
func (a *Authorizer) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if !a.IsAdmin(c, principal) {
			apierrors.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePrivileged guards admin-or-manager commands.
func (a *Authorizer) RequirePrivileged() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if !a.IsPrivileged(c, principal) {
			apierrors.Forbidden(c, "Manager or admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
