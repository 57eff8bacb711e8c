package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quietude83/quietude/internal/middleware"
	"github.com/quietude83/quietude/internal/models"
	"github.com/quietude83/quietude/internal/policy"
)

// requireScope resolves the caller's scope for an action and writes the
// 403 itself when access is denied. 401 never happens here — the auth
// middleware already established identity.
func requireScope(c *gin.Context, res policy.Resource, act policy.Action) (policy.Scope, bool) {
	scope := policy.Allow(middleware.CurrentUser(c), res, act)
	if scope == policy.ScopeNone {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return scope, false
	}
	return scope, true
}

// ScopeMiddleware guards a whole route group with one policy rule.
// Used where every route in the group shares the same requirement
// (the superuser slot inventory, the user directory).
func ScopeMiddleware(res policy.Resource, act policy.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if policy.Allow(middleware.CurrentUser(c), res, act) == policy.ScopeNone {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// ownerFilter turns a scope into the repository owner restriction:
// ScopeOwn narrows queries to the caller's rows, ScopeAll sees
// everything.
func ownerFilter(u *models.User, scope policy.Scope) *uuid.UUID {
	if scope == policy.ScopeOwn {
		id := u.ID
		return &id
	}
	return nil
}

// pathUUID parses a uuid path parameter, answering 404 on garbage —
// a malformed id can't name any record.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional uuid query parameter. A present but
// malformed value is a 400.
func queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a uuid"})
		return nil, false
	}
	return &id, true
}
