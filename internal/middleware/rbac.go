package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gift-approval-api/internal/models"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
	"github.com/noah-isme/gift-approval-api/pkg/response"
)

// RequireActor rejects requests whose claims do not form a usable workflow
// actor, before any handler touches the store.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if err := workflow.ValidateActor(claims.Actor()); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCapability short-circuits routes whose actor lacks caps on module.
// Services re-check through the workflow gate.
func RequireCapability(module string, caps ...workflow.Capability) gin.HandlerFunc {
	gate := workflow.NewGate(module)
	return func(c *gin.Context) {
		value, _ := c.Get(ContextUserKey)
		claims, _ := value.(*models.JWTClaims)
		actor := claims.Actor()
		if err := workflow.ValidateActor(actor); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		for _, capability := range caps {
			if !actor.Permissions.Has(gate.Module(), capability) {
				response.Error(c, appErrors.WithDetails(
					appErrors.Clone(appErrors.ErrPermissionDenied, "missing "+string(capability)+" permission on "+gate.Module()),
					map[string]interface{}{"missingPermission": string(capability), "module": gate.Module()},
				))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
