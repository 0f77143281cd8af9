package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gift-approval-api/internal/middleware"
	"github.com/noah-isme/gift-approval-api/internal/models"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext returns nil when no claims are present; the workflow gate
// reports that as a validation error.
func actorFromContext(c *gin.Context) *workflow.Actor {
	return claimsFromContext(c).Actor()
}

func idParam(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer"),
			map[string]interface{}{name: raw},
		)
	}
	return id, nil
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

func queryList(c *gin.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func bindError(err error, what string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+what+" payload")
}
