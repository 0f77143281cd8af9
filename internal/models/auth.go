package models

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gift-approval-api/internal/workflow"
)

// JWTClaims is the identity-provider token payload the API trusts.
type JWTClaims struct {
	UserID      string              `json:"user_id"`
	Role        string              `json:"role"`
	Permissions map[string][]string `json:"permissions"`
	Name        string              `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the workflow identity input.
func (c *JWTClaims) Actor() *workflow.Actor {
	if c == nil {
		return nil
	}
	return &workflow.Actor{
		ID:          c.UserID,
		Role:        workflow.Role(c.Role),
		Permissions: workflow.Permissions(c.Permissions),
	}
}
