package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/crossmark-io/crossmark-api/internal/middleware"
	"github.com/crossmark-io/crossmark-api/internal/models"
)

// claimsFromContext returns the authenticated actor, or nil when the route
// was reached without passing the JWT middleware.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}
