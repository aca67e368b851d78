package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sevaproject/booking-api/internal/middleware"
	"github.com/sevaproject/booking-api/internal/models"
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

// currentUser projects the JWT claims into the user shape services expect.
func currentUser(c *gin.Context) *models.User {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return &models.User{
		ID:          claims.UserID,
		Email:       claims.Email,
		FullName:    claims.FullName,
		CompanyName: claims.CompanyName,
		Role:        claims.Role,
	}
}
