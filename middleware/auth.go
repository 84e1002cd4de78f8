package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/utils"
)

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, utils.StandardResponse{Status: "error", Message: message})
}

// UserAuthMiddleware requires a user token issued by social login
func UserAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.LogInfo("UserAuthMiddleware called")

		tokenString, ok := utils.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			utils.LogError("Missing or malformed Authorization header")
			abort(c, http.StatusUnauthorized, utils.ErrUnauthorized)
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.LogError("Invalid token: %v", err)
			abort(c, http.StatusUnauthorized, utils.ErrUnauthorized)
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			utils.LogError("User ID not found in token claims")
			abort(c, http.StatusUnauthorized, utils.ErrUnauthorized)
			return
		}

		var user models.User
		if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
			utils.LogError("User not found: %v", err)
			abort(c, http.StatusUnauthorized, "User not found")
			return
		}

		c.Set("user", user)
		utils.LogDebug("User %s authenticated successfully", user.ID)
		c.Next()
	}
}

// AdminAuthMiddleware requires an admin token that has not been logged out
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.LogInfo("AdminAuthMiddleware called")

		tokenString, ok := utils.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			utils.LogError("Missing or malformed Authorization header")
			abort(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.LogError("Invalid admin token: %v", err)
			abort(c, http.StatusUnauthorized, utils.ErrUnauthorized)
			return
		}

		adminID, ok := claims["admin_id"].(float64)
		if !ok {
			utils.LogError("Admin ID not found in token claims")
			abort(c, http.StatusUnauthorized, utils.ErrUnauthorized)
			return
		}

		var revoked int64
		config.DB.Model(&models.BlacklistedToken{}).Where("token = ?", tokenString).Count(&revoked)
		if revoked > 0 {
			utils.LogError("Revoked admin token used")
			abort(c, http.StatusUnauthorized, utils.ErrInvalidToken)
			return
		}

		var admin models.Admin
		if err := config.DB.First(&admin, uint(adminID)).Error; err != nil {
			utils.LogError("Admin not found: %v", err)
			abort(c, http.StatusUnauthorized, "Admin not found")
			return
		}

		if !admin.IsActive {
			utils.LogError("Inactive admin attempted access: %d", admin.ID)
			abort(c, http.StatusForbidden, "Admin account is inactive")
			return
		}

		c.Set("admin", admin)
		c.Set("adminToken", tokenString)
		utils.LogDebug("Admin %d authenticated successfully", admin.ID)
		c.Next()
	}
}
