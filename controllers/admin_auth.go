package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/utils"
)

// AdminLoginRequest represents the admin login request
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin handles admin authentication
func AdminLogin(c *gin.Context) {
	utils.LogInfo("AdminLogin called")
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid login request: %v", err)
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}
	utils.LogDebug("Processing login request for email: %s", req.Email)

	var admin models.Admin
	if err := config.DB.Where("email = ?", req.Email).First(&admin).Error; err != nil {
		utils.LogError("Admin not found for email: %s: %v", req.Email, err)
		utils.Unauthorized(c, utils.ErrInvalidCredentials)
		return
	}

	if !admin.IsActive {
		utils.LogError("Inactive admin account attempted login: %s", admin.Email)
		utils.Forbidden(c, "Admin account is inactive")
		return
	}

	if !utils.CheckPassword(req.Password, admin.Password) {
		utils.LogError("Invalid password for admin: %s", admin.Email)
		utils.Unauthorized(c, utils.ErrInvalidCredentials)
		return
	}

	admin.LastLogin = time.Now()
	if err := config.DB.Model(&admin).Update("last_login", admin.LastLogin).Error; err != nil {
		utils.LogError("Failed to update last login for admin: %s: %v", admin.Email, err)
	}

	token, err := utils.GenerateAdminToken(admin.ID)
	if err != nil {
		utils.LogError("Failed to sign JWT token for admin: %s: %v", admin.Email, err)
		utils.InternalServerError(c, "Failed to generate token", err.Error())
		return
	}

	utils.LogInfo("Admin login successful: %s", admin.Email)
	utils.Success(c, utils.MsgLoginSuccess, gin.H{
		"token": token,
		"admin": gin.H{
			"id":        admin.ID,
			"email":     admin.Email,
			"firstName": admin.FirstName,
			"lastName":  admin.LastName,
		},
	})
}

// AdminLogout revokes the admin token until it would have expired
func AdminLogout(c *gin.Context) {
	utils.LogInfo("AdminLogout called")

	tokenString := c.GetString("adminToken")
	expiresAt := time.Now().Add(utils.TokenTTL)
	if claims, err := utils.ParseToken(tokenString); err == nil {
		if exp, ok := claims["exp"].(float64); ok {
			expiresAt = time.Unix(int64(exp), 0)
		}
	}

	if err := config.DB.Where("expires_at < ?", time.Now()).Delete(&models.BlacklistedToken{}).Error; err != nil {
		utils.LogError("Failed to purge expired tokens: %v", err)
	}

	blacklisted := models.BlacklistedToken{Token: tokenString, ExpiresAt: expiresAt}
	if err := config.DB.Create(&blacklisted).Error; err != nil {
		utils.LogError("Failed to blacklist token on logout: %v", err)
	}

	utils.Success(c, utils.MsgLogoutSuccess, nil)
}

// SeedAdmin makes sure the configured admin account exists
func SeedAdmin(cfg *config.Config) error {
	utils.LogInfo("SeedAdmin called")
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		utils.LogWarn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	hashed, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		utils.LogError("Failed to hash admin password: %v", err)
		return err
	}

	admin := models.Admin{
		Email:    cfg.AdminEmail,
		Password: hashed,
		IsActive: true,
	}
	if err := config.DB.FirstOrCreate(&admin, models.Admin{Email: admin.Email}).Error; err != nil {
		utils.LogError("Failed to create admin: %v", err)
		return err
	}
	utils.LogInfo("Admin account ready: %s", admin.Email)
	return nil
}
