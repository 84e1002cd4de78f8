package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
	"gorm.io/gorm"
)

// ApplyReferralRequest links the signed-in user to a referrer
type ApplyReferralRequest struct {
	ReferralCode string `json:"referralCode" binding:"required"`
}

// ReferralUpdateRequest is an admin change to a referral relationship
type ReferralUpdateRequest struct {
	Status   string `json:"status" binding:"required,oneof=pending active completed cancelled"`
	Earnings *int64 `json:"earnings"`
}

func findReferrer(code string) (*models.User, error) {
	var referrer models.User
	err := config.DB.Where("referral_code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&referrer).Error
	if err != nil {
		return nil, err
	}
	return &referrer, nil
}

// ValidateReferralCode returns a summary of the user behind a referral code
func ValidateReferralCode(c *gin.Context) {
	utils.LogInfo("ValidateReferralCode called")

	code := c.Query("code")
	if strings.TrimSpace(code) == "" {
		utils.BadRequest(c, "Referral code is required", nil)
		return
	}

	referrer, err := findReferrer(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Invalid referral code")
			return
		}
		utils.LogError("Failed to validate referral code: %v", err)
		utils.InternalServerError(c, "Failed to validate referral code", nil)
		return
	}

	utils.Success(c, "Referral code is valid", gin.H{
		"valid": true,
		"referrer": gin.H{
			"id":            referrer.ID,
			"name":          referrer.Name,
			"referralCode":  referrer.ReferralCode,
			"referredCount": referrer.ReferredCount,
		},
	})
}

// ApplyReferral records that the signed-in user was referred by the owner of a code
func ApplyReferral(c *gin.Context) {
	utils.LogInfo("ApplyReferral called")
	user := c.MustGet("user").(models.User)

	var req ApplyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Referral code is required", err.Error())
		return
	}

	referrer, err := findReferrer(req.ReferralCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Invalid referral code")
			return
		}
		utils.LogError("Failed to look up referral code: %v", err)
		utils.InternalServerError(c, "Failed to apply referral", nil)
		return
	}

	referral := models.Referral{
		ReferrerID:        referrer.ID,
		ReferrerName:      referrer.Name,
		ReferrerEmail:     referrer.Email,
		ReferredUserID:    user.ID,
		ReferredUserName:  user.Name,
		ReferredUserEmail: user.Email,
		ReferralCode:      referrer.ReferralCode,
		Status:            models.ReferralStatusPending,
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if referrer.ID == user.ID {
			return utils.BadRequestError("You cannot use your own referral code", nil)
		}
		var existing int64
		if err := tx.Model(&models.Referral{}).Where("referred_user_id = ?", user.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return utils.ConflictError("A referral has already been applied to this account", nil)
		}
		if err := tx.Create(&referral).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("referred_by", referrer.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", referrer.ID).
			UpdateColumn("referred_count", gorm.Expr("referred_count + ?", 1)).Error
	})
	if err != nil {
		if !utils.IsAppError(err) {
			utils.LogError("Failed to apply referral for %s: %v", user.ID, err)
			err = utils.InternalError("Failed to apply referral", nil)
		}
		utils.RespondWithError(c, err)
		return
	}

	utils.LogInfo("User %s referred by %s", user.ID, referrer.ID)
	utils.Created(c, "Referral applied successfully", gin.H{"referral": referral})
}

// GetReferrals lists the relationships the signed-in user referred, newest first
func GetReferrals(c *gin.Context) {
	utils.LogInfo("GetReferrals called")
	user := c.MustGet("user").(models.User)

	var referrals []models.Referral
	if err := config.DB.Where("referrer_id = ?", user.ID).Order("created_at DESC").Find(&referrals).Error; err != nil {
		utils.LogError("Failed to fetch referrals for %s: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to fetch referrals", nil)
		return
	}
	utils.Success(c, "Referrals retrieved successfully", gin.H{
		"referrals": referrals,
		"total":     len(referrals),
	})
}

// GetReferralStats returns totals, level and rewards for the signed-in user
func GetReferralStats(c *gin.Context) {
	utils.LogInfo("GetReferralStats called")
	user := c.MustGet("user").(models.User)

	var referrals []models.Referral
	if err := config.DB.Where("referrer_id = ?", user.ID).Find(&referrals).Error; err != nil {
		utils.LogError("Failed to fetch referrals for %s: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to fetch referral statistics", nil)
		return
	}

	utils.Success(c, "Referral statistics retrieved successfully", gin.H{
		"referralCode": user.ReferralCode,
		"stats":        services.ComputeReferralStats(referrals),
	})
}

// AdminUpdateReferral changes a referral's status and earnings. Completing a
// referral credits its earnings to the referrer.
func AdminUpdateReferral(c *gin.Context) {
	utils.LogInfo("AdminUpdateReferral called")

	var req ReferralUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}

	var referral models.Referral
	if err := config.DB.First(&referral, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Referral not found")
			return
		}
		utils.LogError("Failed to fetch referral %s: %v", c.Param("id"), err)
		utils.InternalServerError(c, "Failed to update referral", nil)
		return
	}

	wasCompleted := referral.Status == models.ReferralStatusCompleted
	if req.Earnings != nil {
		if *req.Earnings < 0 {
			utils.BadRequest(c, "Earnings cannot be negative", nil)
			return
		}
		referral.Earnings = *req.Earnings
	}
	referral.Status = req.Status
	if referral.Status == models.ReferralStatusCompleted && !wasCompleted {
		now := time.Now()
		referral.CompletedAt = &now
		if req.Earnings == nil && referral.Earnings == 0 {
			var successful int64
			config.DB.Model(&models.Referral{}).
				Where("referrer_id = ? AND status = ?", referral.ReferrerID, models.ReferralStatusCompleted).
				Count(&successful)
			referral.Earnings = services.ReferralReward(services.ReferralLevel(int(successful) + 1))
		}
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&referral).Error; err != nil {
			return err
		}
		if referral.Status == models.ReferralStatusCompleted && !wasCompleted {
			return tx.Model(&models.User{}).Where("id = ?", referral.ReferrerID).
				UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", referral.Earnings)).Error
		}
		return nil
	})
	if err != nil {
		utils.LogError("Failed to update referral %s: %v", referral.ID, err)
		utils.InternalServerError(c, "Failed to update referral", nil)
		return
	}

	utils.Success(c, utils.MsgUpdateSuccess, gin.H{"referral": referral})
}
