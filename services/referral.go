package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/tourguider/backend/models"
	"gorm.io/gorm"
)

const referralCodeAttempts = 10

// ErrReferralCodeExhausted is returned when no unique code could be generated
var ErrReferralCodeExhausted = errors.New("could not generate a unique referral code")

// Referral levels
const (
	LevelBronze = "bronze"
	LevelSilver = "silver"
	LevelGold   = "gold"
)

// ReferralStats summarises a referrer's relationships
type ReferralStats struct {
	TotalReferrals      int    `json:"totalReferrals"`
	SuccessfulReferrals int    `json:"successfulReferrals"`
	PendingReferrals    int    `json:"pendingReferrals"`
	TotalEarnings       int64  `json:"totalEarnings"`
	PendingEarnings     int64  `json:"pendingEarnings"`
	Level               string `json:"level"`
	Reward              int64  `json:"reward"`
	DiscountRate        int    `json:"discountRate"`
}

// GenerateReferralCode returns <first 3 of uid><base36 ms><4 random base36>, upper-cased
func GenerateReferralCode(uid string, now time.Time) string {
	prefix := uid
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}

	var suffix strings.Builder
	for i := 0; i < 4; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(36))
		if err != nil {
			n = big.NewInt(int64(now.Nanosecond()+i) % 36)
		}
		suffix.WriteString(strconv.FormatInt(n.Int64(), 36))
	}

	return strings.ToUpper(prefix + strconv.FormatInt(now.UnixMilli(), 36) + suffix.String())
}

// AssignReferralCode generates a code no other user has
func AssignReferralCode(ctx context.Context, db *gorm.DB, uid string) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code := GenerateReferralCode(uid, time.Now())

		var count int64
		if err := db.WithContext(ctx).Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", ErrReferralCodeExhausted
}

// ReferralLevel maps completed referrals onto a level
func ReferralLevel(successful int) string {
	switch {
	case successful >= 16:
		return LevelGold
	case successful >= 6:
		return LevelSilver
	default:
		return LevelBronze
	}
}

// ReferralReward is the reward in KRW per completed referral at level
func ReferralReward(level string) int64 {
	switch level {
	case LevelGold:
		return 15000
	case LevelSilver:
		return 10000
	default:
		return 5000
	}
}

// DiscountRate is the discount percentage granted at level
func DiscountRate(level string) int {
	switch level {
	case LevelGold:
		return 30
	case LevelSilver:
		return 20
	default:
		return 10
	}
}

// ComputeReferralStats aggregates a referrer's relationships
func ComputeReferralStats(referrals []models.Referral) ReferralStats {
	var s ReferralStats
	for _, r := range referrals {
		s.TotalReferrals++
		switch r.Status {
		case models.ReferralStatusCompleted:
			s.SuccessfulReferrals++
			s.TotalEarnings += r.Earnings
		case models.ReferralStatusPending:
			s.PendingReferrals++
			s.PendingEarnings += r.Earnings
		}
	}
	s.Level = ReferralLevel(s.SuccessfulReferrals)
	s.Reward = ReferralReward(s.Level)
	s.DiscountRate = DiscountRate(s.Level)
	return s
}
