package models

import (
	"time"

	"gorm.io/gorm"
)

// BlacklistedToken holds admin tokens revoked by logout until they expire
type BlacklistedToken struct {
	gorm.Model
	Token     string    `gorm:"uniqueIndex;size:512;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}
