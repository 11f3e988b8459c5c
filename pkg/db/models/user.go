package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/pkg/enums"
)

// User is a marketplace account. Phone is the login identity.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name         string         `gorm:"column:name;not null"`
	Phone        string         `gorm:"column:phone;not null;uniqueIndex:users_phone_key"`
	Email        *string        `gorm:"column:email;uniqueIndex:users_email_key"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;type:varchar(16);not null;default:CUSTOMER"`
	Address      *string        `gorm:"column:address"`
	IsVerified   bool           `gorm:"column:is_verified;not null;default:false"`
	OTPHash      *string        `gorm:"column:otp_hash"`
	OTPExpiresAt *time.Time     `gorm:"column:otp_expires_at"`
	PushToken    *string        `gorm:"column:push_token"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
