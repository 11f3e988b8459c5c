package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
)

// UserDTO is the transport shape that omits credentials and OTP state.
type UserDTO struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Phone      string         `json:"phone"`
	Email      *string        `json:"email,omitempty"`
	Role       enums.UserRole `json:"role"`
	Address    *string        `json:"address,omitempty"`
	IsVerified bool           `json:"isVerified"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Summary is the compact user reference embedded in orders and reviews.
type Summary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Phone        string
	Email        *string
	PasswordHash string
	Role         enums.UserRole
	Address      *string
	OTPHash      *string
	OTPExpiresAt *time.Time
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:         u.ID,
		Name:       u.Name,
		Phone:      u.Phone,
		Email:      u.Email,
		Role:       u.Role,
		Address:    u.Address,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

func SummaryFromModel(u *models.User) *Summary {
	if u == nil {
		return nil
	}
	return &Summary{ID: u.ID, Name: u.Name, Phone: u.Phone}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	return &models.User{
		Name:         c.Name,
		Phone:        c.Phone,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Role:         role,
		Address:      c.Address,
		OTPHash:      c.OTPHash,
		OTPExpiresAt: c.OTPExpiresAt,
	}
}
