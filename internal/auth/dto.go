package auth

import (
	"github.com/blissmart/marketplace-backend/internal/users"
)

type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Phone    string  `json:"phone" validate:"required,min=7,max=15"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=6,max=128"`
	Role     string  `json:"role,omitempty"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type RegisterResponse struct {
	UserID  string         `json:"userId"`
	Message string         `json:"message"`
	User    *users.UserDTO `json:"user"`
	// OTP is only populated in non-production environments with echo enabled.
	OTP *string `json:"otp,omitempty"`
}

type VerifyOTPRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	OTP    string `json:"otp" validate:"required,len=6,numeric"`
}

// VerifyOTPResponse carries a fresh session only when this call verified the
// account; repeating the call on a verified account returns no tokens.
type VerifyOTPResponse struct {
	Message      string         `json:"message"`
	AccessToken  string         `json:"accessToken,omitempty"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	User         *users.UserDTO `json:"user"`
}

// ResendOTPRequest identifies the user by id or by phone.
type ResendOTPRequest struct {
	UserID string `json:"userId,omitempty" validate:"omitempty,uuid"`
	Phone  string `json:"phone,omitempty" validate:"omitempty,min=7,max=15"`
}

type ResendOTPResponse struct {
	UserID  string  `json:"userId"`
	Message string  `json:"message"`
	OTP     *string `json:"otp,omitempty"`
}

type LoginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.UserDTO `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
