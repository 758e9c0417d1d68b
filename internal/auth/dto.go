// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type SignupRequest struct {
	LeetcodeUsername string `json:"leetcodeUsername" validate:"required,min=1,max=64"`
	Email            string `json:"email"            validate:"required,email,max=255"`
	Password         string `json:"password"         validate:"required,min=8,max=128"`
}

type VerifySignupRequest struct {
	Email      string `json:"email"      validate:"required,email,max=255"`
	OTP        string `json:"otp"        validate:"required,len=6,numeric"`
	RememberMe bool   `json:"rememberMe"`
}

type LoginRequest struct {
	Email      string `json:"email"      validate:"required,email,max=255"`
	Password   string `json:"password"   validate:"required,min=8,max=128"`
	RememberMe bool   `json:"rememberMe"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8,max=128"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	OTP      string `json:"otp"      validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UserResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	LeetcodeUsername string `json:"leetcodeUsername"`
}

type TokenResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int          `json:"expiresIn"`
	User         UserResponse `json:"user"`
}

// Session is an issued pair plus what the handler needs for the cookie.
type Session struct {
	AccessToken      string
	AccessExpiresIn  time.Duration
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             *UserInfo
}

func (s *Session) Response() TokenResponse {
	resp := TokenResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.AccessExpiresIn / time.Second),
	}
	if s.User != nil {
		resp.User = UserResponse{
			ID:               s.User.ID,
			Email:            s.User.Email,
			LeetcodeUsername: s.User.PlatformUsername,
		}
	}
	return resp
}

type SessionInfo struct {
	ID        string    `json:"id"`
	Device    string    `json:"device"`
	IPAddress string    `json:"ipAddress"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

type SignupPendingResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}
