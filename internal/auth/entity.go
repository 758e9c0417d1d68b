// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// RefreshToken is the stored form of a refresh token. Only the SHA-256 of
// the token value is persisted; ReplacedBy holds the successor's hash.
type RefreshToken struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	TokenHash   string     `db:"token_hash"`
	ExpiresAt   time.Time  `db:"expires_at"`
	CreatedAt   time.Time  `db:"created_at"`
	CreatedByIP string     `db:"created_by_ip"`
	Device      string     `db:"device"`
	RevokedAt   *time.Time `db:"revoked_at"`
	RevokedByIP *string    `db:"revoked_by_ip"`
	ReplacedBy  *string    `db:"replaced_by"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

type UserInfo struct {
	ID               string
	Email            string
	PasswordHash     string
	PlatformUsername string
	EmailVerified    bool
	OTPHash          *string
	OTPExpiresAt     *time.Time
}

type NewAccount struct {
	Email            string
	PasswordHash     string
	PlatformUsername string
	OTPHash          string
	OTPExpiresAt     time.Time
}
