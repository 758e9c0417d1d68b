// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID               string     `db:"id"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	PlatformUsername string     `db:"leetcode_username"`
	DisplayName      *string    `db:"display_name"`
	Visibility       string     `db:"profile_visibility"`
	Status           string     `db:"status"`
	EmailVerified    bool       `db:"email_verified"`
	OTPHash          *string    `db:"otp_hash"`
	OTPExpiresAt     *time.Time `db:"otp_expires_at"`
	RealName         string     `db:"real_name"`
	CountryName      string     `db:"country_name"`
	Company          string     `db:"company"`
	School           string     `db:"school"`
	AboutMe          string     `db:"about_me"`
	Reputation       int        `db:"reputation"`
	Ranking          int        `db:"ranking"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (u *User) IsPrivate() bool {
	return u.Visibility == VisibilityPrivate
}

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusOffline = "offline"
)

const (
	StatKindAccepted = "ac"
	StatKindTotal    = "total"
)

// SubmissionStat is one difficulty bucket of the platform's submission
// counters, replaced wholesale on every profile sync.
type SubmissionStat struct {
	UserID      string `db:"user_id"`
	Kind        string `db:"kind"`
	Difficulty  string `db:"difficulty"`
	Count       int    `db:"count"`
	Submissions int    `db:"submissions"`
}

type Profile struct {
	RealName    string
	CountryName string
	Company     string
	School      string
	AboutMe     string
	Reputation  int
	Ranking     int
}
