// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iamisam/codeplay-backend/internal/config"
	"github.com/iamisam/codeplay-backend/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidOTP         = errors.New("invalid or expired verification code")
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PlatformUsernameExists(ctx context.Context, username string) (bool, error)
	VerifyPlatformAccount(ctx context.Context, username string) error
	CreateUnverified(ctx context.Context, acct NewAccount) (*UserInfo, error)
	MarkVerified(ctx context.Context, id string) error
	SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error
	RecordOTPFailure(ctx context.Context, id string, maxAttempts int) error
	ResetPassword(ctx context.Context, id, otpHash, passwordHash string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetStatus(ctx context.Context, id, status string) error
	SyncProfile(ctx context.Context, id string) error
}

type Service struct {
	repo   Repository
	jwt    *JWTManager
	users  UserProvider
	mailer Mailer
	cfg    config.AuthConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	users UserProvider,
	mailer Mailer,
	cfg config.AuthConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:   repo,
		jwt:    jwt,
		users:  users,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// InitiateSignup creates an unverified account and mails a one-time code.
func (s *Service) InitiateSignup(ctx context.Context, req SignupRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.LeetcodeUsername)

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return core.DuplicateError("email")
	}

	exists, err = s.users.PlatformUsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if exists {
		return core.DuplicateError("leetcode username")
	}

	if err := s.users.VerifyPlatformAccount(ctx, username); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NotFoundError("leetcode user")
		}
		return fmt.Errorf("verify platform account: %w", err)
	}

	passwordHash, _, err := core.HashPasswordIfChanged("", req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	otp, err := core.GenerateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	_, err = s.users.CreateUnverified(ctx, NewAccount{
		Email:            email,
		PasswordHash:     passwordHash,
		PlatformUsername: username,
		OTPHash:          core.HashToken(otp),
		OTPExpiresAt:     s.now().Add(s.cfg.OTPExpire),
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return core.DuplicateError("account")
		}
		return fmt.Errorf("create user: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, email, otp); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}

	return nil
}

func (s *Service) CompleteSignup(
	ctx context.Context,
	req VerifySignupRequest,
	ip, device string,
) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.EmailVerified {
		return nil, core.ConflictError("email already verified")
	}

	if !s.otpMatches(user, req.OTP) {
		s.recordOTPFailure(ctx, user.ID)
		return nil, ErrInvalidOTP
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ConflictError("email already verified")
		}
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	user.EmailVerified = true

	s.syncBestEffort(ctx, user.ID)

	return s.issueSession(ctx, user, ip, device, req.RememberMe)
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	ip, device string,
) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.users.UpdatePassword(ctx, user.ID, newHash)
	}

	s.syncBestEffort(ctx, user.ID)

	if err := s.users.SetStatus(ctx, user.ID, statusOnline); err != nil {
		s.logger.Warn("set status on login", "user_id", user.ID, "error", err)
	}

	return s.issueSession(ctx, user, ip, device, req.RememberMe)
}

func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, ip, device string,
) (*Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh: missing token: %w", core.ErrTokenInvalid)
	}
	return s.RotateRefreshToken(ctx, refreshToken, ip, device)
}

// Logout revokes the caller's refresh token and marks them offline. A token
// whose prefix or stored row names another user is rejected; an unknown
// token only flips the status.
func (s *Service) Logout(
	ctx context.Context,
	userID, refreshToken, ip string,
) error {
	if refreshToken != "" {
		owner, ok := core.RefreshTokenOwner(refreshToken)
		if ok && owner != userID {
			return fmt.Errorf("logout: %w", core.ErrForbidden)
		}

		stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
		switch {
		case errors.Is(err, core.ErrNotFound):
		case err != nil:
			return fmt.Errorf("logout: %w", err)
		case stored.UserID != userID:
			return fmt.Errorf("logout: %w", core.ErrForbidden)
		default:
			if err := s.RevokeRefreshToken(ctx, refreshToken, ip); err != nil {
				return fmt.Errorf("revoke token: %w", err)
			}
		}
	}

	if err := s.users.SetStatus(ctx, userID, statusOffline); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("set status: %w", err)
	}

	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}
	return nil
}

func (s *Service) GetActiveSessions(
	ctx context.Context,
	userID string,
) ([]SessionInfo, error) {
	tokens, err := s.repo.GetActiveSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        t.ID,
			Device:    t.Device,
			IPAddress: t.CreatedByIP,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return sessions, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	if err := s.repo.RevokeByID(ctx, sessionID, userID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// ChangePassword re-hashes only when the new password differs from the
// stored one and always revokes every session.
func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrInvalidCredentials
	}

	newHash, changed, err := core.HashPasswordIfChanged(user.PasswordHash, newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if changed {
		if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
	}

	return s.LogoutAll(ctx, userID)
}

// ForgotPassword mails a reset code to a verified account. Unknown and
// unverified addresses get the same silent success.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if !user.EmailVerified {
		return nil
	}

	otp, err := core.GenerateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	expiresAt := s.now().Add(s.cfg.OTPExpire)
	if err := s.users.SetOTP(ctx, user.ID, core.HashToken(otp), expiresAt); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, otp); err != nil {
		s.logger.Error("send password reset", "user_id", user.ID, "error", err)
	}

	return nil
}

// ResetPassword consumes a reset code, stores the new password and revokes
// every session. The code is single use.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, core.ErrNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if !user.EmailVerified {
		return ErrInvalidOTP
	}

	if !s.otpMatches(user, req.OTP) {
		s.recordOTPFailure(ctx, user.ID)
		return ErrInvalidOTP
	}

	passwordHash, _, err := core.HashPasswordIfChanged(user.PasswordHash, req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.users.ResetPassword(ctx, user.ID, *user.OTPHash, passwordHash)
	if errors.Is(err, core.ErrNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	return s.LogoutAll(ctx, user.ID)
}

// PurgeExpired deletes refresh tokens that expired before the grace window.
func (s *Service) PurgeExpired(ctx context.Context, grace time.Duration) {
	deleted, err := s.repo.DeleteExpired(ctx, s.now().Add(-grace))
	if err != nil {
		s.logger.Error("purge expired refresh tokens", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("purged expired refresh tokens", "count", deleted)
	}
}

func (s *Service) otpMatches(user *UserInfo, otp string) bool {
	if user.OTPHash == nil || user.OTPExpiresAt == nil {
		return false
	}
	if !s.now().Before(*user.OTPExpiresAt) {
		return false
	}
	return core.CompareTokenHash(otp, *user.OTPHash)
}

// recordOTPFailure counts a wrong code; the store drops the code once
// cfg.OTPMaxAttempts is reached.
func (s *Service) recordOTPFailure(ctx context.Context, userID string) {
	if err := s.users.RecordOTPFailure(ctx, userID, s.cfg.OTPMaxAttempts); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		s.logger.Warn("record otp failure", "user_id", userID, "error", err)
	}
}

func (s *Service) syncBestEffort(ctx context.Context, userID string) {
	if err := s.users.SyncProfile(ctx, userID); err != nil {
		s.logger.Warn("profile sync failed", "user_id", userID, "error", err)
	}
}
