// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iamisam/codeplay-backend/internal/auth"
	"github.com/iamisam/codeplay-backend/internal/core"
	"github.com/iamisam/codeplay-backend/internal/leetcode"
)

const searchLimit = 10

type PlatformClient interface {
	GetUser(ctx context.Context, username string) (*leetcode.Profile, error)
}

type Service struct {
	repo     Repository
	platform PlatformClient
}

func NewService(repo Repository, platform PlatformClient) *Service {
	return &Service{repo: repo, platform: platform}
}

func (s *Service) GetByID(ctx context.Context, id string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, normalizeEmail(email))
}

func (s *Service) PlatformUsernameExists(ctx context.Context, username string) (bool, error) {
	return s.repo.ExistsByPlatformUsername(ctx, username)
}

func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// VerifyPlatformAccount confirms the username exists on the external platform.
func (s *Service) VerifyPlatformAccount(ctx context.Context, username string) error {
	if _, err := s.platform.GetUser(ctx, username); err != nil {
		return fmt.Errorf("verify platform account: %w", err)
	}
	return nil
}

func (s *Service) CreateUnverified(
	ctx context.Context,
	acct auth.NewAccount,
) (*auth.UserInfo, error) {
	otpHash := acct.OTPHash
	otpExpires := acct.OTPExpiresAt

	user := &User{
		ID:               uuid.New().String(),
		Email:            normalizeEmail(acct.Email),
		PasswordHash:     acct.PasswordHash,
		PlatformUsername: acct.PlatformUsername,
		EmailVerified:    false,
		OTPHash:          &otpHash,
		OTPExpiresAt:     &otpExpires,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) MarkVerified(ctx context.Context, id string) error {
	return s.repo.MarkVerified(ctx, id)
}

func (s *Service) SetOTP(
	ctx context.Context,
	id, otpHash string,
	expiresAt time.Time,
) error {
	return s.repo.SetOTP(ctx, id, otpHash, expiresAt)
}

func (s *Service) RecordOTPFailure(ctx context.Context, id string, maxAttempts int) error {
	return s.repo.RecordOTPFailure(ctx, id, maxAttempts)
}

func (s *Service) ResetPassword(ctx context.Context, id, otpHash, passwordHash string) error {
	return s.repo.ResetPassword(ctx, id, otpHash, passwordHash)
}

func (s *Service) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, id, passwordHash)
}

func (s *Service) SetStatus(ctx context.Context, id, status string) error {
	return s.repo.UpdateStatus(ctx, id, status)
}

// SyncProfile pulls the platform profile and replaces the stored copy and
// submission counters atomically.
func (s *Service) SyncProfile(ctx context.Context, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("sync profile: %w", err)
	}

	remote, err := s.platform.GetUser(ctx, user.PlatformUsername)
	if err != nil {
		return fmt.Errorf("sync profile: %w", err)
	}

	profile := Profile{
		RealName:    remote.Profile.RealName,
		CountryName: remote.Profile.CountryName,
		Company:     remote.Profile.Company,
		School:      remote.Profile.School,
		AboutMe:     remote.Profile.AboutMe,
		Reputation:  remote.Profile.Reputation,
		Ranking:     remote.Profile.Ranking,
	}
	stats := statsFromPlatform(id, remote.SubmitStats)

	return s.repo.WithTx(ctx, func(tx Repository) error {
		if err := tx.UpdatePlatformProfile(ctx, id, profile); err != nil {
			return err
		}
		return tx.ReplaceStats(ctx, id, stats)
	})
}

func (s *Service) GetMe(ctx context.Context, userID string) (*ProfileView, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}
	return s.profileView(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateProfileRequest,
) (*ProfileView, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		user.DisplayName = &name
	}
	if req.ProfileVisibility != nil {
		user.Visibility = *req.ProfileVisibility
	}

	if err := s.repo.UpdateProfileSettings(ctx, user); err != nil {
		return nil, err
	}

	return s.profileView(ctx, userID)
}

func (s *Service) SetPresence(ctx context.Context, userID, status string) error {
	if status != StatusOnline && status != StatusAway {
		return core.ValidationError("status must be online or away")
	}
	return s.repo.UpdateStatus(ctx, userID, status)
}

func (s *Service) Search(ctx context.Context, query string) ([]User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, core.ValidationError("search query is required")
	}
	return s.repo.Search(ctx, query, searchLimit)
}

// GetPublicProfile returns the full profile, or only the header when the
// target is private and the viewer is someone else.
func (s *Service) GetPublicProfile(
	ctx context.Context,
	viewerID, identifier string,
) (*ProfileView, bool, error) {
	user, err := s.repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, false, err
	}

	if user.IsPrivate() && user.ID != viewerID {
		return &ProfileView{User: user}, false, nil
	}

	stats, err := s.repo.ListStats(ctx, user.ID)
	if err != nil {
		return nil, false, err
	}

	return &ProfileView{User: user, Stats: stats}, true, nil
}

func (s *Service) Compare(
	ctx context.Context,
	viewerID, identifier string,
) (*ProfileView, *ProfileView, error) {
	current, err := s.profileView(ctx, viewerID)
	if err != nil {
		return nil, nil, err
	}

	other, full, err := s.GetPublicProfile(ctx, viewerID, identifier)
	if err != nil {
		return nil, nil, err
	}
	if !full {
		return nil, nil, fmt.Errorf("compare: profile is private: %w", core.ErrForbidden)
	}

	return current, other, nil
}

func (s *Service) profileView(ctx context.Context, id string) (*ProfileView, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.ListStats(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ProfileView{User: user, Stats: stats}, nil
}

func statsFromPlatform(userID string, in leetcode.SubmitStats) []SubmissionStat {
	out := make([]SubmissionStat, 0, len(in.AcSubmissionNum)+len(in.TotalSubmissionNum))
	for _, c := range in.AcSubmissionNum {
		out = append(out, SubmissionStat{
			UserID:      userID,
			Kind:        StatKindAccepted,
			Difficulty:  c.Difficulty,
			Count:       c.Count,
			Submissions: c.Submissions,
		})
	}
	for _, c := range in.TotalSubmissionNum {
		out = append(out, SubmissionStat{
			UserID:      userID,
			Kind:        StatKindTotal,
			Difficulty:  c.Difficulty,
			Count:       c.Count,
			Submissions: c.Submissions,
		})
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:               u.ID,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		PlatformUsername: u.PlatformUsername,
		EmailVerified:    u.EmailVerified,
		OTPHash:          u.OTPHash,
		OTPExpiresAt:     u.OTPExpiresAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
