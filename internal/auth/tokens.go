// AngelaMos | 2026
// tokens.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iamisam/codeplay-backend/internal/core"
)

const maxDeviceLength = 255

type IssuedRefreshToken struct {
	Token     string
	ExpiresAt time.Time
}

// IssueRefreshToken persists a new refresh token for userID.
func (s *Service) IssueRefreshToken(
	ctx context.Context,
	userID, ip, device string,
	rememberMe bool,
) (*IssuedRefreshToken, error) {
	ttl := s.cfg.RefreshShortExpire
	if rememberMe {
		ttl = s.cfg.RefreshLongExpire
	}

	value, entity, err := s.newRefreshToken(userID, ip, device, ttl)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &IssuedRefreshToken{Token: value, ExpiresAt: entity.ExpiresAt}, nil
}

// RotateRefreshToken consumes oldToken and issues its successor in one
// transaction. Revoked, expired and unknown tokens all wrap
// core.ErrTokenInvalid and change nothing.
func (s *Service) RotateRefreshToken(
	ctx context.Context,
	oldToken, ip, device string,
) (*Session, error) {
	userID, ok := core.RefreshTokenOwner(oldToken)
	if !ok {
		return nil, fmt.Errorf("rotate: malformed token: %w", core.ErrTokenInvalid)
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("rotate: unknown owner: %w", core.ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("rotate: get user: %w", err)
	}

	accessToken, err := s.jwt.CreateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	value, next, err := s.newRefreshToken(
		user.ID,
		ip,
		device,
		s.cfg.RefreshLongExpire,
	)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(tx Repository) error {
		consumeErr := tx.ConsumeActive(ctx, core.HashToken(oldToken), ip, next.TokenHash)
		if errors.Is(consumeErr, core.ErrNotFound) {
			return fmt.Errorf("rotate: inactive token: %w", core.ErrTokenInvalid)
		}
		if consumeErr != nil {
			return consumeErr
		}
		return tx.Create(ctx, next)
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:      accessToken,
		AccessExpiresIn:  s.jwt.AccessTokenTTL(),
		RefreshToken:     value,
		RefreshExpiresAt: next.ExpiresAt,
		User:             user,
	}, nil
}

// RevokeRefreshToken is a no-op for unknown or already revoked tokens.
func (s *Service) RevokeRefreshToken(ctx context.Context, token, ip string) error {
	if token == "" {
		return nil
	}
	return s.repo.Revoke(ctx, core.HashToken(token), ip)
}

func (s *Service) issueSession(
	ctx context.Context,
	user *UserInfo,
	ip, device string,
	rememberMe bool,
) (*Session, error) {
	accessToken, err := s.jwt.CreateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refresh, err := s.IssueRefreshToken(ctx, user.ID, ip, device, rememberMe)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:      accessToken,
		AccessExpiresIn:  s.jwt.AccessTokenTTL(),
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
		User:             user,
	}, nil
}

func (s *Service) newRefreshToken(
	userID, ip, device string,
	ttl time.Duration,
) (string, *RefreshToken, error) {
	value, err := core.GenerateRefreshToken(userID)
	if err != nil {
		return "", nil, fmt.Errorf("generate refresh token: %w", err)
	}

	return value, &RefreshToken{
		ID:          uuid.New().String(),
		UserID:      userID,
		TokenHash:   core.HashToken(value),
		ExpiresAt:   s.now().Add(ttl),
		CreatedByIP: ip,
		Device:      TrimDevice(device),
	}, nil
}

func TrimDevice(device string) string {
	if len(device) <= maxDeviceLength {
		return device
	}
	return strings.ToValidUTF8(device[:maxDeviceLength], "")
}
