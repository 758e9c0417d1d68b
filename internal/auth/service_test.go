// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamisam/codeplay-backend/internal/config"
	"github.com/iamisam/codeplay-backend/internal/core"
)

const (
	aliceID = "11111111-1111-1111-1111-111111111111"
	bobID   = "22222222-2222-2222-2222-222222222222"
)

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[string]*UserInfo
	statuses  map[string]string
	passwords map[string]string
	platform  map[string]bool
	attempts  map[string]int
	syncErr   error
	syncs     int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byID:      map[string]*UserInfo{},
		statuses:  map[string]string{},
		passwords: map[string]string{},
		platform:  map[string]bool{"alice_lc": true, "bob_lc": true},
		attempts:  map[string]int{},
	}
}

func (f *fakeUsers) add(u *UserInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUsers) PlatformUsernameExists(ctx context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.PlatformUsername == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) VerifyPlatformAccount(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.platform[username] {
		return core.ErrNotFound
	}
	return nil
}

func (f *fakeUsers) CreateUnverified(ctx context.Context, acct NewAccount) (*UserInfo, error) {
	otpHash := acct.OTPHash
	otpExpires := acct.OTPExpiresAt
	u := &UserInfo{
		ID:               bobID,
		Email:            acct.Email,
		PasswordHash:     acct.PasswordHash,
		PlatformUsername: acct.PlatformUsername,
		OTPHash:          &otpHash,
		OTPExpiresAt:     &otpExpires,
	}
	f.add(u)
	return u, nil
}

func (f *fakeUsers) MarkVerified(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.EmailVerified {
		return core.ErrNotFound
	}
	u.EmailVerified = true
	u.OTPHash = nil
	u.OTPExpiresAt = nil
	return nil
}

func (f *fakeUsers) SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	u.OTPHash = &otpHash
	u.OTPExpiresAt = &expiresAt
	f.attempts[id] = 0
	return nil
}

func (f *fakeUsers) RecordOTPFailure(ctx context.Context, id string, maxAttempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.OTPHash == nil {
		return core.ErrNotFound
	}
	f.attempts[id]++
	if f.attempts[id] >= maxAttempts {
		u.OTPHash = nil
		u.OTPExpiresAt = nil
	}
	return nil
}

func (f *fakeUsers) ResetPassword(ctx context.Context, id, otpHash, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.OTPHash == nil || *u.OTPHash != otpHash {
		return core.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.OTPHash = nil
	u.OTPExpiresAt = nil
	f.passwords[id] = passwordHash
	f.attempts[id] = 0
	return nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords[id] = passwordHash
	return nil
}

func (f *fakeUsers) SetStatus(ctx context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

func (f *fakeUsers) SyncProfile(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs++
	return f.syncErr
}

type captureMailer struct {
	email     string
	code      string
	resetTo   string
	resetCode string
}

func (m *captureMailer) SendOTP(ctx context.Context, email, code string) error {
	m.email, m.code = email, code
	return nil
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, email, code string) error {
	m.resetTo, m.resetCode = email, code
	return nil
}

type testEnv struct {
	svc    *Service
	mock   sqlmock.Sqlmock
	users  *fakeUsers
	mailer *captureMailer
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		RefreshShortExpire: 24 * time.Hour,
		RefreshLongExpire:  7 * 24 * time.Hour,
		OTPExpire:          15 * time.Minute,
		OTPMaxAttempts:     5,
		CookieName:         "refreshToken",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := newFakeUsers()
	mailer := &captureMailer{}
	svc := NewService(
		NewRepository(sqlx.NewDb(db, "pgx")),
		newTestJWT(t),
		users,
		mailer,
		testAuthConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	return &testEnv{svc: svc, mock: mock, users: users, mailer: mailer}
}

func verifiedAlice(t *testing.T, password string) *UserInfo {
	t.Helper()
	hash, err := core.HashPassword(password)
	require.NoError(t, err)
	return &UserInfo{
		ID:               aliceID,
		Email:            "alice@example.com",
		PasswordHash:     hash,
		PlatformUsername: "alice_lc",
		EmailVerified:    true,
	}
}

func expectTokenInsert(mock sqlmock.Sqlmock, userID string) {
	mock.ExpectQuery(`INSERT INTO refresh_tokens`).
		WithArgs(sqlmock.AnyArg(), userID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
}

func TestIssueRefreshToken_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		name       string
		rememberMe bool
		want       time.Duration
	}{
		{name: "session", rememberMe: false, want: 24 * time.Hour},
		{name: "remember me", rememberMe: true, want: 7 * 24 * time.Hour},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.svc.now = func() time.Time { return now }
			expectTokenInsert(env.mock, aliceID)

			issued, err := env.svc.IssueRefreshToken(
				context.Background(), aliceID, "10.0.0.1", "curl", tc.rememberMe,
			)
			require.NoError(t, err)
			assert.Equal(t, now.Add(tc.want), issued.ExpiresAt)

			owner, ok := core.RefreshTokenOwner(issued.Token)
			require.True(t, ok)
			assert.Equal(t, aliceID, owner)
			require.NoError(t, env.mock.ExpectationsWereMet())
		})
	}
}

func TestRotateRefreshToken(t *testing.T) {
	t.Run("active token is consumed and replaced", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))
		old, err := core.GenerateRefreshToken(aliceID)
		require.NoError(t, err)

		env.mock.ExpectBegin()
		env.mock.ExpectExec(`UPDATE refresh_tokens\s+SET revoked_at = NOW\(\), revoked_by_ip = \$2, replaced_by = \$3`).
			WithArgs(core.HashToken(old), "10.0.0.1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectTokenInsert(env.mock, aliceID)
		env.mock.ExpectCommit()

		session, err := env.svc.RotateRefreshToken(context.Background(), old, "10.0.0.1", "curl")
		require.NoError(t, err)
		assert.NotEqual(t, old, session.RefreshToken)
		assert.NotEmpty(t, session.AccessToken)
		assert.Equal(t, aliceID, session.User.ID)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("inactive token changes nothing", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))
		old, err := core.GenerateRefreshToken(aliceID)
		require.NoError(t, err)

		env.mock.ExpectBegin()
		env.mock.ExpectExec(`UPDATE refresh_tokens`).
			WithArgs(core.HashToken(old), "10.0.0.1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		env.mock.ExpectRollback()

		_, err = env.svc.RotateRefreshToken(context.Background(), old, "10.0.0.1", "curl")
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("malformed token never reaches the database", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.RotateRefreshToken(context.Background(), "garbage", "10.0.0.1", "curl")
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("unknown owner", func(t *testing.T) {
		env := newTestEnv(t)
		old, err := core.GenerateRefreshToken(bobID)
		require.NoError(t, err)

		_, err = env.svc.RotateRefreshToken(context.Background(), old, "10.0.0.1", "curl")
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
	})
}

func TestRefresh_EmptyToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Refresh(context.Background(), "", "10.0.0.1", "curl")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))
		expectTokenInsert(env.mock, aliceID)

		session, err := env.svc.Login(context.Background(), LoginRequest{
			Email:    "Alice@Example.com",
			Password: "hunter22",
		}, "10.0.0.1", "curl")
		require.NoError(t, err)
		assert.Equal(t, aliceID, session.User.ID)
		assert.Equal(t, statusOnline, env.users.statuses[aliceID])
		assert.Equal(t, 1, env.users.syncs)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("sync failure does not block login", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))
		env.users.syncErr = errors.New("upstream down")
		expectTokenInsert(env.mock, aliceID)

		_, err := env.svc.Login(context.Background(), LoginRequest{
			Email:    "alice@example.com",
			Password: "hunter22",
		}, "10.0.0.1", "curl")
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))

		_, err := env.svc.Login(context.Background(), LoginRequest{
			Email:    "alice@example.com",
			Password: "nope",
		}, "10.0.0.1", "curl")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email looks like wrong password", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.Login(context.Background(), LoginRequest{
			Email:    "nobody@example.com",
			Password: "hunter22",
		}, "10.0.0.1", "curl")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unverified email", func(t *testing.T) {
		env := newTestEnv(t)
		u := verifiedAlice(t, "hunter22")
		u.EmailVerified = false
		env.users.add(u)

		_, err := env.svc.Login(context.Background(), LoginRequest{
			Email:    "alice@example.com",
			Password: "hunter22",
		}, "10.0.0.1", "curl")
		assert.ErrorIs(t, err, ErrEmailNotVerified)
	})
}

func TestSignupFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.svc.InitiateSignup(ctx, SignupRequest{
		LeetcodeUsername: "bob_lc",
		Email:            " Bob@Example.com ",
		Password:         "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", env.mailer.email)
	require.Len(t, env.mailer.code, 6)

	stored, err := env.users.GetByID(ctx, bobID)
	require.NoError(t, err)
	assert.NotEqual(t, env.mailer.code, *stored.OTPHash, "otp is stored hashed")
	assert.NotEqual(t, "correct horse", stored.PasswordHash)

	_, err = env.svc.CompleteSignup(ctx, VerifySignupRequest{
		Email: "bob@example.com",
		OTP:   "000000x",
	}, "10.0.0.1", "curl")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	expectTokenInsert(env.mock, bobID)
	session, err := env.svc.CompleteSignup(ctx, VerifySignupRequest{
		Email: "bob@example.com",
		OTP:   env.mailer.code,
	}, "10.0.0.1", "curl")
	require.NoError(t, err)
	assert.True(t, session.User.EmailVerified)

	_, err = env.svc.CompleteSignup(ctx, VerifySignupRequest{
		Email: "bob@example.com",
		OTP:   env.mailer.code,
	}, "10.0.0.1", "curl")
	assert.ErrorIs(t, err, core.ErrConflict)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestInitiateSignup_Rejections(t *testing.T) {
	t.Run("duplicate email", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))

		err := env.svc.InitiateSignup(context.Background(), SignupRequest{
			LeetcodeUsername: "bob_lc",
			Email:            "alice@example.com",
			Password:         "correct horse",
		})
		assert.ErrorIs(t, err, core.ErrDuplicateKey)
	})

	t.Run("unknown platform account", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.svc.InitiateSignup(context.Background(), SignupRequest{
			LeetcodeUsername: "ghost",
			Email:            "ghost@example.com",
			Password:         "correct horse",
		})
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.Empty(t, env.mailer.code)
	})
}

func TestCompleteSignup_ExpiredOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.InitiateSignup(ctx, SignupRequest{
		LeetcodeUsername: "bob_lc",
		Email:            "bob@example.com",
		Password:         "correct horse",
	}))

	env.svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err := env.svc.CompleteSignup(ctx, VerifySignupRequest{
		Email: "bob@example.com",
		OTP:   env.mailer.code,
	}, "10.0.0.1", "curl")
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestLogout(t *testing.T) {
	t.Run("foreign token is forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		token, err := core.GenerateRefreshToken(bobID)
		require.NoError(t, err)

		err = env.svc.Logout(context.Background(), aliceID, token, "10.0.0.1")
		assert.ErrorIs(t, err, core.ErrForbidden)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("stored row of another user is forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		token, err := core.GenerateRefreshToken(aliceID)
		require.NoError(t, err)

		env.mock.ExpectQuery(`FROM refresh_tokens\s+WHERE token_hash = \$1`).
			WithArgs(core.HashToken(token)).
			WillReturnRows(storedTokenRow(bobID, token))

		err = env.svc.Logout(context.Background(), aliceID, token, "10.0.0.1")
		assert.ErrorIs(t, err, core.ErrForbidden)
		assert.Empty(t, env.users.statuses[aliceID])
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("unknown token only sets offline", func(t *testing.T) {
		env := newTestEnv(t)
		token, err := core.GenerateRefreshToken(aliceID)
		require.NoError(t, err)

		env.mock.ExpectQuery(`FROM refresh_tokens\s+WHERE token_hash = \$1`).
			WithArgs(core.HashToken(token)).
			WillReturnError(sql.ErrNoRows)

		require.NoError(t, env.svc.Logout(context.Background(), aliceID, token, "10.0.0.1"))
		assert.Equal(t, statusOffline, env.users.statuses[aliceID])
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("own token is revoked", func(t *testing.T) {
		env := newTestEnv(t)
		token, err := core.GenerateRefreshToken(aliceID)
		require.NoError(t, err)

		env.mock.ExpectQuery(`FROM refresh_tokens\s+WHERE token_hash = \$1`).
			WithArgs(core.HashToken(token)).
			WillReturnRows(storedTokenRow(aliceID, token))
		env.mock.ExpectExec(`UPDATE refresh_tokens`).
			WithArgs(core.HashToken(token), "10.0.0.1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, env.svc.Logout(context.Background(), aliceID, token, "10.0.0.1"))
		assert.Equal(t, statusOffline, env.users.statuses[aliceID])
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}

func TestChangePassword(t *testing.T) {
	t.Run("new password is stored and sessions revoked", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))

		env.mock.ExpectExec(`UPDATE refresh_tokens\s+SET revoked_at = NOW\(\)\s+WHERE user_id = \$1`).
			WithArgs(aliceID).
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := env.svc.ChangePassword(context.Background(), aliceID, "hunter22", "hunter33")
		require.NoError(t, err)

		newHash := env.users.passwords[aliceID]
		require.NotEmpty(t, newHash)
		ok, err := core.VerifyPassword("hunter33", newHash)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("unchanged password is not rehashed", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))

		env.mock.ExpectExec(`UPDATE refresh_tokens`).
			WithArgs(aliceID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := env.svc.ChangePassword(context.Background(), aliceID, "hunter22", "hunter22")
		require.NoError(t, err)
		assert.Empty(t, env.users.passwords[aliceID])
	})

	t.Run("wrong current password", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))

		err := env.svc.ChangePassword(context.Background(), aliceID, "wrong", "hunter33")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}

func TestTrimDevice(t *testing.T) {
	assert.Equal(t, "curl", TrimDevice("curl"))

	long := strings.Repeat("a", 254) + "é"
	trimmed := TrimDevice(long)
	assert.LessOrEqual(t, len(trimmed), maxDeviceLength)
	assert.Equal(t, strings.Repeat("a", 254), trimmed)
}

func TestPurgeExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("deletes tokens past the grace window", func(t *testing.T) {
		env := newTestEnv(t)
		env.svc.now = func() time.Time { return now }

		env.mock.ExpectExec(`DELETE FROM refresh_tokens WHERE expires_at < \$1`).
			WithArgs(now.Add(-24 * time.Hour)).
			WillReturnResult(sqlmock.NewResult(0, 3))

		env.svc.PurgeExpired(context.Background(), 24*time.Hour)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("database failure is swallowed", func(t *testing.T) {
		env := newTestEnv(t)
		env.svc.now = func() time.Time { return now }

		env.mock.ExpectExec(`DELETE FROM refresh_tokens`).
			WillReturnError(errors.New("connection reset"))

		env.svc.PurgeExpired(context.Background(), time.Hour)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}

func storedTokenRow(userID, token string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "token_hash", "expires_at", "created_at",
		"created_by_ip", "device", "revoked_at", "revoked_by_ip", "replaced_by",
	}).AddRow(
		"33333333-3333-3333-3333-333333333333", userID, core.HashToken(token),
		now.Add(time.Hour), now, "10.0.0.1", "curl", nil, nil, nil,
	)
}

func TestForgotPassword(t *testing.T) {
	t.Run("unknown email succeeds silently", func(t *testing.T) {
		env := newTestEnv(t)

		require.NoError(t, env.svc.ForgotPassword(context.Background(), "ghost@example.com"))
		assert.Empty(t, env.mailer.resetCode)
	})

	t.Run("unverified account gets no code", func(t *testing.T) {
		env := newTestEnv(t)
		alice := verifiedAlice(t, "hunter22")
		alice.EmailVerified = false
		env.users.add(alice)

		require.NoError(t, env.svc.ForgotPassword(context.Background(), "alice@example.com"))
		assert.Empty(t, env.mailer.resetCode)
	})

	t.Run("verified account is mailed a hashed code", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))

		require.NoError(t, env.svc.ForgotPassword(context.Background(), " Alice@Example.com "))
		assert.Equal(t, "alice@example.com", env.mailer.resetTo)
		require.Len(t, env.mailer.resetCode, 6)

		stored, err := env.users.GetByID(context.Background(), aliceID)
		require.NoError(t, err)
		require.NotNil(t, stored.OTPHash)
		assert.Equal(t, core.HashToken(env.mailer.resetCode), *stored.OTPHash)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("code resets the password once and revokes sessions", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))
		require.NoError(t, env.svc.ForgotPassword(ctx, "alice@example.com"))
		code := env.mailer.resetCode

		err := env.svc.ResetPassword(ctx, ResetPasswordRequest{
			Email: "alice@example.com", OTP: "000000", Password: "brand new pass",
		})
		assert.ErrorIs(t, err, ErrInvalidOTP)

		env.mock.ExpectExec(`UPDATE refresh_tokens\s+SET revoked_at = NOW\(\)\s+WHERE user_id = \$1`).
			WithArgs(aliceID).
			WillReturnResult(sqlmock.NewResult(0, 2))

		require.NoError(t, env.svc.ResetPassword(ctx, ResetPasswordRequest{
			Email: "alice@example.com", OTP: code, Password: "brand new pass",
		}))

		ok, err := core.VerifyPassword("brand new pass", env.users.passwords[aliceID])
		require.NoError(t, err)
		assert.True(t, ok)

		err = env.svc.ResetPassword(ctx, ResetPasswordRequest{
			Email: "alice@example.com", OTP: code, Password: "another pass",
		})
		assert.ErrorIs(t, err, ErrInvalidOTP)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("expired code", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))
		require.NoError(t, env.svc.ForgotPassword(ctx, "alice@example.com"))

		env.svc.now = func() time.Time { return time.Now().Add(time.Hour) }

		err := env.svc.ResetPassword(ctx, ResetPasswordRequest{
			Email: "alice@example.com", OTP: env.mailer.resetCode, Password: "brand new pass",
		})
		assert.ErrorIs(t, err, ErrInvalidOTP)
		assert.Empty(t, env.users.passwords[aliceID])
	})

	t.Run("unknown email", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.svc.ResetPassword(ctx, ResetPasswordRequest{
			Email: "ghost@example.com", OTP: "123456", Password: "brand new pass",
		})
		assert.ErrorIs(t, err, ErrInvalidOTP)
	})
}

func TestOTPAttemptLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("signup code is dropped after repeated failures", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.svc.InitiateSignup(ctx, SignupRequest{
			LeetcodeUsername: "bob_lc",
			Email:            "bob@example.com",
			Password:         "correct horse",
		}))
		code := env.mailer.code
		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}

		for range testAuthConfig().OTPMaxAttempts {
			_, err := env.svc.CompleteSignup(ctx, VerifySignupRequest{
				Email: "bob@example.com", OTP: wrong,
			}, "10.0.0.1", "curl")
			assert.ErrorIs(t, err, ErrInvalidOTP)
		}

		_, err := env.svc.CompleteSignup(ctx, VerifySignupRequest{
			Email: "bob@example.com", OTP: code,
		}, "10.0.0.1", "curl")
		assert.ErrorIs(t, err, ErrInvalidOTP)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("reset code survives fewer failures", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.add(verifiedAlice(t, "hunter22"))
		require.NoError(t, env.svc.ForgotPassword(ctx, "alice@example.com"))
		code := env.mailer.resetCode
		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}

		for range testAuthConfig().OTPMaxAttempts - 1 {
			err := env.svc.ResetPassword(ctx, ResetPasswordRequest{
				Email: "alice@example.com", OTP: wrong, Password: "brand new pass",
			})
			assert.ErrorIs(t, err, ErrInvalidOTP)
		}

		env.mock.ExpectExec(`UPDATE refresh_tokens`).
			WithArgs(aliceID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, env.svc.ResetPassword(ctx, ResetPasswordRequest{
			Email: "alice@example.com", OTP: code, Password: "brand new pass",
		}))
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}
