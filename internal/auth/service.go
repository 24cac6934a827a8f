// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/stockease/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
)

const blacklistKeyPrefix = "blacklist:"

type UserInfo struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
}

// UserProvider is the identity-store collaborator: it owns durable user
// records while this service owns credentials and sessions.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateEmail(ctx context.Context, userID, email string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type Service struct {
	repo  Repository
	jwt   *JWTManager
	users UserProvider
	kv    core.KV
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	users UserProvider,
	kv core.KV,
) *Service {
	return &Service{
		repo:  repo,
		jwt:   jwt,
		users: users,
		kv:    kv,
	}
}

// Login deliberately reports one indistinct failure for unknown email and
// wrong password, and maps to 400 rather than 401 at the handler so the
// response does not hint which field was wrong.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing equalization, result is discarded
			_, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issueTokens(ctx, user, userAgent, ipAddress, "", nil)
	if err != nil {
		return nil, err
	}
	resp.Message = "Login successful"
	return resp, nil
}

// IssueTokens creates a fresh access/refresh pair for a user, starting a new
// refresh-token family. Used for login and for the account created by OTP
// verification.
func (s *Service) IssueTokens(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	return s.issueTokens(ctx, user, userAgent, ipAddress, "", nil)
}

func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	tokenHash := core.HashToken(refreshToken)

	storedToken, err := s.repo.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if storedToken.IsUsed {
		//nolint:errcheck // security revocation continues regardless
		_ = s.repo.RevokeByFamilyID(ctx, storedToken.FamilyID)
		return nil, ErrTokenReuse
	}

	if !storedToken.IsValid() {
		if storedToken.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.users.GetByID(ctx, storedToken.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return s.issueTokens(
		ctx,
		user,
		userAgent,
		ipAddress,
		storedToken.FamilyID,
		&storedToken.ID,
	)
}

// RevokeResult makes the logout 200-vs-400 decision explicit instead of
// catching a generic error.
type RevokeResult int

const (
	RevokeOK RevokeResult = iota
	RevokeAlreadyInvalid
	RevokeMalformed
)

// RevokeRefreshToken blacklists a refresh token. Once revoked, the token is
// rejected on every subsequent refresh attempt.
func (s *Service) RevokeRefreshToken(
	ctx context.Context,
	refreshToken string,
) (RevokeResult, error) {
	if refreshToken == "" {
		return RevokeMalformed, nil
	}

	tokenHash := core.HashToken(refreshToken)

	storedToken, err := s.repo.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return RevokeMalformed, nil
		}
		return RevokeMalformed, fmt.Errorf("find token: %w", err)
	}

	if storedToken.IsRevoked() || storedToken.IsExpired() {
		return RevokeAlreadyInvalid, nil
	}

	if err := s.repo.RevokeByID(ctx, storedToken.ID); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return RevokeMalformed, fmt.Errorf("revoke token: %w", err)
	}

	return RevokeOK, nil
}

// BlacklistAccessToken records the jti of a live access token so the
// authenticator rejects it for the remainder of its lifetime.
func (s *Service) BlacklistAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	key := blacklistKeyPrefix + jti
	if err := s.kv.Set(ctx, key, "1", ttl); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *Service) IsAccessTokenBlacklisted(
	ctx context.Context,
	jti string,
) (bool, error) {
	_, err := s.kv.Get(ctx, blacklistKeyPrefix+jti)
	if errors.Is(err, core.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return true, nil
}

func (s *Service) UpdateEmail(
	ctx context.Context,
	userID, newEmail string,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if newEmail == user.Email {
		return core.FieldError(
			"email",
			"New email must be different from current email.",
		)
	}

	taken, err := s.users.EmailExists(ctx, newEmail)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return core.FieldError("email", "This email is already in use.")
	}

	if err := s.users.UpdateEmail(ctx, userID, newEmail); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return core.FieldError("email", "This email is already in use.")
		}
		return fmt.Errorf("update email: %w", err)
	}

	return nil
}

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
		return core.FieldError(
			"current_password",
			"Current password is incorrect.",
		)
	}

	if currentPassword == newPassword {
		return core.FieldError(
			"new_password",
			"New password must be different from current password.",
		)
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	// Changing the password invalidates every outstanding session.
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	return nil
}

func (s *Service) issueTokens(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress, familyID string,
	oldTokenID *string,
) (*AuthResponse, error) {
	accessToken, err := s.jwt.CreateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.jwt.CreateRefreshToken(user.ID, familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	newTokenID := uuid.New().String()

	refreshTokenEntity := &RefreshToken{
		ID:        newTokenID,
		UserID:    user.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	if oldTokenID != nil {
		if err := s.repo.Rotate(ctx, *oldTokenID, refreshTokenEntity); err != nil {
			return nil, fmt.Errorf("rotate refresh token: %w", err)
		}
	} else {
		if err := s.repo.Create(ctx, refreshTokenEntity); err != nil {
			return nil, fmt.Errorf("store refresh token: %w", err)
		}
	}

	return &AuthResponse{
		User: AuthUser{
			ID:    user.ID,
			Email: user.Email,
		},
		Tokens: TokenResponse{
			Refresh: refreshData.Token,
			Access:  accessToken,
		},
	}, nil
}

// InvalidCredentialsError is the shared 400 mapping for login failures.
func InvalidCredentialsError() *core.AppError {
	return core.NewAppError(
		ErrInvalidCredentials,
		"Invalid email or password.",
		http.StatusBadRequest,
		"INVALID_CREDENTIALS",
	)
}
