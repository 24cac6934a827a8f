// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/stockease/internal/config"
	"github.com/carterperez-dev/stockease/internal/core"
)

type fakeTokenRepo struct {
	tokens map[string]*RefreshToken // keyed by token hash
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*RefreshToken)}
}

func (f *fakeTokenRepo) Create(_ context.Context, token *RefreshToken) error {
	f.tokens[token.TokenHash] = token
	return nil
}

func (f *fakeTokenRepo) FindByHash(
	_ context.Context,
	tokenHash string,
) (*RefreshToken, error) {
	token, ok := f.tokens[tokenHash]
	if !ok {
		return nil, core.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (f *fakeTokenRepo) Rotate(
	_ context.Context,
	oldTokenID string,
	token *RefreshToken,
) error {
	for _, old := range f.tokens {
		if old.ID == oldTokenID && !old.IsUsed {
			now := time.Now()
			old.IsUsed = true
			old.UsedAt = &now
			old.ReplacedByID = &token.ID
			f.tokens[token.TokenHash] = token
			return nil
		}
	}
	// All-or-nothing: the replacement is not stored when the old token
	// cannot be retired.
	return core.ErrNotFound
}

func (f *fakeTokenRepo) RevokeByID(_ context.Context, id string) error {
	for _, token := range f.tokens {
		if token.ID == id && token.RevokedAt == nil {
			now := time.Now()
			token.RevokedAt = &now
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeTokenRepo) RevokeByFamilyID(
	_ context.Context,
	familyID string,
) error {
	now := time.Now()
	for _, token := range f.tokens {
		if token.FamilyID == familyID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeTokenRepo) RevokeAllForUser(
	_ context.Context,
	userID string,
) error {
	now := time.Now()
	for _, token := range f.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func seedToken(
	repo *fakeTokenRepo,
	raw string,
	mutate func(*RefreshToken),
) *RefreshToken {
	token := &RefreshToken{
		ID:        uuid.New().String(),
		UserID:    uuid.New().String(),
		TokenHash: core.HashToken(raw),
		FamilyID:  uuid.New().String(),
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	if mutate != nil {
		mutate(token)
	}
	repo.tokens[token.TokenHash] = token
	return token
}

func newRevokeService(repo Repository) *Service {
	return NewService(repo, nil, nil, core.NewMemoryKV())
}

func TestRevokeRefreshTokenOK(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	seeded := seedToken(repo, "valid-token", nil)
	svc := newRevokeService(repo)

	result, err := svc.RevokeRefreshToken(ctx, "valid-token")
	require.NoError(t, err)
	assert.Equal(t, RevokeOK, result)

	stored := repo.tokens[seeded.TokenHash]
	assert.NotNil(t, stored.RevokedAt)

	// Revoking again reports the token as already dead.
	result, err = svc.RevokeRefreshToken(ctx, "valid-token")
	require.NoError(t, err)
	assert.Equal(t, RevokeAlreadyInvalid, result)
}

func TestRevokeRefreshTokenExpired(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	seedToken(repo, "stale-token", func(tok *RefreshToken) {
		tok.ExpiresAt = time.Now().Add(-time.Hour)
	})
	svc := newRevokeService(repo)

	result, err := svc.RevokeRefreshToken(ctx, "stale-token")
	require.NoError(t, err)
	assert.Equal(t, RevokeAlreadyInvalid, result)
}

func TestRevokeRefreshTokenMalformed(t *testing.T) {
	ctx := context.Background()
	svc := newRevokeService(newFakeTokenRepo())

	result, err := svc.RevokeRefreshToken(ctx, "never-issued")
	require.NoError(t, err)
	assert.Equal(t, RevokeMalformed, result)

	result, err = svc.RevokeRefreshToken(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, RevokeMalformed, result)
}

func TestAccessTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	svc := newRevokeService(newFakeTokenRepo())

	jti := uuid.New().String()

	blacklisted, err := svc.IsAccessTokenBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.False(t, blacklisted)

	require.NoError(t, svc.BlacklistAccessToken(
		ctx,
		jti,
		time.Now().Add(15*time.Minute),
	))

	blacklisted, err = svc.IsAccessTokenBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestBlacklistSkipsExpiredToken(t *testing.T) {
	ctx := context.Background()
	kv := core.NewMemoryKV()
	svc := NewService(newFakeTokenRepo(), nil, nil, kv)

	jti := uuid.New().String()

	// Already past its exp claim; nothing to store.
	require.NoError(t, svc.BlacklistAccessToken(
		ctx,
		jti,
		time.Now().Add(-time.Minute),
	))
	assert.Empty(t, kv.Keys())
}

func TestRefreshReuseRevokesFamily(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()

	family := uuid.New().String()
	used := seedToken(repo, "used-token", func(tok *RefreshToken) {
		tok.FamilyID = family
		tok.IsUsed = true
	})
	sibling := seedToken(repo, "sibling-token", func(tok *RefreshToken) {
		tok.FamilyID = family
		tok.UserID = used.UserID
	})

	svc := newRevokeService(repo)

	_, err := svc.Refresh(ctx, "used-token", "", "")
	assert.ErrorIs(t, err, ErrTokenReuse)

	// Replaying a rotated token burns the whole family.
	assert.NotNil(t, repo.tokens[sibling.TokenHash].RevokedAt)
}

func TestRefreshRevokedAndExpired(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()

	now := time.Now()
	seedToken(repo, "revoked-token", func(tok *RefreshToken) {
		tok.RevokedAt = &now
	})
	seedToken(repo, "expired-token", func(tok *RefreshToken) {
		tok.ExpiresAt = now.Add(-time.Hour)
	})

	svc := newRevokeService(repo)

	_, err := svc.Refresh(ctx, "revoked-token", "", "")
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = svc.Refresh(ctx, "expired-token", "", "")
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	_, err = svc.Refresh(ctx, "unknown-token", "", "")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

type fakeUsers struct {
	byEmail map[string]*UserInfo
}

func (f *fakeUsers) GetByEmail(
	_ context.Context,
	email string,
) (*UserInfo, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) EmailExists(
	_ context.Context,
	email string,
) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeUsers) UpdateEmail(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, _, _ string) error {
	return nil
}

func newTestJWTManager(t *testing.T) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	privatePath := filepath.Join(dir, "jwt_private.pem")
	publicPath := filepath.Join(dir, "jwt_public.pem")
	require.NoError(t, GenerateKeyPair(privatePath, publicPath))

	manager, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     privatePath,
		PublicKeyPath:      publicPath,
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 7 * 24 * time.Hour,
		Issuer:             "stockease-test",
		Audience:           "stockease-test",
	})
	require.NoError(t, err)
	return manager
}

func TestRefreshRotatesTokenAtomically(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()

	hash, err := core.HashPassword("right-password")
	require.NoError(t, err)

	user := &UserInfo{
		ID:           uuid.New().String(),
		Email:        "known@example.com",
		PasswordHash: hash,
		Role:         "user",
	}
	users := &fakeUsers{byEmail: map[string]*UserInfo{user.Email: user}}

	old := seedToken(repo, "rotate-me", func(tok *RefreshToken) {
		tok.UserID = user.ID
	})

	svc := NewService(repo, newTestJWTManager(t), users, core.NewMemoryKV())

	resp, err := svc.Refresh(ctx, "rotate-me", "", "")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Tokens.Refresh)

	// The old token is retired and chained to its replacement.
	stored := repo.tokens[old.TokenHash]
	assert.True(t, stored.IsUsed)
	require.NotNil(t, stored.ReplacedByID)

	replacement := repo.tokens[core.HashToken(resp.Tokens.Refresh)]
	require.NotNil(t, replacement)
	assert.Equal(t, *stored.ReplacedByID, replacement.ID)
	assert.Equal(t, old.FamilyID, replacement.FamilyID)
}

func TestRefreshRotationLosesWhenAlreadyRotated(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()

	user := &UserInfo{
		ID:    uuid.New().String(),
		Email: "known@example.com",
		Role:  "user",
	}
	users := &fakeUsers{byEmail: map[string]*UserInfo{user.Email: user}}

	old := seedToken(repo, "raced-token", func(tok *RefreshToken) {
		tok.UserID = user.ID
	})

	// A concurrent rotation retires the token after lookup but before
	// the rotate step commits.
	racing := &racingTokenRepo{fakeTokenRepo: repo, raceID: old.ID}
	svc := NewService(racing, newTestJWTManager(t), users, core.NewMemoryKV())

	before := len(repo.tokens)
	_, err := svc.Refresh(ctx, "raced-token", "", "")
	require.Error(t, err)

	// The losing rotation must not mint a second descendant.
	assert.Len(t, repo.tokens, before)
}

// racingTokenRepo marks the target token used between FindByHash and
// Rotate, simulating two refreshes of the same token in flight.
type racingTokenRepo struct {
	*fakeTokenRepo
	raceID string
}

func (r *racingTokenRepo) FindByHash(
	ctx context.Context,
	tokenHash string,
) (*RefreshToken, error) {
	found, err := r.fakeTokenRepo.FindByHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	for _, tok := range r.tokens {
		if tok.ID == r.raceID {
			tok.IsUsed = true
		}
	}
	return found, nil
}

func TestLoginInvalidCredentials(t *testing.T) {
	ctx := context.Background()

	hash, err := core.HashPassword("right-password")
	require.NoError(t, err)

	users := &fakeUsers{byEmail: map[string]*UserInfo{
		"known@example.com": {
			ID:           uuid.New().String(),
			Email:        "known@example.com",
			PasswordHash: hash,
			Role:         "user",
		},
	}}
	svc := NewService(newFakeTokenRepo(), nil, users, core.NewMemoryKV())

	_, err = svc.Login(ctx, LoginRequest{
		Email:    "unknown@example.com",
		Password: "whatever",
	}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{
		Email:    "known@example.com",
		Password: "wrong-password",
	}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
