// AngelaMos | 2026
// service.go

package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/carterperez-dev/stockease/internal/auth"
	"github.com/carterperez-dev/stockease/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create persists a new account from an already-hashed password. Callers
// hash before invoking so the plaintext never crosses this boundary.
func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, firstName, lastName string,
) (*User, error) {
	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// CreateAdmin provisions an administrator account from a plaintext
// password. Only the bootstrap path uses it.
func (s *Service) CreateAdmin(
	ctx context.Context,
	email, password string,
) (*User, error) {
	passwordHash, err := core.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		IsStaff:      true,
		IsAdmin:      true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// CreateAccount is the verified-signup entry point: same persistence as
// Create but shaped for collaborators that only know auth.UserInfo.
func (s *Service) CreateAccount(
	ctx context.Context,
	email, passwordHash, firstName, lastName string,
) (*auth.UserInfo, error) {
	u, err := s.Create(ctx, email, passwordHash, firstName, lastName)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func (s *Service) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	return s.repo.ExistsByEmail(ctx, email)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateProfileRequest,
) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}

	if err := s.repo.UpdateNames(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *Service) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

// The methods below satisfy auth.UserProvider so the session service can
// resolve identities without depending on this package.

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func (s *Service) EmailExists(
	ctx context.Context,
	email string,
) (bool, error) {
	return s.repo.ExistsByEmail(ctx, email)
}

func (s *Service) UpdateEmail(
	ctx context.Context,
	userID, email string,
) error {
	return s.repo.UpdateEmail(ctx, userID, email)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role(),
	}
}

var _ auth.UserProvider = (*Service)(nil)
