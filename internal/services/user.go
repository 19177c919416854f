package services

import (
	"context"
	"errors"

	"github.com/cropsight/apiserver/internal/store"
	"github.com/cropsight/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	ListNonAdmin(ctx context.Context) ([]types.User, error)
	Delete(ctx context.Context, id int) error
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) ListNonAdmin(ctx context.Context) ([]types.User, error) {
	return s.repo.ListNonAdmin(ctx)
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// Register creates an account with a bcrypt-hashed password. It fails with
// store.ErrConflict when the username is taken and, when requireUniqueEmail
// is set (the admin-creation path), when the email is taken too.
func (s *UserService) Register(ctx context.Context, username, email, password, role string, requireUniqueEmail bool) (types.User, error) {
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.User{}, store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	if requireUniqueEmail && email != "" {
		taken, err := s.repo.EmailTaken(ctx, email)
		if err != nil {
			return types.User{}, err
		}
		if taken {
			return types.User{}, store.ErrConflict
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		Role:         role,
		PasswordHash: string(hashed),
	})
}

// Authenticate verifies credentials and returns the matching user. A missing
// user and a hash mismatch are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

// EnsureAdmin seeds the reserved admin account if it is absent.
func (s *UserService) EnsureAdmin(ctx context.Context, password string) error {
	_, err := s.repo.GetByUsername(ctx, types.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.repo.Create(ctx, types.User{
		Username:     types.AdminUsername,
		Email:        "admin@cropsight.ai",
		Role:         types.RoleAdmin,
		PasswordHash: string(hashed),
	})
	return err
}
