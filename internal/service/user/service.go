package user

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/corvid-labs/userd/internal/crypto"
	"github.com/corvid-labs/userd/internal/domain"
	"github.com/corvid-labs/userd/internal/repository"
)

// Business outcomes surfaced to the API layer. The messages are the
// user-facing detail strings.
var (
	ErrEmailTaken         = errors.New("Email already registered")
	ErrUserNotFound       = errors.New("There is no user with this ID")
	ErrInvalidCredentials = errors.New("Invalid credentials")
)

// Service implements the user lifecycle and authentication.
type Service struct {
	users  repository.UserRepository
	hasher crypto.PasswordHasher
	logger *slog.Logger
}

// New constructs a Service.
func New(users repository.UserRepository, hasher crypto.PasswordHasher, logger *slog.Logger) Service {
	return Service{users: users, hasher: hasher, logger: logger}
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Email    *string
	Password *string
}

// Create registers a new user. The insert relies on the store's unique
// email constraint, so a concurrent duplicate still fails cleanly.
func (s Service) Create(ctx context.Context, email, password string) (*domain.User, error) {
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}

// Get returns a user by id.
func (s Service) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List returns all users.
func (s Service) List(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsers(ctx)
}

// Update applies the supplied fields to an existing user, re-hashing the
// password when one is provided. The id is immutable.
func (s Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.User, error) {
	var hash []byte
	if in.Password != nil {
		var err error
		hash, err = s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
	}
	user, err := s.users.UpdateUser(ctx, id, in.Email, hash)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("user updated", "user_id", user.ID)
	return user, nil
}

// Delete removes a user. Subsequent lookups on the id fail with
// ErrUserNotFound.
func (s Service) Delete(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// Authenticate verifies email/password credentials. An unknown email and a
// wrong password both yield ErrInvalidCredentials so callers cannot
// enumerate accounts.
func (s Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, nil
}
