package repository

import (
	"context"

	"github.com/corvid-labs/userd/internal/domain"
)

// UserRepository persists users. Implementations must enforce email
// uniqueness atomically so racing creates cannot both succeed.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	// UpdateUser applies the non-nil fields and returns the updated row.
	UpdateUser(ctx context.Context, id string, email *string, passwordHash []byte) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}
