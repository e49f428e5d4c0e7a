package ports

import (
	"context"
	"time"

	"github.com/insureportal/portal-api/internal/core/domain"
)

// UserRepository defines the persistence operations on principals.
type UserRepository interface {
	// Create inserts a new user. Duplicate email, username or national ID
	// yields domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// FindByLogin looks a user up by email or username, including the
	// password hash.
	FindByLogin(ctx context.Context, identifier string) (*domain.User, error)
	// FindByID loads a user without credential fields.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindCredentials loads a user by id including the password hash.
	FindCredentials(ctx context.Context, id string) (*domain.User, error)
	// TouchLastActive sets last_active only, skipping any validation.
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetStatus(ctx context.Context, id string, status domain.AccountStatus) (*domain.User, error)
	SetPermissions(ctx context.Context, id string, perms []domain.Permission) (*domain.User, error)
}
