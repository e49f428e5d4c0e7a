package ports

import (
	"context"

	"github.com/insureportal/portal-api/internal/core/domain"
)

// RegisterInput carries self-registration details. Role is only honoured
// for staff accounts created by an admin.
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	FullName   string
	Phone      string
	NationalID string
	Role       string
}

// AuthService covers accounts and request authentication.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	CreateStaff(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, identifier, password string) (string, *domain.User, error)
	// Authenticate verifies a bearer token and resolves the acting principal.
	Authenticate(ctx context.Context, token string) (*domain.AuthContext, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	SetStatus(ctx context.Context, userID string, status domain.AccountStatus) (*domain.User, error)
	SetPermissions(ctx context.Context, userID string, perms []domain.Permission) (*domain.User, error)
}

// ActivityRecorder persists "last active" timestamps off the request path.
type ActivityRecorder interface {
	Record(userID string)
}
