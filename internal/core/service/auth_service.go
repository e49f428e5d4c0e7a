package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

const (
	minPasswordLength = 8
	maxPasswordBytes  = 72
)

// tokenClaims is the payload of a session token. The subject is the user id.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService implements accounts and request authentication.
type AuthService struct {
	repo      ports.UserRepository
	activity  ports.ActivityRecorder
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewAuthService(repo ports.UserRepository, activity ports.ActivityRecorder, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		repo:      repo,
		activity:  activity,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates a client account. The requested role is ignored.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	in.Role = string(domain.RoleClient)
	return s.create(ctx, in)
}

// CreateStaff creates an account of any role; only admins reach it.
func (s *AuthService) CreateStaff(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.create(ctx, in)
}

func (s *AuthService) create(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || in.Password == "" {
		return nil, domain.InvalidInput(domain.ReasonValidation, "username, email and password are required")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return nil, domain.InvalidInput(domain.ReasonValidation, "unknown role "+in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        email,
		NationalID:   strings.TrimSpace(in.NationalID),
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", created.ID).Str("role", string(role)).Msg("account created")
	return created, nil
}

// Login checks credentials and issues a session token. Unknown identifiers
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (string, *domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByLogin(ctx, strings.ToLower(identifier))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err := user.CheckStanding(); err != nil {
		return "", nil, err
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}
	user.LastLogin = now

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}
	user.PasswordHash = ""
	return token, user, nil
}

// Authenticate walks the gate: token present, token valid, principal found,
// principal in good standing. On success the last-active timestamp is
// recorded and the authorization context is returned.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.Unauthenticated(domain.ReasonTokenMissing, "authentication required")
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.Unauthenticated(domain.ReasonPrincipalNotFound, "principal no longer exists")
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if err := user.CheckStanding(); err != nil {
		return nil, err
	}

	if s.activity != nil {
		s.activity.Record(user.ID)
	}
	return domain.NewAuthContext(user), nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error) {
	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email == "" {
			return nil, domain.InvalidInput(domain.ReasonValidation, "email cannot be empty")
		}
		update.Email = &email
	}
	return s.repo.UpdateProfile(ctx, userID, update)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := checkPassword(next); err != nil {
		return err
	}
	user, err := s.repo.FindCredentials(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("password changed")
	return nil
}

func (s *AuthService) SetStatus(ctx context.Context, userID string, status domain.AccountStatus) (*domain.User, error) {
	user, err := s.repo.SetStatus(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", userID).
		Bool("active", status.IsActive).
		Bool("suspended", status.IsSuspended).
		Msg("account status changed")
	return user, nil
}

func (s *AuthService) SetPermissions(ctx context.Context, userID string, perms []domain.Permission) (*domain.User, error) {
	for _, p := range perms {
		if !domain.KnownPermission(p) {
			return nil, domain.InvalidInput(domain.ReasonValidation, "unknown permission "+string(p))
		}
	}
	return s.repo.SetPermissions(ctx, userID, perms)
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

// parseToken verifies signature and time claims, translating failures into
// reason codes a client can act on (refresh on expiry, re-login otherwise).
func (s *AuthService) parseToken(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(s.jwtSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, domain.Unauthenticated(domain.ReasonTokenExpired, "token has expired")
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, domain.Unauthenticated(domain.ReasonTokenNotYetValid, "token is not valid yet")
	case err != nil:
		return nil, domain.Unauthenticated(domain.ReasonTokenInvalid, "invalid token")
	}
	if claims.Subject == "" {
		return nil, domain.Unauthenticated(domain.ReasonTokenInvalid, "token has no subject")
	}
	return claims, nil
}

// checkPassword enforces the length bounds. bcrypt reads at most 72 bytes, so
// the upper bound is in bytes, not characters.
func checkPassword(pw string) error {
	if len(pw) < minPasswordLength {
		return domain.InvalidInput(domain.ReasonValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(pw) > maxPasswordBytes {
		return domain.InvalidInput(domain.ReasonValidation,
			fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}
