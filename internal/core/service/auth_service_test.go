package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

const testSecret = "secret"

func newTestAuthService() (*AuthService, *stubUserRepo, *recordingActivity) {
	repo := newStubUserRepo()
	activity := &recordingActivity{}
	return NewAuthService(repo, activity, testSecret, time.Hour, discardLogger), repo, activity
}

func seedUser(t *testing.T, repo *stubUserRepo, u *domain.User, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u.PasswordHash = string(hash)
	return repo.put(u)
}

func signToken(t *testing.T, claims jwt.Claims, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func reasonOf(t *testing.T, err error) domain.Reason {
	t.Helper()
	de, ok := domain.AsError(err)
	if !ok {
		t.Fatalf("expected *domain.Error, got %v", err)
	}
	return de.Reason
}

// ---------------------------------------------------------------------------
// Register / Login
// ---------------------------------------------------------------------------

func TestAuthService_Register_Success(t *testing.T) {
	svc, _, _ := newTestAuthService()

	user, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "alice", Email: "Alice@Example.com", Password: "pass1234", Role: "admin",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass1234")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.Role != domain.RoleClient {
		t.Fatalf("self-registration must yield a client, got %s", user.Role)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email not normalised: %s", user.Email)
	}
	if !user.IsActive || user.IsSuspended {
		t.Fatalf("new accounts start active")
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), ports.RegisterInput{Username: "", Email: "a@b.c", Password: "pass1234"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	_, err = svc.Register(context.Background(), ports.RegisterInput{Username: "a", Email: "a@b.c", Password: "short"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for short password, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc, _, _ := newTestAuthService()
	in := ports.RegisterInput{Username: "alice", Email: "a@example.com", Password: "pass1234", NationalID: "X1"}
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	in.Username, in.Email = "other", "other@example.com"
	if _, err := svc.Register(context.Background(), in); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists on national id reuse, got %v", err)
	}
}

func TestAuthService_Register_MixedCaseUsernameCanLogIn(t *testing.T) {
	svc, _, _ := newTestAuthService()

	user, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "Alice", Email: "alice@example.com", Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("username not normalised: %s", user.Username)
	}
	for _, identifier := range []string{"Alice", "alice", " ALICE "} {
		if _, _, err := svc.Login(context.Background(), identifier, "pass1234"); err != nil {
			t.Fatalf("Login(%q): %v", identifier, err)
		}
	}
}

func TestAuthService_PasswordLimitIsInBytes(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	long := strings.Repeat("é", 40) // 40 characters, 80 bytes

	_, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "bob", Email: "bob@example.com", Password: long,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if reasonOf(t, err) != domain.ReasonValidation {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}

	u := seedUser(t, repo, &domain.User{Username: "carol", Email: "c@example.com", Role: domain.RoleClient, IsActive: true}, "pass1234")
	if err := svc.ChangePassword(context.Background(), u.ID, "pass1234", long); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput on change, got %v", err)
	}
}

func TestAuthService_CreateStaff(t *testing.T) {
	svc, _, _ := newTestAuthService()

	user, err := svc.CreateStaff(context.Background(), ports.RegisterInput{
		Username: "agent1", Email: "agent@example.com", Password: "pass1234", Role: "agent",
	})
	if err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	if user.Role != domain.RoleAgent {
		t.Fatalf("expected agent, got %s", user.Role)
	}

	_, err = svc.CreateStaff(context.Background(), ports.RegisterInput{
		Username: "x", Email: "x@example.com", Password: "pass1234", Role: "superuser",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	seeded := seedUser(t, repo, &domain.User{Username: "alice", Email: "alice@example.com", Role: domain.RoleClient, IsActive: true}, "pass1234")

	token, user, err := svc.Login(context.Background(), "ALICE@example.com", "pass1234")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.PasswordHash != "" {
		t.Fatalf("login response must not carry the hash")
	}
	if repo.loginTouchs != 1 {
		t.Fatalf("expected last login to be recorded")
	}

	claims := &tokenClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return []byte(testSecret), nil }); err != nil {
		t.Fatalf("token did not parse: %v", err)
	}
	if claims.Subject != seeded.ID || claims.Role != string(domain.RoleClient) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt == nil {
		t.Fatalf("token must expire")
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	seedUser(t, repo, &domain.User{Username: "alice", Email: "alice@example.com", Role: domain.RoleClient, IsActive: true}, "pass1234")
	seedUser(t, repo, &domain.User{Username: "bob", Email: "bob@example.com", Role: domain.RoleClient, IsActive: true, IsSuspended: true}, "pass1234")

	if _, _, err := svc.Login(context.Background(), "alice", "wrong-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody", "pass1234"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "bob", "pass1234"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("suspended user: expected ErrForbidden, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Authenticate
// ---------------------------------------------------------------------------

func TestAuthService_Authenticate_Success(t *testing.T) {
	svc, repo, activity := newTestAuthService()
	u := seedUser(t, repo, &domain.User{Username: "alice", Email: "a@example.com", Role: domain.RoleClient, IsActive: true}, "pass1234")
	token, err := svc.generateToken(u)
	if err != nil {
		t.Fatalf("generateToken: %v", err)
	}

	ac, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if ac.PrincipalID() != u.ID || ac.Principal.PasswordHash != "" {
		t.Fatalf("unexpected principal: %+v", ac.Principal)
	}
	if !ac.HasPermission(domain.AllOf, domain.PermClaimsCreate) {
		t.Fatalf("client permissions were not resolved")
	}
	if len(activity.ids) != 1 || activity.ids[0] != u.ID {
		t.Fatalf("expected last-active to be recorded once, got %v", activity.ids)
	}
}

func TestAuthService_Authenticate_TokenFailures(t *testing.T) {
	svc, repo, activity := newTestAuthService()
	u := seedUser(t, repo, &domain.User{Username: "alice", Email: "a@example.com", Role: domain.RoleClient, IsActive: true}, "pass1234")
	now := time.Now()

	cases := []struct {
		name   string
		token  string
		reason domain.Reason
	}{
		{"missing", "", domain.ReasonTokenMissing},
		{"garbage", "not-a-token", domain.ReasonTokenInvalid},
		{"expired", signToken(t, jwt.RegisteredClaims{
			Subject: u.ID, ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		}, testSecret), domain.ReasonTokenExpired},
		{"not yet valid", signToken(t, jwt.RegisteredClaims{
			Subject: u.ID, NotBefore: jwt.NewNumericDate(now.Add(time.Hour)), ExpiresAt: jwt.NewNumericDate(now.Add(2 * time.Hour)),
		}, testSecret), domain.ReasonTokenNotYetValid},
		{"wrong key", signToken(t, jwt.RegisteredClaims{
			Subject: u.ID, ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}, "other-secret"), domain.ReasonTokenInvalid},
		{"no expiry", signToken(t, jwt.RegisteredClaims{Subject: u.ID}, testSecret), domain.ReasonTokenInvalid},
		{"no subject", signToken(t, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}, testSecret), domain.ReasonTokenInvalid},
		{"unknown principal", signToken(t, jwt.RegisteredClaims{
			Subject: "ghost", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}, testSecret), domain.ReasonPrincipalNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tc.token)
			if !errors.Is(err, domain.ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
			if got := reasonOf(t, err); got != tc.reason {
				t.Fatalf("expected reason %s, got %s", tc.reason, got)
			}
		})
	}
	if len(activity.ids) != 0 {
		t.Fatalf("failed authentications must not touch last-active")
	}
}

func TestAuthService_Authenticate_BarredAccountsAreForbidden(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	suspended := seedUser(t, repo, &domain.User{Username: "s", Email: "s@example.com", Role: domain.RoleClient, IsActive: true, IsSuspended: true}, "pass1234")
	inactive := seedUser(t, repo, &domain.User{Username: "i", Email: "i@example.com", Role: domain.RoleClient}, "pass1234")

	for _, u := range []*domain.User{suspended, inactive} {
		token, _ := svc.generateToken(u)
		_, err := svc.Authenticate(context.Background(), token)
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("%s: expected ErrForbidden, got %v", u.Username, err)
		}
		if errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("%s: barred account must not read as unauthenticated", u.Username)
		}
	}
}

// ---------------------------------------------------------------------------
// Account maintenance
// ---------------------------------------------------------------------------

func TestAuthService_ChangePassword(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	u := seedUser(t, repo, &domain.User{Username: "alice", Email: "a@example.com", Role: domain.RoleClient, IsActive: true}, "pass1234")

	if err := svc.ChangePassword(context.Background(), u.ID, "wrong", "newpass123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), u.ID, "pass1234", "newpass123"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "alice", "newpass123"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestAuthService_SetPermissions_RejectsUnknown(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	u := repo.put(&domain.User{Username: "a", Email: "a@example.com", Role: domain.RoleAgent, IsActive: true})

	if _, err := svc.SetPermissions(context.Background(), u.ID, []domain.Permission{"claims:teleport"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	updated, err := svc.SetPermissions(context.Background(), u.ID, []domain.Permission{domain.PermUsersManage})
	if err != nil {
		t.Fatalf("SetPermissions: %v", err)
	}
	if len(updated.Permissions) != 1 {
		t.Fatalf("permissions not stored: %v", updated.Permissions)
	}
}

func TestAuthService_UpdateProfile_NormalisesEmail(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	u := repo.put(&domain.User{Username: "a", Email: "a@example.com", Role: domain.RoleClient, IsActive: true})

	email := "  New@Example.com "
	updated, err := svc.UpdateProfile(context.Background(), u.ID, domain.ProfileUpdate{Email: &email})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Email != "new@example.com" {
		t.Fatalf("unexpected email %q", updated.Email)
	}
}
