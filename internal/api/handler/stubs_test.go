package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/insureportal/portal-api/internal/api/middleware"
	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

// stubAuthService lets each test override only the calls it exercises.
type stubAuthService struct {
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	createStaffFn    func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn          func(ctx context.Context, identifier, password string) (string, *domain.User, error)
	meFn             func(ctx context.Context, userID string) (*domain.User, error)
	updateProfileFn  func(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.User, error)
	changePasswordFn func(ctx context.Context, userID, current, next string) error
	setStatusFn      func(ctx context.Context, userID string, s domain.AccountStatus) (*domain.User, error)
	setPermsFn       func(ctx context.Context, userID string, p []domain.Permission) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) CreateStaff(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.createStaffFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, identifier, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, identifier, password)
}

func (s *stubAuthService) Authenticate(context.Context, string) (*domain.AuthContext, error) {
	return nil, domain.Unauthenticated(domain.ReasonTokenInvalid, "not used")
}

func (s *stubAuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.meFn(ctx, userID)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.User, error) {
	return s.updateProfileFn(ctx, userID, u)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return s.changePasswordFn(ctx, userID, current, next)
}

func (s *stubAuthService) SetStatus(ctx context.Context, userID string, st domain.AccountStatus) (*domain.User, error) {
	return s.setStatusFn(ctx, userID, st)
}

func (s *stubAuthService) SetPermissions(ctx context.Context, userID string, p []domain.Permission) (*domain.User, error) {
	return s.setPermsFn(ctx, userID, p)
}

type stubIntake struct {
	policy    func(ac *domain.AuthContext, p *domain.Policy) (*domain.Policy, error)
	claim     func(ac *domain.AuthContext, c *domain.Claim) (*domain.Claim, error)
	complaint func(ac *domain.AuthContext, c *domain.Complaint) (*domain.Complaint, error)
}

func (s *stubIntake) IssuePolicy(_ context.Context, ac *domain.AuthContext, p *domain.Policy) (*domain.Policy, error) {
	return s.policy(ac, p)
}

func (s *stubIntake) SubmitClaim(_ context.Context, ac *domain.AuthContext, c *domain.Claim) (*domain.Claim, error) {
	return s.claim(ac, c)
}

func (s *stubIntake) FileComplaint(_ context.Context, ac *domain.AuthContext, c *domain.Complaint) (*domain.Complaint, error) {
	return s.complaint(ac, c)
}

type stubRecords[R domain.NumberedRecord] struct {
	getFn    func(ac *domain.AuthContext, id string) (R, error)
	listFn   func(ac *domain.AuthContext, f ports.RecordFilter) (*ports.ListResult[R], error)
	statusFn func(ac *domain.AuthContext, id, status, notes string) (R, error)
}

func (s *stubRecords[R]) Create(_ context.Context, rec R) (R, error) { return rec, nil }

func (s *stubRecords[R]) Get(_ context.Context, ac *domain.AuthContext, id string) (R, error) {
	return s.getFn(ac, id)
}

func (s *stubRecords[R]) Load(_ context.Context, id string) (R, error) {
	return s.getFn(nil, id)
}

func (s *stubRecords[R]) List(_ context.Context, ac *domain.AuthContext, f ports.RecordFilter) (*ports.ListResult[R], error) {
	return s.listFn(ac, f)
}

func (s *stubRecords[R]) UpdateStatus(_ context.Context, ac *domain.AuthContext, id, status, notes string) (R, error) {
	return s.statusFn(ac, id, status, notes)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func asUser(c echo.Context, u *domain.User) echo.Context {
	middleware.SetAuthContext(c, domain.NewAuthContext(u))
	return c
}
