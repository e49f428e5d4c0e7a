package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

func TestAdminHandler_CreateUser_PassesRole(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		createStaffFn: func(_ context.Context, in ports.RegisterInput) (*domain.User, error) {
			assert.Equal(t, "agent", in.Role)
			return &domain.User{ID: "u5", Username: in.Username, Role: domain.RoleAgent}, nil
		},
	}
	h := NewAdminHandler(stub)

	rec := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/admin/users",
		`{"username":"agent7","email":"agent7@example.com","password":"pass1234","role":"agent"}`)
	require.NoError(t, h.CreateUser(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAdminHandler_CreateUser_RejectsUnknownRole(t *testing.T) {
	e := newEcho()
	h := NewAdminHandler(&stubAuthService{})

	req := jsonRequest(http.MethodPost, "/admin/users",
		`{"username":"root","email":"root@example.com","password":"pass1234","role":"superuser"}`)
	assert.ErrorIs(t, h.CreateUser(e.NewContext(req, httptest.NewRecorder())), domain.ErrInvalidInput)
}

func TestAdminHandler_SetStatus(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		setStatusFn: func(_ context.Context, id string, s domain.AccountStatus) (*domain.User, error) {
			assert.Equal(t, "u1", id)
			assert.Equal(t, domain.AccountStatus{IsActive: true, IsSuspended: true, IsVerified: false}, s)
			return &domain.User{ID: id, IsActive: s.IsActive, IsSuspended: s.IsSuspended}, nil
		},
	}
	h := NewAdminHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/admin/users/u1/status",
		`{"is_active":true,"is_suspended":true,"is_verified":false}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("u1")
	require.NoError(t, h.SetStatus(c))
	assert.Contains(t, rec.Body.String(), `"is_suspended":true`)

	c = e.NewContext(jsonRequest(http.MethodPut, "/admin/users/u1/status", `{"is_active":true}`), httptest.NewRecorder())
	assert.ErrorIs(t, h.SetStatus(c), domain.ErrInvalidInput)
}

func TestAdminHandler_SetPermissions(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		setPermsFn: func(_ context.Context, id string, p []domain.Permission) (*domain.User, error) {
			assert.Equal(t, []domain.Permission{domain.PermUsersManage, domain.PermClaimsReview}, p)
			return &domain.User{ID: id, Permissions: p}, nil
		},
	}
	h := NewAdminHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/admin/users/u2/permissions",
		`{"permissions":["users:manage","claims:review"]}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("u2")
	require.NoError(t, h.SetPermissions(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
