package handler

import "github.com/insureportal/portal-api/internal/core/domain"

type registerRequest struct {
	Username   string `json:"username"    validate:"required,min=3,max=50"`
	Email      string `json:"email"       validate:"required,email"`
	Password   string `json:"password"    validate:"required,min=8,max=72"`
	FullName   string `json:"full_name"   validate:"max=120"`
	Phone      string `json:"phone"       validate:"max=30"`
	NationalID string `json:"national_id" validate:"max=40"`
}

type createStaffRequest struct {
	registerRequest
	Role string `json:"role" validate:"required,oneof=client policyholder agent admin"`
}

type loginRequest struct {
	// Identifier is an email address or a username.
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password"   validate:"required"`
}

type updateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=120"`
	Phone    *string `json:"phone"     validate:"omitempty,max=30"`
	Email    *string `json:"email"     validate:"omitempty,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72"`
}

type setStatusRequest struct {
	IsActive    *bool `json:"is_active"    validate:"required"`
	IsSuspended *bool `json:"is_suspended" validate:"required"`
	IsVerified  *bool `json:"is_verified"  validate:"required"`
}

type setPermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"dive,required"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}
