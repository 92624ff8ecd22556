package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateUserRequest payload for operator-provisioned accounts.
type CreateUserRequest struct {
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	Role       domain.Role `json:"role"`
	Department *string     `json:"department"`
}

// UpdateRoleRequest payload.
type UpdateRoleRequest struct {
	Role domain.Role `json:"role"`
}

// UpdateStatusRequest payload.
type UpdateUserStatusRequest struct {
	IsVerified *bool `json:"is_verified"`
}

// UpdateDepartmentRequest payload. An empty department clears the value.
type UpdateDepartmentRequest struct {
	Department string `json:"department"`
}

// UserResponse is the public user representation. Password hash and
// verification code never leave the service.
type UserResponse struct {
	ID                 int64       `json:"id"`
	Name               string      `json:"name"`
	Email              string      `json:"email"`
	Role               domain.Role `json:"role"`
	IsVerified         bool        `json:"is_verified"`
	Department         *string     `json:"department"`
	LastLoginAt        *time.Time  `json:"last_login_at"`
	MustChangePassword bool        `json:"must_change_password"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// UserPageResponse is a paginated listing.
type UserPageResponse struct {
	Page       int            `json:"page"`
	TotalPages int64          `json:"total_pages"`
	Total      int64          `json:"total"`
	PageSize   int            `json:"page_size"`
	Results    []UserResponse `json:"results"`
}

// UserFromDomain maps a domain user to its response shape.
func UserFromDomain(u *domain.User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Role:               u.Role,
		IsVerified:         u.IsVerified,
		Department:         u.Department,
		LastLoginAt:        u.LastLoginAt,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// UsersFromDomain maps a slice of users.
func UsersFromDomain(users []domain.User) []UserResponse {
	items := make([]UserResponse, 0, len(users))
	for i := range users {
		items = append(items, UserFromDomain(&users[i]))
	}
	return items
}
