package domain

import "time"

// Role determines what a user may do across the system.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleITStaff  Role = "it_staff"
	RoleManager  Role = "manager"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleITStaff, RoleManager:
		return true
	}
	return false
}

// IsOperator reports whether the role may act on tickets operationally.
func (r Role) IsOperator() bool {
	return r == RoleITStaff || r == RoleManager
}

// User models an employee, IT staff member or manager.
// VerificationCode and VerificationExpires are set and cleared together;
// a verified user has both nil.
type User struct {
	ID                  int64
	Name                string
	Email               string
	PasswordHash        string
	Role                Role
	IsVerified          bool
	VerificationCode    *string
	VerificationExpires *time.Time
	Department          *string
	LastLoginAt         *time.Time
	CreatedBy           *int64
	MustChangePassword  bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UserRef is the embedded projection of a user on joined rows.
type UserRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// RoleCount is a per-role aggregation row.
type RoleCount struct {
	Role  Role  `json:"role"`
	Count int64 `json:"count"`
}

// DepartmentCount is a per-department aggregation row. Rows with no
// department are reported as "Unknown".
type DepartmentCount struct {
	Department string `json:"department"`
	Count      int64  `json:"count"`
}

// UserStats aggregates account numbers for the manager dashboard.
type UserStats struct {
	Total             int64             `json:"total"`
	Active            int64             `json:"active"`
	Inactive          int64             `json:"inactive"`
	Employees         int64             `json:"employees"`
	ITStaff           int64             `json:"itStaff"`
	Managers          int64             `json:"managers"`
	RoleBreakdown     []RoleCount       `json:"roleBreakdown"`
	UsersByDepartment []DepartmentCount `json:"usersByDepartment"`
}
