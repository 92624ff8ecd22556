package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// UserService covers staff-facing account administration. All methods take
// the acting user so department scoping and self-mutation guards can be
// applied; role gates live in the authz package.
type UserService struct {
	users  repository.UserRepository
	mailer Mailer
	cfg    config.AuthConfig
	logger *zap.Logger
	now    func() time.Time
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo repository.UserRepository
	Mailer   Mailer
	Config   config.AuthConfig
	Logger   *zap.Logger
	Now      func() time.Time
}

// UserListInput describes administration listing filters.
type UserListInput struct {
	Role       *domain.Role
	IsVerified *bool
	Department *string
	Search     *string
	Page       int
	Limit      int
}

// UserPage is a paginated user listing.
type UserPage struct {
	Page       int           `json:"page"`
	TotalPages int64         `json:"totalPages"`
	Total      int64         `json:"total"`
	PageSize   int           `json:"pageSize"`
	Results    []domain.User `json:"results"`
}

// UserCreateInput describes operator-provisioned account payload.
type UserCreateInput struct {
	Name       string
	Email      string
	Password   string
	Role       domain.Role
	Department *string
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:  deps.UserRepo,
		mailer: deps.Mailer,
		cfg:    deps.Config,
		logger: logger,
		now:    now,
	}
}

// List returns a paginated user listing. IT staff are confined to their own
// department: the department filter is overridden with theirs, and staff
// without a department see an empty list.
func (s *UserService) List(ctx context.Context, acting *domain.User, input UserListInput) (*UserPage, error) {
	actor := actorOf(acting)
	if err := authz.CanManageUsers(actor); err != nil {
		return nil, err
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	department := input.Department
	if acting.Role == domain.RoleITStaff {
		if acting.Department == nil || *acting.Department == "" {
			return &UserPage{Page: page, TotalPages: 1, Total: 0, PageSize: limit, Results: []domain.User{}}, nil
		}
		department = acting.Department
	}

	users, total, err := s.users.FindAndCount(ctx, repository.UserFilter{
		Role:       input.Role,
		IsVerified: input.IsVerified,
		Department: department,
		SearchTerm: input.Search,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	if totalPages == 0 {
		totalPages = 1
	}
	return &UserPage{
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		PageSize:   limit,
		Results:    users,
	}, nil
}

// Get returns a single user record.
func (s *UserService) Get(ctx context.Context, acting *domain.User, userID int64) (*domain.User, error) {
	if err := authz.CanManageUsers(actorOf(acting)); err != nil {
		return nil, err
	}
	return s.fetch(ctx, userID)
}

// Create provisions an account on someone's behalf. The account is verified
// immediately, flagged to change its password on first login, and the
// requested role may be downgraded depending on who is asking.
func (s *UserService) Create(ctx context.Context, acting *domain.User, input UserCreateInput) (*domain.User, error) {
	actor := actorOf(acting)
	if err := authz.CanCreateUser(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	email := trimEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("invalid email address", nil)
	}
	if len(input.Password) < 6 {
		return nil, apperrors.NewValidationError("password must be at least 6 characters", nil)
	}
	if input.Role != "" && !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role value", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email is already registered", nil)
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	createdBy := acting.ID
	user := &domain.User{
		Name:               name,
		Email:              email,
		PasswordHash:       hash,
		Role:               authz.EffectiveRoleForCreate(actor, input.Role),
		Department:         input.Department,
		IsVerified:         true,
		MustChangePassword: true,
		CreatedBy:          &createdBy,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.mailer != nil {
		body := fmt.Sprintf("Hi %s,\n\nAn account has been created for you by %s. Sign in with your email address and the password you were given, then change it.",
			user.Name, acting.Name)
		if err := s.mailer.Send(ctx, []string{user.Email}, "Your Helpdesk Account", body); err != nil {
			s.logger.Warn("provision mail failed", zap.String("email", user.Email), zap.Error(err))
		}
	}
	return user, nil
}

// UpdateRole changes a user's role. Managers only, and never their own.
func (s *UserService) UpdateRole(ctx context.Context, acting *domain.User, userID int64, role domain.Role) (*domain.User, error) {
	if err := authz.CanUpdateUserRole(actorOf(acting), userID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role value", nil)
	}

	user, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateStatus toggles an account's verified flag. Nobody can change their
// own status, and IT staff cannot touch managers.
func (s *UserService) UpdateStatus(ctx context.Context, acting *domain.User, userID int64, verified bool) (*domain.User, error) {
	user, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanUpdateUserStatus(actorOf(acting), userID, user.Role); err != nil {
		return nil, err
	}

	user.IsVerified = verified
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateDepartment sets or clears a user's department. IT staff cannot
// modify managers; an empty string clears the assignment.
func (s *UserService) UpdateDepartment(ctx context.Context, acting *domain.User, userID int64, department string) (*domain.User, error) {
	user, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanUpdateUserDepartment(actorOf(acting), user.Role); err != nil {
		return nil, err
	}

	department = strings.TrimSpace(department)
	if department == "" {
		user.Department = nil
	} else {
		user.Department = &department
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Delete removes an account permanently. Managers only, never themselves.
// Tickets the user created survive with a null creator; their comments are
// removed with them.
func (s *UserService) Delete(ctx context.Context, acting *domain.User, userID int64) error {
	if err := authz.CanDeleteUser(actorOf(acting), userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("user", nil)
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ResendVerification issues a fresh verification code on a user's behalf
// with a generous expiry, for accounts that never completed self-service
// verification.
func (s *UserService) ResendVerification(ctx context.Context, acting *domain.User, userID int64) error {
	user, err := s.fetch(ctx, userID)
	if err != nil {
		return err
	}
	if err := authz.CanResendVerification(actorOf(acting), user.Role); err != nil {
		return err
	}
	if user.IsVerified {
		return apperrors.NewValidationError("account is already verified", nil)
	}

	code, err := auth.GenerateVerificationCode()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	expires := s.now().Add(time.Duration(s.cfg.AdminResendTTLHours) * time.Hour)
	user.VerificationCode = &code
	user.VerificationExpires = &expires
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}

	if s.mailer != nil {
		body := fmt.Sprintf("Hi %s,\n\nYour verification code is %s. It expires in %d hours.",
			user.Name, code, s.cfg.AdminResendTTLHours)
		if err := s.mailer.Send(ctx, []string{user.Email}, "Verify Your Account", body); err != nil {
			s.logger.Warn("verification mail failed", zap.String("email", user.Email), zap.Error(err))
		}
	}
	return nil
}

// Stats returns account totals and per-role/per-department breakdowns.
func (s *UserService) Stats(ctx context.Context, acting *domain.User) (*domain.UserStats, error) {
	if err := authz.CanViewUserStats(actorOf(acting)); err != nil {
		return nil, err
	}
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

func (s *UserService) fetch(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func actorOf(user *domain.User) authz.Actor {
	return authz.Actor{ID: user.ID, Role: user.Role}
}
