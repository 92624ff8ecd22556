package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/throttle"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AuthService handles registration, email verification and the password
// lifecycle. Verification and reset mails are best-effort: a mailer failure
// is logged and never surfaced to the caller.
type AuthService struct {
	users   repository.UserRepository
	tokens  *auth.TokenManager
	limiter throttle.Limiter
	mailer  Mailer
	cfg     config.AuthConfig
	logger  *zap.Logger
	now     func() time.Time
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Tokens   *auth.TokenManager
	Limiter  throttle.Limiter
	Mailer   Mailer
	Config   config.AuthConfig
	Logger   *zap.Logger
	Now      func() time.Time
}

// RegisterInput describes self-service registration payload.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Department *string
}

// Session is a successful authentication result.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:   deps.UserRepo,
		tokens:  deps.Tokens,
		limiter: deps.Limiter,
		mailer:  deps.Mailer,
		cfg:     deps.Config,
		logger:  logger,
		now:     now,
	}
}

// Register creates an unverified employee account and issues a session token
// right away. A 6-digit verification code is mailed out of band.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
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

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email is already registered", nil)
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	code, err := auth.GenerateVerificationCode()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	expires := s.now().Add(time.Duration(s.cfg.VerificationTTLMinutes) * time.Minute)

	user := &domain.User{
		Name:                name,
		Email:               email,
		PasswordHash:        hash,
		Role:                domain.RoleEmployee,
		Department:          input.Department,
		IsVerified:          false,
		VerificationCode:    &code,
		VerificationExpires: &expires,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.sendVerificationMail(ctx, user, code)

	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Verify marks the account verified when the submitted code matches and has
// not expired. The stored code pair is cleared either way on success.
func (s *AuthService) Verify(ctx context.Context, email, code string) (*domain.User, error) {
	email = trimEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, apperrors.NewValidationError("email and code are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if user.IsVerified {
		return nil, apperrors.NewValidationError("account is already verified", nil)
	}
	if user.VerificationCode == nil || user.VerificationExpires == nil {
		return nil, apperrors.NewValidationError("no verification code is pending", nil)
	}
	if *user.VerificationCode != code {
		return nil, apperrors.NewValidationError("invalid verification code", nil)
	}
	if s.now().After(*user.VerificationExpires) {
		return nil, apperrors.NewValidationError("verification code has expired", nil)
	}

	user.IsVerified = true
	user.VerificationCode = nil
	user.VerificationExpires = nil
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ResendVerification issues a fresh code for an unverified account, subject
// to a per-email cooldown and rolling hourly cap.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = trimEmail(email)
	if email == "" {
		return apperrors.NewValidationError("email is required", nil)
	}

	if s.limiter != nil {
		wait, err := s.limiter.Reserve(ctx, "verify-resend:"+email)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if wait > 0 {
			seconds := int(wait / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			return apperrors.NewRateLimited("too many verification requests", seconds)
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("user", nil)
		}
		return apperrors.MapError(err)
	}
	if user.IsVerified {
		return apperrors.NewValidationError("account is already verified", nil)
	}

	code, err := auth.GenerateVerificationCode()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	expires := s.now().Add(time.Duration(s.cfg.VerificationTTLMinutes) * time.Minute)
	user.VerificationCode = &code
	user.VerificationExpires = &expires
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}

	s.sendVerificationMail(ctx, user, code)
	return nil
}

// Login authenticates a verified account. Unknown email and wrong password
// produce the same error so the two cases cannot be told apart.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = trimEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.IsVerified {
		return nil, apperrors.NewForbidden("account is not verified")
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Me returns the authenticated user's current record.
func (s *AuthService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ForgotPassword stores a reset code for the account and mails it. The
// response is identical whether or not the email exists, so the endpoint
// cannot be used to probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = trimEmail(email)
	if email == "" {
		return apperrors.NewValidationError("email is required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return apperrors.MapError(err)
	}

	code, err := auth.GenerateVerificationCode()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	expires := s.now().Add(time.Duration(s.cfg.VerificationTTLMinutes) * time.Minute)
	user.VerificationCode = &code
	user.VerificationExpires = &expires
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}

	if s.mailer != nil {
		body := fmt.Sprintf("Hi %s,\n\nYour password reset code is %s. It expires in %d minutes.\n\nIf you did not request this, you can ignore this email.",
			user.Name, code, s.cfg.VerificationTTLMinutes)
		if err := s.mailer.Send(ctx, []string{user.Email}, "Password Reset Code", body); err != nil {
			s.logger.Warn("password reset mail failed", zap.String("email", user.Email), zap.Error(err))
		}
	}
	return nil
}

// ResetPassword sets a new password when the reset code matches and has not
// expired, then clears the code pair.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = trimEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" || newPassword == "" {
		return apperrors.NewValidationError("email, code and new password are required", nil)
	}
	if len(newPassword) < 6 {
		return apperrors.NewValidationError("password must be at least 6 characters", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidationError("invalid reset code", nil)
		}
		return apperrors.MapError(err)
	}
	if user.VerificationCode == nil || user.VerificationExpires == nil || *user.VerificationCode != code {
		return apperrors.NewValidationError("invalid reset code", nil)
	}
	if s.now().After(*user.VerificationExpires) {
		return apperrors.NewValidationError("reset code has expired", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	user.VerificationCode = nil
	user.VerificationExpires = nil
	user.MustChangePassword = false
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AuthService) sendVerificationMail(ctx context.Context, user *domain.User, code string) {
	if s.mailer == nil {
		return
	}
	body := fmt.Sprintf("Hi %s,\n\nYour verification code is %s. It expires in %d minutes.",
		user.Name, code, s.cfg.VerificationTTLMinutes)
	if err := s.mailer.Send(ctx, []string{user.Email}, "Verify Your Account", body); err != nil {
		s.logger.Warn("verification mail failed", zap.String("email", user.Email), zap.Error(err))
	}
}

// trimEmail strips surrounding whitespace only. Emails are stored and
// compared case-sensitively.
func trimEmail(email string) string {
	return strings.TrimSpace(email)
}
