package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ticketops/helpdesk/internal/auth"
	"github.com/ticketops/helpdesk/internal/config"
	"github.com/ticketops/helpdesk/internal/domain"
	"github.com/ticketops/helpdesk/internal/repository"
	apperrors "github.com/ticketops/helpdesk/pkg/util"
)

// AuthService handles registration and login for all roles.
type AuthService struct {
	users        repository.UserRepository
	tokenManager *auth.TokenManager
	bcryptCost   int
}

// NewAuthService creates the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:        users,
		tokenManager: auth.NewTokenManager(cfg.Auth),
		bcryptCost:   cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenManager
}

// RegisterInput describes a registration payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     domain.UserRole
}

// Register creates an account. Self-registration is always a customer;
// agent and admin accounts require an admin actor.
func (s *AuthService) Register(ctx context.Context, actor *domain.User, input RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("username, email and password are required", nil)
	}
	if username == domain.SystemActorUsername {
		return nil, apperrors.NewConflict("username is reserved", map[string]any{"username": username})
	}

	role := input.Role
	if role == "" {
		role = domain.UserRoleCustomer
	}
	if role != domain.UserRoleCustomer && (actor == nil || actor.Role != domain.UserRoleAdmin) {
		return nil, apperrors.NewForbidden("admin role required to create staff accounts")
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already exists", map[string]any{"username": username})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return "", nil, apperrors.MapError(err)
	}
	if !user.Active {
		return "", nil, apperrors.NewForbidden("account disabled")
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, err := s.tokenManager.Issue(user)
	if err != nil {
		return "", nil, apperrors.NewInternalError(err)
	}
	return token, user, nil
}
