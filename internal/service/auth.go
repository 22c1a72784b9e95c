package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/google/uuid"
)

// MinPasswordLength is the shortest password Signup accepts.
const MinPasswordLength = 8

// AuthService manages accounts and access tokens.
type AuthService struct {
	users  repository.UserStore
	tokens *auth.TokenIssuer
	now    func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(users repository.UserStore, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens, now: time.Now}
}

// Signup creates an account and returns it with a fresh token.
// An empty role defaults to student.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Role == "" {
		req.Role = model.RoleStudent
	}

	switch {
	case req.Name == "":
		return nil, invalidf("name is required")
	case req.Email == "":
		return nil, invalidf("email is required")
	case !isValidEmail(req.Email):
		return nil, invalidf("email is not a valid email address")
	case len(req.Password) < MinPasswordLength:
		return nil, invalidf("password must be at least %d characters", MinPasswordLength)
	case !req.Role.Valid():
		return nil, invalidf("role must be %q or %q", model.RoleStudent, model.RoleFaculty)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Department:   strings.TrimSpace(req.Department),
		RollNumber:   strings.TrimSpace(req.RollNumber),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.respond(user)
}

// Login verifies credentials. When req.Role is set the account must hold
// that role.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return nil, invalidf("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("check password: %w", err)
	}
	if req.Role != "" && req.Role != user.Role {
		return nil, ErrInvalidCredentials
	}
	return s.respond(user)
}

// Authenticate resolves a bearer token to the identity of a live account.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return auth.Identity{}, ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return auth.Identity{}, ErrUnauthorized
		}
		return auth.Identity{}, fmt.Errorf("resolve user: %w", err)
	}
	if user.Role != claims.Role {
		return auth.Identity{}, ErrUnauthorized
	}
	return auth.Identity{UserID: user.ID, Role: user.Role, Name: user.Name}, nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, caller auth.Identity) (*model.User, error) {
	user, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *AuthService) respond(user *model.User) (*model.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	domain := parts[1]
	return len(parts[0]) > 0 && strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
