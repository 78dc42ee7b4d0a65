package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/ds124wfegd/event-booker/pkg/auth"
	"github.com/sirupsen/logrus"
)

type RegisterUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest holds optional changes. Only admins may change Role.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  *entity.User
	Token string
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Generate(userID, role string) (string, error)
}

type userService struct {
	userRepo database.UserRepository
	tokens   TokenIssuer
}

func NewUserService(userRepo database.UserRepository, tokens TokenIssuer) UserService {
	return &userService{userRepo: userRepo, tokens: tokens}
}

func (s *userService) Register(ctx context.Context, req *RegisterUserRequest) (*AuthResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, entity.ErrUserAlreadyExists
	} else if !errors.Is(err, entity.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         entity.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, entity.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	logrus.WithField("user_id", user.ID).Info("User registered")
	return &AuthResult{User: user, Token: token}, nil
}

func (s *userService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, entity.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, entity.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *userService) GetAllUsers(ctx context.Context, requester entity.Requester) ([]*entity.User, error) {
	if !requester.IsAdmin() {
		return nil, &entity.ForbiddenError{Message: "Admin access required."}
	}

	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

func (s *userService) GetUser(ctx context.Context, requester entity.Requester, id string) (*entity.User, error) {
	if !canManageUser(requester, id) {
		return nil, &entity.ForbiddenError{Message: "Not authorized to view this user."}
	}
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) UpdateUser(ctx context.Context, requester entity.Requester, id string, req *UpdateUserRequest) (*entity.User, error) {
	if !canManageUser(requester, id) {
		return nil, &entity.ForbiddenError{Message: "Not authorized to update this user."}
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Role != nil && !requester.IsAdmin() {
		return nil, &entity.ForbiddenError{Message: "Only admins can change roles."}
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, entity.NewValidationError("Name is required")
		}
		user.Name = name
	}
	if req.Email != nil && *req.Email != "" {
		email := normalizeEmail(*req.Email)
		if email != user.Email {
			existing, err := s.userRepo.GetByEmail(ctx, email)
			if err == nil && existing.ID != user.ID {
				return nil, entity.ErrUserAlreadyExists
			}
			if err != nil && !errors.Is(err, entity.ErrUserNotFound) {
				return nil, fmt.Errorf("failed to check user: %w", err)
			}
			user.Email = email
		}
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if req.Role != nil {
		user.Role = entity.Role(*req.Role)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, entity.ErrUserAlreadyExists) || errors.Is(err, entity.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, requester entity.Requester, id string) error {
	if !canManageUser(requester, id) {
		return &entity.ForbiddenError{Message: "Not authorized to delete this user."}
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	logrus.WithField("user_id", id).Info("User deleted")
	return nil
}

func canManageUser(requester entity.Requester, id string) bool {
	return requester.IsAdmin() || requester.ID == id
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
