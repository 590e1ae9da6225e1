package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"timetrack/internal/auth"
	apperrors "timetrack/internal/errors"
	"timetrack/internal/model"
	"timetrack/internal/repository"
)

// CreateUserInput carries the fields of an admin user creation.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

// UpdateUserInput carries the fields of an admin user edit.
type UpdateUserInput struct {
	Name  string
	Email string
	Role  model.Role
}

// UserService is the admin management surface: user CRUD, role assignment,
// and client visibility grants. Every operation requires the admin role.
type UserService interface {
	ListUsers(ctx context.Context, p auth.Principal) ([]model.User, error)
	GetUser(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.User, error)
	CreateUser(ctx context.Context, p auth.Principal, in CreateUserInput) (*model.User, error)
	UpdateUser(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, p auth.Principal, id uuid.UUID) error
	ListUserClients(ctx context.Context, p auth.Principal, userID uuid.UUID) ([]model.Client, error)
	ReplaceUserClients(ctx context.Context, p auth.Principal, userID uuid.UUID, clientIDs []uuid.UUID) error
}

type userService struct {
	userRepo   repository.UserRepository
	clientRepo repository.ClientRepository
	grantRepo  repository.GrantRepository
}

// NewUserService creates a new user service.
func NewUserService(userRepo repository.UserRepository, clientRepo repository.ClientRepository, grantRepo repository.GrantRepository) UserService {
	return &userService{
		userRepo:   userRepo,
		clientRepo: clientRepo,
		grantRepo:  grantRepo,
	}
}

// ListUsers returns all users.
func (s *userService) ListUsers(ctx context.Context, p auth.Principal) ([]model.User, error) {
	if !p.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns a single user.
func (s *userService) GetUser(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return s.findUser(ctx, id)
}

// CreateUser creates a user with a hashed password and the given role.
func (s *userService) CreateUser(ctx context.Context, p auth.Principal, in CreateUserInput) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email, and password are required", apperrors.ErrValidation)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, in.Role)
	}

	existing, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
		Role:         in.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdateUser edits a user's profile and role.
func (s *userService) UpdateUser(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateUserInput) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		return nil, fmt.Errorf("%w: name and email are required", apperrors.ErrValidation)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, in.Role)
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if other, err := s.userRepo.FindByEmail(ctx, in.Email); err == nil && other != nil && other.ID != id {
		return nil, apperrors.ErrEmailTaken
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user email: %w", err)
	}

	user.Name = in.Name
	user.Email = in.Email
	user.Role = in.Role

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user together with their grants and tasks.
func (s *userService) DeleteUser(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if !p.IsAdmin() {
		return apperrors.ErrForbidden
	}
	if _, err := s.findUser(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ListUserClients returns the clients a user has been granted.
func (s *userService) ListUserClients(ctx context.Context, p auth.Principal, userID uuid.UUID) ([]model.Client, error) {
	if !p.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := s.grantRepo.ListClientIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	clients, err := s.clientRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list granted clients: %w", err)
	}
	return clients, nil
}

// ReplaceUserClients swaps a user's grant set for the supplied client IDs.
// An empty set revokes all of the user's client visibility.
func (s *userService) ReplaceUserClients(ctx context.Context, p auth.Principal, userID uuid.UUID, clientIDs []uuid.UUID) error {
	if !p.IsAdmin() {
		return apperrors.ErrForbidden
	}
	if _, err := s.findUser(ctx, userID); err != nil {
		return err
	}
	for _, clientID := range clientIDs {
		if _, err := s.clientRepo.FindByID(ctx, clientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", apperrors.ErrClientNotFound, clientID)
			}
			return fmt.Errorf("find client: %w", err)
		}
	}
	if err := s.grantRepo.Replace(ctx, userID, clientIDs); err != nil {
		return fmt.Errorf("replace grants: %w", err)
	}
	return nil
}

func (s *userService) findUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
