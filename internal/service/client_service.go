package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"timetrack/internal/auth"
	"timetrack/internal/cache"
	apperrors "timetrack/internal/errors"
	"timetrack/internal/model"
	"timetrack/internal/repository"
)

const (
	clientListCacheKey = "clients:all"
	clientListCacheTTL = 5 * time.Minute
)

// ClientInput carries the fields of a client create or update.
type ClientInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// ClientService handles the client directory. Listing is visible to every
// authenticated user (scoped by grants); mutations are admin only.
type ClientService interface {
	ListClients(ctx context.Context, p auth.Principal) ([]model.Client, error)
	GetClient(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Client, error)
	CreateClient(ctx context.Context, p auth.Principal, in ClientInput) (*model.Client, error)
	UpdateClient(ctx context.Context, p auth.Principal, id uuid.UUID, in ClientInput) (*model.Client, error)
	DeleteClient(ctx context.Context, p auth.Principal, id uuid.UUID) error
}

type clientService struct {
	clientRepo repository.ClientRepository
	grantRepo  repository.GrantRepository
	cache      *cache.Client
}

// NewClientService creates a new client service.
func NewClientService(clientRepo repository.ClientRepository, grantRepo repository.GrantRepository, cache *cache.Client) ClientService {
	return &clientService{
		clientRepo: clientRepo,
		grantRepo:  grantRepo,
		cache:      cache,
	}
}

// ListClients returns all clients for admins, and only granted clients for
// everyone else. The full list is cached; per-user lists are derived from
// the grant set on every call.
func (s *clientService) ListClients(ctx context.Context, p auth.Principal) ([]model.Client, error) {
	if p.IsAdmin() {
		if data, _ := s.cache.Get(ctx, clientListCacheKey); data != nil {
			var cached []model.Client
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}

		clients, err := s.clientRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list clients: %w", err)
		}

		if payload, err := json.Marshal(clients); err == nil {
			_ = s.cache.Set(ctx, clientListCacheKey, payload, clientListCacheTTL)
		}
		return clients, nil
	}

	grantedIDs, err := s.grantRepo.ListClientIDs(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	clients, err := s.clientRepo.ListByIDs(ctx, grantedIDs)
	if err != nil {
		return nil, fmt.Errorf("list granted clients: %w", err)
	}
	return clients, nil
}

// GetClient returns a single client. Admin only.
func (s *clientService) GetClient(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Client, error) {
	if !p.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	return client, nil
}

// CreateClient creates a client. Fails with a conflict when the email is
// already in use.
func (s *clientService) CreateClient(ctx context.Context, p auth.Principal, in ClientInput) (*model.Client, error) {
	if !p.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if err := validateClientInput(in); err != nil {
		return nil, err
	}

	existing, err := s.clientRepo.FindByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check client existence: %w", err)
	}

	client := &model.Client{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Address: in.Address,
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	_ = s.cache.Delete(ctx, clientListCacheKey)
	return client, nil
}

// UpdateClient edits a client. The email stays unique across clients.
func (s *clientService) UpdateClient(ctx context.Context, p auth.Principal, id uuid.UUID, in ClientInput) (*model.Client, error) {
	if !p.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if err := validateClientInput(in); err != nil {
		return nil, err
	}

	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}

	if other, err := s.clientRepo.FindByEmail(ctx, in.Email); err == nil && other != nil && other.ID != id {
		return nil, apperrors.ErrEmailTaken
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check client email: %w", err)
	}

	client.Name = in.Name
	client.Email = in.Email
	client.Phone = in.Phone
	client.Address = in.Address

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}

	_ = s.cache.Delete(ctx, clientListCacheKey)
	return client, nil
}

// DeleteClient removes a client along with its grants and task references.
func (s *clientService) DeleteClient(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if !p.IsAdmin() {
		return apperrors.ErrForbidden
	}
	if _, err := s.clientRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrClientNotFound
		}
		return fmt.Errorf("find client: %w", err)
	}
	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	_ = s.cache.Delete(ctx, clientListCacheKey)
	return nil
}

func validateClientInput(in ClientInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		return fmt.Errorf("%w: name and email are required", apperrors.ErrValidation)
	}
	return nil
}
