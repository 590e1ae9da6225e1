package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"timetrack/internal/model"
)

// ClientRepository defines client persistence operations.
type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	Update(ctx context.Context, client *model.Client) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	FindByEmail(ctx context.Context, email string) (*model.Client, error)
	List(ctx context.Context) ([]model.Client, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository.
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

// Create creates a new client.
func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

// Update saves all fields of an existing client.
func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

// FindByID finds a client by ID.
func (r *clientRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// FindByEmail finds a client by its unique email.
func (r *clientRepository) FindByEmail(ctx context.Context, email string) (*model.Client, error) {
	var client model.Client
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// List returns all clients ordered by name.
func (r *clientRepository) List(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// ListByIDs returns the clients whose IDs are in ids, ordered by name.
func (r *clientRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Client, error) {
	if len(ids) == 0 {
		return []model.Client{}, nil
	}
	var clients []model.Client
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// Delete removes a client, its visibility grants, and clears task references
// in one transaction.
func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id).Delete(&model.UserClient{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Task{}).Where("client_id = ?", id).
			Update("client_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Client{}).Error
	})
}
