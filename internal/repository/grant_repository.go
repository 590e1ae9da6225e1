package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"timetrack/internal/model"
)

// GrantRepository manages user-to-client visibility grants.
type GrantRepository interface {
	// ListClientIDs returns the IDs of all clients the user is granted.
	ListClientIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// Replace swaps the user's grant set for clientIDs atomically. An empty
	// set is valid and revokes all access.
	Replace(ctx context.Context, userID uuid.UUID, clientIDs []uuid.UUID) error
}

type grantRepository struct {
	db *gorm.DB
}

// NewGrantRepository creates a new grant repository.
func NewGrantRepository(db *gorm.DB) GrantRepository {
	return &grantRepository{db: db}
}

// ListClientIDs returns the granted client IDs for a user.
func (r *grantRepository) ListClientIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.UserClient{}).
		Where("user_id = ?", userID).
		Pluck("client_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Replace deletes all existing grants for the user and inserts the supplied
// set, inside a single transaction.
func (r *grantRepository) Replace(ctx context.Context, userID uuid.UUID, clientIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.UserClient{}).Error; err != nil {
			return err
		}
		if len(clientIDs) == 0 {
			return nil
		}
		grants := make([]model.UserClient, 0, len(clientIDs))
		for _, clientID := range clientIDs {
			grants = append(grants, model.UserClient{UserID: userID, ClientID: clientID})
		}
		return tx.Create(&grants).Error
	})
}
