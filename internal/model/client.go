package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is a billable entity tasks can be associated with. Visibility for
// non-admin users is controlled by UserClient grants.
type Client struct {
	ID             uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name           string    `json:"name" gorm:"size:255;not null;index"`
	Email          string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Phone          string    `json:"phone,omitempty" gorm:"size:50"`
	Address        string    `json:"address,omitempty" gorm:"size:500"`
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:char(36);index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// UserClient grants a non-admin user visibility of a client. The pair is
// unique; there is no ordering.
type UserClient struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);primaryKey"`
	ClientID  uuid.UUID `json:"client_id" gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the join table name stable for the many2many relation.
func (UserClient) TableName() string {
	return "user_clients"
}
