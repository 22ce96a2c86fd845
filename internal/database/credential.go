package database

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Credential is a single client-local secret stored under a fixed name.
type Credential struct {
	gorm.Model
	Name  string `gorm:"uniqueIndex;not null"`
	Value string `gorm:"not null"`
}

// GetCredential returns the credential stored under name.
// It returns gorm.ErrRecordNotFound if nothing is stored.
func (c *Client) GetCredential(ctx context.Context, name string) (*Credential, error) {
	var cred Credential
	if err := c.db.WithContext(ctx).Where("name = ?", name).First(&cred).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get credential", "name", name, "error", err)
		}
		return nil, err
	}
	return &cred, nil
}

// SetCredential creates or replaces the credential stored under name.
func (c *Client) SetCredential(ctx context.Context, name, value string) error {
	cred, err := c.GetCredential(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cred = &Credential{Name: name, Value: value}
		if err := c.db.WithContext(ctx).Create(cred).Error; err != nil {
			log.Error("failed to create credential", "name", name, "error", err)
			return err
		}
		return nil
	} else if err != nil {
		return err
	}

	if err := c.db.WithContext(ctx).Model(cred).Update("value", value).Error; err != nil {
		log.Error("failed to update credential", "name", name, "error", err)
		return err
	}
	return nil
}

// DeleteCredential removes the credential stored under name.
// Deleting a missing credential is not an error.
func (c *Client) DeleteCredential(ctx context.Context, name string) error {
	if err := c.db.WithContext(ctx).Unscoped().Where("name = ?", name).Delete(&Credential{}).Error; err != nil {
		log.Error("failed to delete credential", "name", name, "error", err)
		return err
	}
	return nil
}
