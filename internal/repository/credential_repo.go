package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/agentpilot/web/internal/model"
)

type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) ListByUser(ctx context.Context, userID string) ([]*model.APICredential, error) {
	var creds []*model.APICredential
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("provider ASC").Find(&creds).Error
	return creds, err
}

func (r *CredentialRepository) GetByID(ctx context.Context, userID, id string) (*model.APICredential, error) {
	var cred model.APICredential
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&cred).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// GetByProvider at most one key per user and provider
func (r *CredentialRepository) GetByProvider(ctx context.Context, userID, provider string) (*model.APICredential, error) {
	var cred model.APICredential
	err := r.db.WithContext(ctx).Where("user_id = ? AND provider = ?", userID, provider).First(&cred).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *CredentialRepository) Create(ctx context.Context, cred *model.APICredential) error {
	return r.db.WithContext(ctx).Create(cred).Error
}

// UpdateKey swaps the sealed key and re-activates it
func (r *CredentialRepository) UpdateKey(ctx context.Context, id, encryptedKey, hint string) error {
	return r.db.WithContext(ctx).Model(&model.APICredential{}).Where("id = ?", id).Updates(map[string]interface{}{
		"encrypted_key": encryptedKey,
		"key_hint":      hint,
		"active":        true,
	}).Error
}

// SetActive returns rows affected, 0 when the key belongs to someone else
func (r *CredentialRepository) SetActive(ctx context.Context, userID, id string, active bool) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.APICredential{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("active", active)
	return result.RowsAffected, result.Error
}

func (r *CredentialRepository) Delete(ctx context.Context, userID, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.APICredential{})
	return result.RowsAffected, result.Error
}
