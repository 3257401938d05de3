package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/agentpilot/web/internal/model"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) WithTx(tx *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: tx}
}

// Exists reports whether the event id was already applied
func (r *WebhookEventRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *WebhookEventRepository) Create(ctx context.Context, event *model.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// PruneBefore deletes records older than the cutoff
func (r *WebhookEventRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("processed_at < ?", cutoff).Delete(&model.WebhookEvent{})
	return result.RowsAffected, result.Error
}

// CountBefore what PruneBefore would delete
func (r *WebhookEventRepository) CountBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).Where("processed_at < ?", cutoff).Count(&count).Error
	return count, err
}
