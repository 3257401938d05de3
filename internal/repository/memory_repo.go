package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/agentpilot/web/internal/model"
)

type MemoryRepository struct {
	db *gorm.DB
}

func NewMemoryRepository(db *gorm.DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// ListByUser newest first, capped at limit
func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.MemoryNote, error) {
	var notes []*model.MemoryNote
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&notes).Error
	return notes, err
}

func (r *MemoryRepository) Create(ctx context.Context, note *model.MemoryNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *MemoryRepository) Delete(ctx context.Context, userID, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.MemoryNote{})
	return result.RowsAffected, result.Error
}
