package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/agentpilot/web/internal/model"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

func (r *ProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByEmail matches the normalised address
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("email = ?", model.NormalizeEmail(email)).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByLinkCode ignores expiry, the caller decides
func (r *ProfileRepository) GetByLinkCode(ctx context.Context, code string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("link_code = ?", code).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("telegram_user_id = ?", telegramID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateTrainingProfile replaces the whole JSON document
func (r *ProfileRepository) UpdateTrainingProfile(ctx context.Context, id string, tp model.TrainingProfile) error {
	return r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).
		Update("training_profile", tp).Error
}

// SetLinkCode overwrites any pending code
func (r *ProfileRepository) SetLinkCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).Updates(map[string]interface{}{
		"link_code":            code,
		"link_code_expires_at": expiresAt,
	}).Error
}

// LinkTelegram binds the bot account and consumes the pending code
func (r *ProfileRepository) LinkTelegram(ctx context.Context, id string, telegramID int64) error {
	return r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).Updates(map[string]interface{}{
		"telegram_user_id":     telegramID,
		"link_code":            nil,
		"link_code_expires_at": nil,
	}).Error
}

// AddCredits applies a signed delta in a single statement
func (r *ProfileRepository) AddCredits(ctx context.Context, id string, delta int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).
		Update("credits", gorm.Expr("credits + ?", delta))
	return result.RowsAffected, result.Error
}

// DeductCredits only succeeds while the balance covers the cost
func (r *ProfileRepository) DeductCredits(ctx context.Context, id string, cost int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ? AND credits >= ?", id, cost).
		Update("credits", gorm.Expr("credits - ?", cost))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ClearExpiredLinkCodes drops codes that can no longer be redeemed
func (r *ProfileRepository) ClearExpiredLinkCodes(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("link_code IS NOT NULL AND link_code_expires_at < ?", now).
		Updates(map[string]interface{}{
			"link_code":            nil,
			"link_code_expires_at": nil,
		})
	return result.RowsAffected, result.Error
}

// CountExpiredLinkCodes what ClearExpiredLinkCodes would clear
func (r *ProfileRepository) CountExpiredLinkCodes(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("link_code IS NOT NULL AND link_code_expires_at < ?", now).Count(&count).Error
	return count, err
}
