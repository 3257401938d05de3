package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/agentpilot/web/internal/model"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// Create appends one ledger row; rows are never updated
func (r *TransactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// ListByUser newest first
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Transaction, int64, error) {
	var (
		rows  []*model.Transaction
		total int64
	)

	query := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	q := query.Order("created_at DESC, id DESC")
	if pageSize > 0 {
		q = q.Offset((page - 1) * pageSize).Limit(pageSize)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// Totals credits acquired (purchase + subscription) and consumed, consumed is positive
func (r *TransactionRepository) Totals(ctx context.Context, userID string) (acquired, consumed int64, err error) {
	var result struct {
		Acquired int64
		Consumed int64
	}
	err = r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select(
			"COALESCE(SUM(CASE WHEN kind IN (?, ?) THEN credits ELSE 0 END), 0) AS acquired, "+
				"COALESCE(SUM(CASE WHEN kind = ? THEN -credits ELSE 0 END), 0) AS consumed",
			model.TxPurchase, model.TxSubscription, model.TxConsumption,
		).
		Where("user_id = ?", userID).
		Scan(&result).Error
	return result.Acquired, result.Consumed, err
}

// Balance sum of every delta for the user
func (r *TransactionRepository) Balance(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select("COALESCE(SUM(credits), 0)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	return sum, err
}
