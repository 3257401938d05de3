package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TxPurchase     = "purchase"
	TxConsumption  = "consumption"
	TxBonus        = "bonus"
	TxRefund       = "refund"
	TxSubscription = "subscription"
)

// Transaction immutable ledger row, Credits is a signed delta
type Transaction struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          string    `gorm:"size:36;not null;index" json:"user_id"`
	Kind            string    `gorm:"size:20;not null" json:"kind"`
	Credits         int       `gorm:"not null" json:"credits"`
	Description     string    `gorm:"size:255;not null" json:"description"`
	StripePaymentID *string   `gorm:"size:255;index" json:"stripe_payment_id,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
