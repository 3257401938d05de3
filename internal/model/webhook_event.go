package model

import (
	"time"
)

// WebhookEvent payment provider event already applied; the id is the provider's event id
type WebhookEvent struct {
	ID          string    `gorm:"primaryKey;size:255" json:"id"`
	Type        string    `gorm:"size:100;not null" json:"type"`
	ProcessedAt time.Time `gorm:"not null;index" json:"processed_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
