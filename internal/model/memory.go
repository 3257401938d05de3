package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MemoryPreference = "preference"
	MemoryCorrection = "correction"
	MemoryFeedback   = "feedback"
)

type MemoryNote struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id"`
	Kind      string    `gorm:"size:20;not null" json:"kind"`
	Key       string    `gorm:"size:100;not null" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

func (MemoryNote) TableName() string {
	return "user_memory"
}

func (m *MemoryNote) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
