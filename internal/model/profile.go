package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PlanFree       = "free"
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusPending   = "pending"
)

// Profile one row per authenticated user
type Profile struct {
	ID                string          `gorm:"primaryKey;size:36" json:"id"`
	Email             string          `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Credits           int             `gorm:"not null;default:0" json:"credits"`
	Plan              string          `gorm:"size:20;not null;default:free" json:"plan"`
	Status            string          `gorm:"size:20;not null;default:active" json:"status"`
	LinkCode          *string         `gorm:"size:16;index" json:"-"`
	LinkCodeExpiresAt *time.Time      `json:"-"`
	StripeCustomerID  *string         `gorm:"size:255;index" json:"-"`
	TelegramUserID    *int64          `gorm:"uniqueIndex" json:"telegram_user_id,omitempty"`
	TrainingProfile   TrainingProfile `gorm:"type:text" json:"training_profile"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Profile) TableName() string {
	return "user_profiles"
}

// BeforeCreate assigns the UUID and normalises the email
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Email = NormalizeEmail(p.Email)
	return nil
}

// IsLinked reports whether a bot account is bound to the profile.
func (p *Profile) IsLinked() bool {
	return p.TelegramUserID != nil
}

// IsPaid free plan users cannot bring their own keys
func (p *Profile) IsPaid() bool {
	return p.Plan != PlanFree && p.Plan != ""
}

// NormalizeEmail emails are compared case-insensitively
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TrainingProfile the user's writing persona used by the content agents
type TrainingProfile struct {
	Description     string   `json:"descripcion_personal,omitempty"`
	PreferredTone   string   `json:"tono_preferido,omitempty"`
	Values          []string `json:"valores,omitempty"`
	MainTopics      []string `json:"temas_principales,omitempty"`
	FixedHashtags   []string `json:"hashtags_fijos,omitempty"`
	WritingStyle    string   `json:"estilo_escritura,omitempty"`
	TargetAudience  string   `json:"audiencia_objetivo,omitempty"`
	PrimaryLanguage string   `json:"idioma_principal,omitempty"`
	StyleExamples   []string `json:"ejemplos_estilo,omitempty"`
}

var WritingStyles = []string{"casual", "formal", "agresivo", "neutral"}

func (t TrainingProfile) Value() (driver.Value, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *TrainingProfile) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*t = TrainingProfile{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("training profile: unsupported column type")
	}
	if len(data) == 0 {
		*t = TrainingProfile{}
		return nil
	}
	return json.Unmarshal(data, t)
}
