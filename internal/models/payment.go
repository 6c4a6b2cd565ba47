package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is the ledger row for a succeeded consultation payment. The unique
// index on StripePaymentIntentID is the idempotency anchor for webhook
// redelivery: a second insert for the same intent fails with a duplicate-key
// error instead of producing a second financial record.
type Payment struct {
	ID                    string          `gorm:"type:char(36);primaryKey" json:"id"`
	UserID                uint            `gorm:"not null;index" json:"user_id"`
	StripePaymentIntentID string          `gorm:"size:255;uniqueIndex;not null" json:"stripe_payment_intent_id"`
	Amount                decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency              string          `gorm:"size:3;default:'usd'" json:"currency"`
	Status                string          `gorm:"size:20;not null;index" json:"status"` // pending | completed | refunded | failed
	ConsultationSummary   string          `gorm:"type:text" json:"consultation_summary"`
	Category              string          `gorm:"size:128" json:"category"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	DeletedAt             gorm.DeletedAt  `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}
