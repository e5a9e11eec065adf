package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single income or expense record belonging to a user.
// Amount is always positive; Type distinguishes income from expense.
// Installments of a recurring charge share a RecurrenceID; Completed marks a
// whole series as settled.
type Transaction struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time      `gorm:"index"`
	UserID        uint            `gorm:"index;not null"`
	Description   string          `gorm:"size:255;not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Type          string          `gorm:"size:16;not null;index"` // income | expense
	Category      string          `gorm:"size:32;index"`
	PaymentMethod string          `gorm:"size:32"`
	Date          time.Time       `gorm:"not null;index"`
	IsRecurring   bool            `gorm:"default:false"`
	RecurrenceID  string          `gorm:"size:64;index"`
	Completed     bool            `gorm:"default:false"`
}
