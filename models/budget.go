package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a per-category monthly spending limit. Month is stored as
// "YYYY-MM"; one row per (user, category, month).
type Budget struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint            `gorm:"index;not null;uniqueIndex:idx_budget_user_cat_month"`
	Category  string          `gorm:"size:32;not null;uniqueIndex:idx_budget_user_cat_month"`
	Month     string          `gorm:"size:7;not null;uniqueIndex:idx_budget_user_cat_month"`
	Limit     decimal.Decimal `gorm:"column:limit_amount;type:numeric(12,2);not null"`
}
