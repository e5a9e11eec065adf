package models

import (
	"time"
)

// Upload records a stored receipt image and the extraction outcome for it.
// TransactionID stays nil until the user confirms the prefilled record.
type Upload struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	FileName      string `gorm:"size:255;not null"`
	StorePath     string `gorm:"column:store_path;size:512"`
	UserID        uint   `gorm:"index;not null"`
	ContentType   string `gorm:"size:128"`
	TransactionID *uint  `gorm:"index"`
	// Extraction results as returned to the client, kept for review.
	Amount      string `gorm:"size:32"`
	Date        string `gorm:"size:10"`
	Description string `gorm:"size:64"`
	QRDetected  bool   `gorm:"default:false"`
	// Mark upload as failed for OCR processing (do not delete record so front-end/admin can review)
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
