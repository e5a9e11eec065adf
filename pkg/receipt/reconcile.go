package receipt

import "time"

// Placeholder descriptions used when no line qualified.
const (
	PlaceholderExpense = "Despesa detectada"
	PlaceholderQR      = "Compra via QR Code"
)

// ExtractionRecord is the pipeline's final output. Date is always set;
// the other string fields use "" to signal "not detected". QRDetected
// reports whether a QR payload was read, regardless of what it carried.
type ExtractionRecord struct {
	Amount        string `json:"amount"`
	Date          string `json:"date"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	PaymentMethod string `json:"payment_method"`
	QRDetected    bool   `json:"qr_detected"`
}

// reconcile folds the QR findings into the OCR fields. A QR-carried total is
// structured data and overrides the heuristic OCR pick unconditionally.
func reconcile(f Fields, qr *QRResult, now time.Time) ExtractionRecord {
	rec := ExtractionRecord{
		Amount:        f.Amount,
		Date:          f.Date,
		Description:   f.Description,
		Category:      f.Category,
		PaymentMethod: f.PaymentMethod,
		QRDetected:    qr != nil,
	}
	if qr != nil && qr.Amount != "" {
		rec.Amount = qr.Amount
	}
	if rec.Date == "" {
		rec.Date = now.Format("2006-01-02")
	}
	if rec.Description == "" {
		if qr != nil {
			rec.Description = PlaceholderQR
		} else {
			rec.Description = PlaceholderExpense
		}
	}
	return rec
}
