package receipt

import (
	"testing"
	"time"
)

var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func TestReconcileQRAmountOverridesOCR(t *testing.T) {
	f := Fields{Amount: "99.99", Description: "Mercado Central", Date: "2024-03-12"}
	qr := &QRResult{Payload: "x|45.90|y", Amount: "45.90"}
	rec := reconcile(f, qr, testNow)
	if rec.Amount != "45.90" {
		t.Fatalf("QR amount must override OCR amount, got %q", rec.Amount)
	}
	if rec.Description != "Mercado Central" {
		t.Fatalf("OCR description must survive, got %q", rec.Description)
	}
	if !rec.QRDetected {
		t.Fatal("QRDetected must be set whenever a payload was read")
	}
}

func TestReconcileQRPlaceholderDescription(t *testing.T) {
	rec := reconcile(Fields{}, &QRResult{Payload: "x|45.90|y", Amount: "45.90"}, testNow)
	if rec.Amount != "45.90" {
		t.Fatalf("expected 45.90, got %q", rec.Amount)
	}
	if rec.Description != PlaceholderQR {
		t.Fatalf("expected QR placeholder, got %q", rec.Description)
	}
}

func TestReconcileDefaults(t *testing.T) {
	rec := reconcile(Fields{}, nil, testNow)
	if rec.Date != "2024-06-15" {
		t.Fatalf("expected processing-day default, got %q", rec.Date)
	}
	if rec.Description != PlaceholderExpense {
		t.Fatalf("expected generic placeholder, got %q", rec.Description)
	}
	if rec.Amount != "" || rec.Category != "" || rec.PaymentMethod != "" {
		t.Fatalf("undetected fields must be empty strings: %+v", rec)
	}
	if rec.QRDetected {
		t.Fatal("QRDetected must be false without a payload")
	}
}

func TestReconcileKeepsFoundDate(t *testing.T) {
	rec := reconcile(Fields{Date: "2024-03-12"}, nil, testNow)
	if rec.Date != "2024-03-12" {
		t.Fatalf("expected extracted date, got %q", rec.Date)
	}
}
