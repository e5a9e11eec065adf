package receipt

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestExtractDateBasic(t *testing.T) {
	f := ExtractFields([]string{"CUPOM FISCAL", "12/03/2024 14:02"})
	if f.Date != "2024-03-12" {
		t.Fatalf("expected 2024-03-12, got %q", f.Date)
	}
}

func TestExtractDateConfusables(t *testing.T) {
	// OCR reads 1 as l and 0 as O; the numeric-safe fold must recover them.
	f := ExtractFields([]string{"l2/03/2O24"})
	if f.Date != "2024-03-12" {
		t.Fatalf("expected 2024-03-12 from folded line, got %q", f.Date)
	}
}

func TestExtractDateRejectsOutOfRange(t *testing.T) {
	f := ExtractFields([]string{"45/13/2024", "99/01/1999", "01/02/21"})
	if f.Date != "2021-02-01" {
		t.Fatalf("expected scanning to continue to 01/02/21, got %q", f.Date)
	}
}

func TestExtractAmountTotalBeatsNoise(t *testing.T) {
	f := ExtractFields([]string{
		"MERCADO BOM PRECO",
		"CNPJ 12.345.678/0001-99",
		"COCA COLA 2L 9,99",
		"TOTAL R$ 45,90",
	})
	if f.Amount != "45.90" {
		t.Fatalf("expected 45.90, got %q", f.Amount)
	}
}

func TestExtractAmountFallsBackToLargest(t *testing.T) {
	f := ExtractFields([]string{"ARROZ 23,50", "FEIJAO 8,20"})
	if f.Amount != "23.50" {
		t.Fatalf("expected largest value 23.50, got %q", f.Amount)
	}
}

func TestExtractAmountIgnoresZeroAndImplausible(t *testing.T) {
	f := ExtractFields([]string{"TROCO 0,00", "AUTENTICACAO 99.999,99"})
	if f.Amount != "" {
		t.Fatalf("expected no amount, got %q", f.Amount)
	}
}

func TestExtractAmountRejectsThreeDecimalTail(t *testing.T) {
	// 12.345 is a thousands group or an id fragment; the regex must not
	// surface its truncated 12.34 prefix as a candidate.
	f := ExtractFields([]string{"TOTAL 12.345"})
	if f.Amount != "" {
		t.Fatalf("expected no amount from 12.345, got %q", f.Amount)
	}
	if len(f.Candidates) != 0 {
		t.Fatalf("expected no candidates, got %+v", f.Candidates)
	}
	f = ExtractFields([]string{"TOTAL 12.34"})
	if f.Amount != "12.34" {
		t.Fatalf("two-decimal numeral must still parse, got %q", f.Amount)
	}
}

func TestNormalizeNumeralSeparators(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"45,90", "45.90"},
		{"45.90", "45.90"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
	}
	for _, c := range cases {
		got, ok := normalizeNumeral(c.in)
		if !ok {
			t.Fatalf("%q: not parsed", c.in)
		}
		want, _ := decimal.NewFromString(c.want)
		if !got.Equal(want) {
			t.Fatalf("%q: expected %s, got %s", c.in, c.want, got)
		}
	}
}

func TestExtractDescriptionSkipsNoise(t *testing.T) {
	f := ExtractFields([]string{
		"ab",                    // too short
		"12/03/2024",            // date line
		"123456789012",          // digit dominated
		"CNPJ 11.222.333/0001-44",
		"Restaurante Bom Sabor Comercio de Alimentos",
	})
	if f.Description != "Restaurante Bom Sabor Comercio" {
		t.Fatalf("unexpected description %q", f.Description)
	}
	if len([]rune(f.Description)) > descriptionLimit {
		t.Fatalf("description not truncated: %q", f.Description)
	}
}

func TestExtractCategoryAndPaymentFirstMatchWins(t *testing.T) {
	f := ExtractFields([]string{
		"FARMACIA SAO JOAO",
		"SUPERMERCADO CENTRAL", // later category keyword must not override
		"PAGAMENTO: CARTAO DEBITO",
		"PIX RECEBIDO", // later payment keyword must not override
	})
	if f.Category != "saude" {
		t.Fatalf("expected saude, got %q", f.Category)
	}
	if f.PaymentMethod != "cartao" {
		t.Fatalf("expected cartao, got %q", f.PaymentMethod)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	f := ExtractFields(nil)
	if f.Amount != "" || f.Date != "" || f.Description != "" || f.Category != "" || f.PaymentMethod != "" {
		t.Fatalf("expected all fields empty, got %+v", f)
	}
}
