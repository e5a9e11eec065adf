package receipt

import (
	"regexp"
	"strings"
)

// The pattern and keyword tables below are immutable configuration compiled
// once at process start. Keywords are Brazilian-Portuguese merchant and
// document terms, matched against lowercased line text.

var (
	// DD/MM/YYYY (or DD-MM-YY, DD.MM.YYYY ...) anywhere in a line.
	dateRE = regexp.MustCompile(`(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2,4})`)

	// Currency-shaped numerals: an optional R$ marker (tolerating common OCR
	// confusions of the symbol) followed by a grouped or plain number with a
	// two-digit fraction in either separator convention.
	amountRE = regexp.MustCompile(`(?i)(?:r[$s5]\s*[:.]?\s*)?(\d{1,3}(?:[.,]\d{3})+[.,]\d{2}|\d+[.,]\d{2})`)

	// Exact two-decimal field inside a fiscal QR payload.
	qrAmountRE = regexp.MustCompile(`^\d+\.\d{2}$`)
)

// confusableFold maps characters Tesseract commonly misreads in numeric
// context back to digits. Applied only to the working copy used for date and
// amount extraction, never to description text.
var confusableFold = strings.NewReplacer(
	"O", "0", "o", "0",
	"I", "1", "i", "1", "l", "1", "L", "1",
	"S", "5", "s", "5",
	"Z", "2", "z", "2",
)

// totalKeywords boost an amount candidate's score: the line naming the
// amount due nearly always wins over item lines.
var totalKeywords = []string{"total", "pagar", "valor"}

// Categories are mutually exclusive per extraction; the first line hitting
// any keyword decides.
var categoryKeywords = []struct {
	Category string
	Keywords []string
}{
	{"alimentacao", []string{"supermercado", "mercado", "padaria", "restaurante", "lanchonete", "pizzaria", "acougue", "hortifruti", "ifood"}},
	{"transporte", []string{"posto", "combustivel", "gasolina", "etanol", "uber", "99app", "estacionamento", "pedagio"}},
	{"saude", []string{"farmacia", "drogaria", "clinica", "laboratorio", "hospital"}},
	{"moradia", []string{"energia", "luz", "agua", "condominio", "aluguel", "internet", "telefone", "vivo", "claro", "tim "}},
	{"lazer", []string{"cinema", "teatro", "show", "netflix", "spotify", "streaming", "bar "}},
}

var paymentKeywords = []struct {
	Method   string
	Keywords []string
}{
	{"pix", []string{"pix"}},
	{"cartao", []string{"cartao", "credito", "debito", "visa", "mastercard", "elo"}},
	{"dinheiro", []string{"dinheiro"}},
	{"boleto", []string{"boleto"}},
}

// descriptionRejects lists document boilerplate that must never become the
// transaction description: tax-id labels, coupon/statement headers and
// item-list headers.
var descriptionRejects = []string{
	"cnpj", "cpf", "cupom", "fiscal", "extrato", "nfc-e", "nfce", "sat",
	"documento", "consumidor", "item", "codigo", "qtd",
}
