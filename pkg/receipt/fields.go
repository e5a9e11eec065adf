package receipt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	descriptionLimit = 30
	// Values at or above this are ids/barcodes, not receipt totals.
	maxPlausibleAmount = 50000

	scoreTotalLine = 100
	scoreOtherLine = 10
)

// AmountCandidate is one parseable monetary value found on a line.
type AmountCandidate struct {
	Value      decimal.Decimal
	Score      int
	SourceLine string
}

// Fields is the extractor's best-effort view of one receipt. Every field may
// be empty; emptiness means "not detected", never an error.
type Fields struct {
	Amount        string
	Date          string
	Description   string
	Category      string
	PaymentMethod string
	Candidates    []AmountCandidate
}

// ExtractFields folds over the OCR lines top to bottom. Date, category,
// payment method and description are first-match-wins; amounts collect every
// candidate and the winner is ranked afterwards (see bestAmount).
func ExtractFields(lines []string) Fields {
	var f Fields
	for _, line := range lines {
		original := strings.TrimSpace(line)
		if original == "" {
			continue
		}
		folded := confusableFold.Replace(original)
		low := strings.ToLower(original)

		if f.Date == "" {
			if d, ok := parseDate(folded); ok {
				f.Date = d
			}
		}
		if f.Category == "" {
			f.Category = matchCategory(low)
		}
		if f.PaymentMethod == "" {
			f.PaymentMethod = matchPayment(low)
		}
		if f.Description == "" && isDescription(original, folded, low) {
			f.Description = truncateRunes(original, descriptionLimit)
		}
		f.Candidates = append(f.Candidates, amountCandidates(folded, low, original)...)
	}
	if best, ok := bestAmount(f.Candidates); ok {
		f.Amount = best.Value.StringFixed(2)
	}
	return f
}

// parseDate matches DD[sep]MM[sep]YY(YY) on the digit-folded line and
// returns the first in-range hit as YYYY-MM-DD. Out-of-range triples are
// rejected and scanning continues.
func parseDate(folded string) (string, bool) {
	for _, m := range dateRE.FindAllStringSubmatch(folded, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		ys := m[3]
		if len(ys) == 2 {
			ys = "20" + ys
		}
		year, _ := strconv.Atoi(ys)
		if day < 1 || day > 31 || month < 1 || month > 12 || year < 2000 || year > 2100 {
			continue
		}
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
	}
	return "", false
}

func matchCategory(low string) string {
	for _, c := range categoryKeywords {
		for _, kw := range c.Keywords {
			if strings.Contains(low, kw) {
				return c.Category
			}
		}
	}
	return ""
}

func matchPayment(low string) string {
	for _, p := range paymentKeywords {
		for _, kw := range p.Keywords {
			if strings.Contains(low, kw) {
				return p.Method
			}
		}
	}
	return ""
}

// isDescription accepts the first line that reads like a merchant or item
// name: long enough, not a date, not dominated by digits, and free of
// document boilerplate.
func isDescription(original, folded, low string) bool {
	if len([]rune(original)) < 4 {
		return false
	}
	if dateRE.MatchString(folded) {
		return false
	}
	if digitRatio(folded) >= 0.5 {
		return false
	}
	for _, kw := range descriptionRejects {
		if strings.Contains(low, kw) {
			return false
		}
	}
	return true
}

// digitRatio is computed on the folded copy so confusables count as digits.
func digitRatio(s string) float64 {
	total, digits := 0, 0
	for _, r := range s {
		if r == ' ' || r == '\t' {
			continue
		}
		total++
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}

// amountCandidates parses every currency-shaped numeral on the line. Lines
// carrying a total/pagar/valor keyword get the high score tier; the raw
// value never outranks the tier.
func amountCandidates(folded, low, original string) []AmountCandidate {
	score := scoreOtherLine
	for _, kw := range totalKeywords {
		if strings.Contains(low, kw) {
			score = scoreTotalLine
			break
		}
	}
	var out []AmountCandidate
	for _, m := range amountRE.FindAllStringSubmatchIndex(folded, -1) {
		// A digit right after the match means the numeral has a longer
		// fraction (12.345 would otherwise parse as 12.34): not a price.
		if end := m[3]; end < len(folded) && folded[end] >= '0' && folded[end] <= '9' {
			continue
		}
		val, ok := normalizeNumeral(folded[m[2]:m[3]])
		if !ok {
			continue
		}
		if !val.IsPositive() || val.GreaterThanOrEqual(decimal.NewFromInt(maxPlausibleAmount)) {
			continue
		}
		out = append(out, AmountCandidate{Value: val, Score: score, SourceLine: original})
	}
	return out
}

// normalizeNumeral converts a matched numeral to a dot-decimal value. With
// both separators present the rightmost one is the decimal point, which
// handles 1.234,56 and 1,234.56 alike.
func normalizeNumeral(s string) (decimal.Decimal, bool) {
	sep := strings.LastIndexAny(s, ".,")
	if sep < 0 || len(s)-sep-1 != 2 {
		return decimal.Zero, false
	}
	intPart := onlyDigits(s[:sep])
	if intPart == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(intPart + "." + s[sep+1:])
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// onlyDigits extracts decimal digits from a string.
func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
