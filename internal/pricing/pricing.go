package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is rendered when the unit price is unknown
const Placeholder = "—"

// DefaultLocale is used when no locale or an unparsable one is configured
const DefaultLocale = "fr-FR"

const nbsp = "\u00a0"

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrNegativePrice   = errors.New("unit price cannot be negative")
	ErrAmountOverflow  = errors.New("amount out of range")
)

// Money is an amount in the currency's minor units with its display form
type Money struct {
	Amount   int64  `json:"amount"`
	Scale    int    `json:"scale"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
	Known    bool   `json:"known"`
}

// Calculator computes and formats totals for one locale. Safe for concurrent use.
type Calculator struct {
	printer *message.Printer
	suffix  bool
}

// NewCalculator creates a calculator for a BCP 47 locale such as "fr-FR"
func NewCalculator(locale string) *Calculator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	base, _ := tag.Base()
	return &Calculator{
		printer: message.NewPrinter(tag),
		suffix:  suffixLanguages[base.String()],
	}
}

// ComputeTotal returns quantity × unitPrice in currencyCode. A nil unitPrice yields
// the placeholder instead of an error since catalog data may be incomplete.
func (c *Calculator) ComputeTotal(unitPrice *float64, quantity int, currencyCode string) (Money, error) {
	code := strings.ToUpper(currencyCode)
	if unitPrice == nil {
		return Money{Currency: code, Display: Placeholder}, nil
	}
	if quantity < 1 {
		return Money{Currency: code, Display: Placeholder}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	if *unitPrice < 0 || math.IsNaN(*unitPrice) {
		return Money{Currency: code, Display: Placeholder}, ErrNegativePrice
	}

	scale := scaleOf(code)
	unit, ok := toMinor(*unitPrice, scale)
	if !ok || unit > math.MaxInt64/int64(quantity) {
		return Money{Currency: code, Display: Placeholder}, ErrAmountOverflow
	}
	m := Money{
		Amount:   unit * int64(quantity),
		Scale:    scale,
		Currency: code,
		Known:    true,
	}
	m.Display = c.format(m.Amount, scale, code)
	return m, nil
}

// FormatAmount formats a server-reported amount in major units
func (c *Calculator) FormatAmount(amount float64, currencyCode string) string {
	code := strings.ToUpper(currencyCode)
	scale := scaleOf(code)
	minor, ok := toMinor(amount, scale)
	if !ok {
		return Placeholder
	}
	return c.format(minor, scale, code)
}

// toMinor converts a major-unit amount to minor units; ok is false when the
// result does not fit an int64.
func toMinor(amount float64, scale int) (int64, bool) {
	scaled := math.Round(amount * math.Pow10(scale))
	if math.IsNaN(scaled) || math.IsInf(scaled, 0) || math.Abs(scaled) >= math.MaxInt64 {
		return 0, false
	}
	return int64(scaled), true
}

func (c *Calculator) format(minor int64, scale int, code string) string {
	digits := c.printer.Sprint(number.Decimal(float64(minor)/math.Pow10(scale), number.Scale(scale)))
	symbol := symbolOf(code)
	if c.suffix {
		return digits + nbsp + symbol
	}
	if symbol == code {
		return symbol + nbsp + digits
	}
	return symbol + digits
}

func scaleOf(code string) int {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}
