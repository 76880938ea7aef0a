package bot

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/egresos-bot/internal/models"
)

// ErrInvalidAmount is returned when text cannot be read as a positive amount.
var ErrInvalidAmount = errors.New("invalid amount")

// amountNoise matches thousands separators, currency symbols and whitespace.
// Amounts are whole pesos, so "." and "," are always grouping.
var amountNoise = regexp.MustCompile(`[.$,\s]`)

// maxAmountDigits keeps amounts within the integer part of NUMERIC(14, 2).
const maxAmountDigits = 12

// amountDigits is what must remain once the noise is stripped. Signs and
// exponents are rejected here, before decimal parsing.
var amountDigits = regexp.MustCompile(`^[0-9]+$`)

// ParseAmount parses amounts like "21.990", "$21,990" or "21990".
func ParseAmount(raw string) (decimal.Decimal, error) {
	clean := amountNoise.ReplaceAllString(raw, "")
	if len(clean) > maxAmountDigits || !amountDigits.MatchString(clean) {
		return decimal.Zero, ErrInvalidAmount
	}

	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}

	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	return amount, nil
}

// categoryAliases maps menu numbers and name variants to categories.
var categoryAliases = map[string]models.Category{
	"1":        models.CategoryRacional,
	"racional": models.CategoryRacional,
	"ra":       models.CategoryRacional,
	"2":        models.CategoryNegocio,
	"negocio":  models.CategoryNegocio,
	"ne":       models.CategoryNegocio,
	"3":        models.CategoryRebeca,
	"rebeca":   models.CategoryRebeca,
	"re":       models.CategoryRebeca,
	"rebe":     models.CategoryRebeca,
}

// NormalizeCategory resolves user input to one of the fixed categories.
func NormalizeCategory(raw string) (models.Category, bool) {
	cat, ok := categoryAliases[strings.ToLower(strings.TrimSpace(raw))]
	return cat, ok
}

// Keyword matchers. All of them match the whole trimmed message.
var (
	resetPattern   = regexp.MustCompile(`(?i)^(egreso|hola|nuevo|inicio)$`)
	cancelPattern  = regexp.MustCompile(`(?i)^cancel(ar)?$`)
	affirmPattern  = regexp.MustCompile(`(?i)^(s[ií]|1|guardar)$`)
	denyPattern    = regexp.MustCompile(`(?i)^(no|2)$`)
	skipDescSymbol = "-"
)

func isReset(text string) bool  { return resetPattern.MatchString(text) }
func isCancel(text string) bool { return cancelPattern.MatchString(text) }
func isAffirm(text string) bool { return affirmPattern.MatchString(text) }
func isDeny(text string) bool   { return denyPattern.MatchString(text) }
