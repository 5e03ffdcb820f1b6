// Package card validates and normalizes raw card input collected by the
// checkout form. Every operation is pure and total: invalid input produces
// error strings in the result, never a returned error or panic.
package card

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	nonDigitRe = regexp.MustCompile(`[^0-9]`)
	cvvRe      = regexp.MustCompile(`^\d{3,4}$`)
)

// Network tags accepted by the provider's creditCardType field.
const (
	NetworkAmex     = "amex"
	NetworkVisa     = "visa"
	NetworkMaster   = "master"
	NetworkDiscover = "discover"
)

// NormalizeCardNumber strips every non-digit character. No length
// enforcement happens here.
func NormalizeCardNumber(raw string) string {
	return nonDigitRe.ReplaceAllString(raw, "")
}

// DetectCardNetwork maps the leading digit to a network tag. This is a
// first-digit heuristic, not a Luhn or BIN check; anything unrecognized
// (including empty input) falls back to visa.
func DetectCardNetwork(cardNumber string) string {
	if cardNumber == "" {
		return NetworkVisa
	}
	switch cardNumber[0] {
	case '3':
		return NetworkAmex
	case '4':
		return NetworkVisa
	case '5':
		return NetworkMaster
	case '6':
		return NetworkDiscover
	default:
		return NetworkVisa
	}
}

// ValidationResult accumulates independent validation failures.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidateCardDetails checks card number length, expiration and CVV against
// the current calendar year. Checks do not short-circuit: every failing
// field contributes its own error string.
func ValidateCardDetails(cardNumber, expMonth, expYear, cvv string) ValidationResult {
	return ValidateCardDetailsAt(cardNumber, expMonth, expYear, cvv, time.Now().Year())
}

// ValidateCardDetailsAt is ValidateCardDetails with an explicit reference
// year, so tests are not tied to the wall clock.
func ValidateCardDetailsAt(cardNumber, expMonth, expYear, cvv string, currentYear int) ValidationResult {
	var errs []string

	clean := NormalizeCardNumber(cardNumber)
	if len(clean) < 13 || len(clean) > 19 {
		errs = append(errs, "Invalid card number length")
	}

	month, err := strconv.Atoi(strings.TrimSpace(expMonth))
	if err != nil || month < 1 || month > 12 {
		errs = append(errs, "Invalid expiration month")
	}

	year, yearErr := strconv.Atoi(strings.TrimSpace(expYear))
	if yearErr == nil && len(strings.TrimSpace(expYear)) == 2 {
		year += 2000
	}
	if yearErr != nil || year < currentYear || year > currentYear+20 {
		errs = append(errs, "Invalid expiration year")
	}

	if !cvvRe.MatchString(cvv) {
		errs = append(errs, "Invalid CVV")
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}

// ExpirationMMYY formats month and year the way the provider expects:
// zero-padded month concatenated with a 2-digit year. A 4-digit year keeps
// only its last two digits.
func ExpirationMMYY(expMonth, expYear string) string {
	year := expYear
	if len(year) == 4 {
		year = year[2:]
	}
	return pad2(expMonth) + pad2(year)
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
