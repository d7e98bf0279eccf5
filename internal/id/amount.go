package id

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	agenterr "github.com/loanify/agent/internal/errors"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// MaxUint256 is the sentinel the lending pool reads as "entire balance".
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Amount is either an exact decimal amount or the caller's entire position.
// The "MAX" string sentinel is resolved into All at the builder boundary and
// never threaded through business logic as a string.
type Amount struct {
	All     bool
	Decimal string
}

// ParseAmount accepts a decimal string like "10.5" or the case-insensitive
// literal "MAX".
func ParseAmount(raw string) (Amount, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return Amount{}, agenterr.New(agenterr.CodeUsage, "amount is required")
	}
	if strings.EqualFold(clean, "max") {
		return Amount{All: true}, nil
	}
	if !decimalPattern.MatchString(clean) {
		return Amount{}, agenterr.New(agenterr.CodeUsage, fmt.Sprintf("amount %q must be a decimal like 1.23 or MAX", raw))
	}
	return Amount{Decimal: normalizeDecimal(clean)}, nil
}

// BaseUnits scales the amount to the token's integer base unit. All encodes
// as the maximum representable integer, independent of any current balance.
func (a Amount) BaseUnits(decimals int) (*big.Int, error) {
	if a.All {
		return new(big.Int).Set(MaxUint256), nil
	}
	return DecimalToBaseUnits(a.Decimal, decimals)
}

// DecimalToBaseUnits converts a decimal string like "0.01" to base units.
func DecimalToBaseUnits(decimal string, decimals int) (*big.Int, error) {
	clean := strings.TrimSpace(decimal)
	if !decimalPattern.MatchString(clean) {
		return nil, agenterr.New(agenterr.CodeUsage, fmt.Sprintf("amount %q must be in decimal form like 1.23", decimal))
	}
	parts := strings.SplitN(clean, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		return nil, agenterr.New(agenterr.CodeUsage, fmt.Sprintf("decimal precision exceeds token decimals (%d)", decimals))
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))
	combined := strings.TrimLeft(intPart+fracPart, "0")
	if combined == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, agenterr.New(agenterr.CodeUsage, "invalid decimal amount")
	}
	return value, nil
}

// FormatBaseUnits renders base units as a decimal string, trimming trailing
// zeros.
func FormatBaseUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	s := value.String()
	if decimals == 0 {
		return s
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

// SanitizeLocaleAmount normalizes user input that may use either comma- or
// dot-decimal convention ("1.234,56" or "1,234.56") and scales it to base
// units. Invalid or non-positive input yields "0".
func SanitizeLocaleAmount(raw string, decimals int) string {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "0"
	}
	lastComma := strings.LastIndex(clean, ",")
	lastDot := strings.LastIndex(clean, ".")
	if lastComma > lastDot && lastDot != -1 {
		// European convention: dots group thousands, comma is the decimal mark.
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}
	if !decimalPattern.MatchString(clean) {
		return "0"
	}
	base, err := DecimalToBaseUnits(clean, decimals)
	if err != nil || base.Sign() <= 0 {
		return "0"
	}
	return base.String()
}

func normalizeDecimal(v string) string {
	if !strings.Contains(v, ".") {
		out := strings.TrimLeft(v, "0")
		if out == "" {
			return "0"
		}
		return out
	}
	parts := strings.SplitN(v, ".", 2)
	intPart := strings.TrimLeft(parts[0], "0")
	if intPart == "" {
		intPart = "0"
	}
	fracPart := strings.TrimRight(parts[1], "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}
