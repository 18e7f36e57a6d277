// Package units holds every user-facing unit conversion in one place:
// decimal display amounts to smallest-unit integers, percentages to
// basis points, and day/hour durations to seconds.
package units

import (
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the decimal precision of the chain's native currency.
const Decimals = 18

var unitScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// ToSmallestUnit converts a decimal display-currency string such as
// "0.1" into smallest units (1 display unit = 10^18 smallest units).
func ToSmallestUnit(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("amount must not be negative: %s", amount)
	}

	whole := amount
	frac := ""
	if idx := strings.IndexByte(amount, '.'); idx >= 0 {
		whole = amount[:idx]
		frac = amount[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("amount has more than %d decimal places: %s", Decimals, amount)
	}

	wholeInt, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", amount)
	}
	result := new(big.Int).Mul(wholeInt, unitScale)

	if frac != "" {
		fracInt, ok := new(big.Int).SetString(frac, 10)
		if !ok {
			return nil, fmt.Errorf("invalid amount: %s", amount)
		}
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(Decimals-len(frac))), nil)
		result.Add(result, fracInt.Mul(fracInt, scale))
	}

	return result, nil
}

// FormatUnits renders a smallest-unit value as a decimal string with
// at most places fractional digits, trailing zeros trimmed.
func FormatUnits(value *big.Int, places int) string {
	if value == nil {
		return "0"
	}
	if places < 0 || places > Decimals {
		places = Decimals
	}

	neg := value.Sign() < 0
	abs := new(big.Int).Abs(value)

	whole := new(big.Int)
	rem := new(big.Int)
	whole.QuoRem(abs, unitScale, rem)

	out := whole.String()
	if places > 0 && rem.Sign() > 0 {
		frac := fmt.Sprintf("%0*s", Decimals, rem.String())[:places]
		frac = strings.TrimRight(frac, "0")
		if frac != "" {
			out += "." + frac
		}
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ToBasisPoints converts a percentage into basis points, floored
// (5.25% becomes 525).
func ToBasisPoints(percent float64) (uint64, error) {
	if percent <= 0 || percent > 100 {
		return 0, fmt.Errorf("percentage must be in (0, 100]: %v", percent)
	}
	return uint64(percent * 100), nil
}

// DaysToSeconds converts a whole number of days into seconds.
func DaysToSeconds(days uint64) uint64 { return days * 86400 }

// MulByCount multiplies a per-item price by a count, for payable calls
// whose attached value is price times quantity.
func MulByCount(price *big.Int, count uint64) *big.Int {
	if price == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(price, new(big.Int).SetUint64(count))
}
