// Package amount converts between ether strings and wei.
package amount

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const Decimals = 18

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNotPreset     = errors.New("amount is not one of the preset options")
)

// Presets are the per-recipient amounts offered to the user, in ETH
var Presets = []string{"0.01", "0.1", "0.5", "1", "2", "5"}

// Default is the amount selected when a session starts
var Default = MustParseEther("0.01")

// ParseEther converts a positive ether amount with at most 18 decimals to wei
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("%w: must be greater than 0", ErrInvalidAmount)
	}
	wei := d.Shift(Decimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d decimals", ErrInvalidAmount, Decimals)
	}
	return wei.BigInt(), nil
}

// MustParseEther is ParseEther for constants
func MustParseEther(s string) *big.Int {
	wei, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return wei
}

// ParsePreset parses s and checks it against Presets
func ParsePreset(s string) (*big.Int, error) {
	wei, err := ParseEther(s)
	if err != nil {
		return nil, err
	}
	if !IsPreset(wei) {
		return nil, fmt.Errorf("%w: %s (choose one of %v)", ErrNotPreset, s, Presets)
	}
	return wei, nil
}

// IsPreset reports whether wei equals one of the preset amounts
func IsPreset(wei *big.Int) bool {
	for _, p := range Presets {
		if MustParseEther(p).Cmp(wei) == 0 {
			return true
		}
	}
	return false
}

// FormatEther renders wei as an ether string without trailing zeros
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -Decimals).String()
}

// FormatBalance renders wei with three truncated decimals, e.g. "10000.000"
func FormatBalance(wei *big.Int) string {
	if wei == nil {
		return "..."
	}
	return decimal.NewFromBigInt(wei, -Decimals).Truncate(3).StringFixed(3)
}

// Total returns per * count
func Total(per *big.Int, count int) *big.Int {
	if per == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(per, big.NewInt(int64(count)))
}
