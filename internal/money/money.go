// Package money implements exact fixed-point arithmetic for ledger amounts.
// Amounts carry exactly 4 fractional digits, stored as an int64 count of
// 1/10000 units. Only addition and subtraction exist in this domain, so the
// representation never loses precision and never touches floating point.
package money

import (
	"errors"
	"fmt"
	"strings"
)

// Scale is the number of minor units per whole unit (4 fractional digits).
const Scale = 10_000

// FracDigits is the rendered fractional precision.
const FracDigits = 4

// Amount is a signed fixed-point value with 4 fractional digits.
type Amount int64

var (
	ErrMalformedAmount = errors.New("malformed amount")
	ErrTooPrecise      = errors.New("amount exceeds 4 fractional digits")
	ErrAmountOverflow  = errors.New("amount overflows int64 minor units")
)

// Parse converts a decimal string ("1", "1.5", "-0.0001") into an Amount.
// At most 4 fractional digits are accepted; more precise input is rejected
// rather than silently rounded.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformedAmount
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" || s == "." {
		return 0, ErrMalformedAmount
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
		if strings.IndexByte(frac, '.') >= 0 {
			return 0, ErrMalformedAmount
		}
	}
	if len(frac) > FracDigits {
		return 0, fmt.Errorf("%w: %q", ErrTooPrecise, s)
	}

	var minor int64
	for _, c := range whole {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
		}
		d := int64(c - '0')
		if minor > (1<<63-1-d)/10 {
			return 0, ErrAmountOverflow
		}
		minor = minor*10 + d
	}
	if minor > (1<<63-1)/Scale {
		return 0, ErrAmountOverflow
	}
	minor *= Scale

	mult := int64(Scale / 10)
	var fracMinor int64
	for _, c := range frac {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
		}
		fracMinor += int64(c-'0') * mult
		mult /= 10
	}
	if minor > (1<<63-1)-fracMinor {
		return 0, ErrAmountOverflow
	}
	minor += fracMinor

	if neg {
		minor = -minor
	}
	return Amount(minor), nil
}

// MustParse is Parse for constants in tests and fixtures.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromMinor wraps a raw minor-unit count.
func FromMinor(v int64) Amount { return Amount(v) }

// Minor returns the raw minor-unit count.
func (a Amount) Minor() int64 { return int64(a) }

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// String renders the amount with exactly 4 fractional digits ("1.5000").
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%04d", sign, v/Scale, v%Scale)
}

// MarshalJSON renders the amount as a JSON string to keep wire precision exact.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare JSON number
// with at most 4 fractional digits.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
