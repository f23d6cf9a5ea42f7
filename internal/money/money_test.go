package money_test

import (
	"encoding/json"
	"errors"
	"testing"

	"PayLedger/internal/money"
)

// ============================================================================
// Test: Parse
// ============================================================================

func TestParse_Valid(t *testing.T) {
	cases := []struct {
		in   string
		want money.Amount
	}{
		{"0", 0},
		{"1", 10_000},
		{"1.5", 15_000},
		{"1.5000", 15_000},
		{"0.0001", 1},
		{"2.0010", 20_010},
		{"-3.25", -32_500},
		{"10000.0000", 100_000_000},
		{"+1", 10_000},
		{"1.", 10_000},
		{".5", 5_000},
	}

	for _, c := range cases {
		got, err := money.Parse(c.in)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q): got %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParse_TooPrecise(t *testing.T) {
	for _, in := range []string{"1.00001", "0.123456", "-2.99999"} {
		_, err := money.Parse(in)
		if !errors.Is(err, money.ErrTooPrecise) {
			t.Errorf("Parse(%q): got %v, want ErrTooPrecise", in, err)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{"", ".", "abc", "1.2.3", "1,5", "--1", "1 5"} {
		_, err := money.Parse(in)
		if !errors.Is(err, money.ErrMalformedAmount) {
			t.Errorf("Parse(%q): got %v, want ErrMalformedAmount", in, err)
		}
	}
}

func TestParse_Overflow(t *testing.T) {
	for _, in := range []string{
		"99999999999999999999.0000",
		"922337203685477.9999", // whole part fits, fractional digits push past MaxInt64
		"-922337203685477.9999",
	} {
		_, err := money.Parse(in)
		if !errors.Is(err, money.ErrAmountOverflow) {
			t.Errorf("Parse(%q): got %v, want ErrAmountOverflow", in, err)
		}
	}

	// Largest representable amount parses exactly.
	got, err := money.Parse("922337203685477.5807")
	if err != nil {
		t.Fatalf("max amount: %v", err)
	}
	if got.Minor() != 1<<63-1 {
		t.Errorf("max amount: got %d, want %d", got.Minor(), int64(1<<63-1))
	}
}

// ============================================================================
// Test: String
// ============================================================================

func TestString_FourDigits(t *testing.T) {
	cases := []struct {
		in   money.Amount
		want string
	}{
		{0, "0.0000"},
		{1, "0.0001"},
		{15_000, "1.5000"},
		{-32_500, "-3.2500"},
		{100_000_000, "10000.0000"},
	}

	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Errorf("String(%d): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParse_StringRoundTrip(t *testing.T) {
	for _, in := range []string{"1.5000", "0.0001", "-42.4242", "0.0000"} {
		a, err := money.Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got := a.String(); got != in {
			t.Errorf("round trip %q: got %q", in, got)
		}
	}
}

// ============================================================================
// Test: JSON
// ============================================================================

func TestJSON_AmountAsString(t *testing.T) {
	a := money.MustParse("1.5")
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"1.5000"` {
		t.Errorf("got %s, want %q", data, `"1.5000"`)
	}

	var back money.Amount
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != a {
		t.Errorf("round trip: got %d, want %d", back, a)
	}
}

// ============================================================================
// Test: predicates
// ============================================================================

func TestIsPositive(t *testing.T) {
	if !money.Amount(1).IsPositive() {
		t.Error("1 should be positive")
	}
	if money.Amount(0).IsPositive() {
		t.Error("0 should not be positive")
	}
	if money.Amount(-1).IsPositive() {
		t.Error("-1 should not be positive")
	}
}
