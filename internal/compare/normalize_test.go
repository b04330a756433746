package compare

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		qty       string
		unit      Unit
		want      string
		wantBase  Unit
		wantValid bool
	}{
		{"grams", "3000", "500", Gram, "6", Gram, true},
		{"kilograms", "5000", "1", Kilogram, "5", Gram, true},
		{"milliliters", "1200", "300", Milliliter, "4", Milliliter, true},
		{"liters", "2,400", "1.5", Liter, "1.6", Milliliter, true},
		{"free item", "0", "10", Gram, "0", Gram, true},
		{"grouped quantity", "10000", "1,000", Gram, "10", Gram, true},
		{"zero quantity", "1000", "0", Liter, "", "", false},
		{"negative quantity", "1000", "-1", Gram, "", "", false},
		{"negative price", "-5", "1", Gram, "", "", false},
		{"blank price", " ", "1", Gram, "", "", false},
		{"blank quantity", "100", "", Gram, "", "", false},
		{"text price", "cheap", "1", Gram, "", "", false},
		{"unknown unit", "100", "1", Unit("oz"), "", "", false},
		{"exponent quantity", "1000", "1e3", Gram, "", "", false},
		{"tiny exponent quantity", "1000", "1e-2147483648", Gram, "", "", false},
		{"huge exponent quantity", "1", "1e-20000000", Gram, "", "", false},
		{"exponent price", "1E5", "1", Gram, "", "", false},
		{"hex price", "0x10", "1", Gram, "", "", false},
		{"two decimal points", "1.2.3", "1", Gram, "", "", false},
		{"leading decimal point", "100", ".5", Gram, "200", Gram, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.price, tt.qty, tt.unit)
			if ok != tt.wantValid {
				t.Fatalf("Normalize(%q, %q, %s) ok = %v, want %v", tt.price, tt.qty, tt.unit, ok, tt.wantValid)
			}
			if !ok {
				return
			}
			if !got.Value.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("value = %s, want %s", got.Value, tt.want)
			}
			if got.Base != tt.wantBase {
				t.Fatalf("base = %s, want %s", got.Base, tt.wantBase)
			}
		})
	}
}

func TestNormalizeDoesNotRound(t *testing.T) {
	got, ok := Normalize("1000", "3", Gram)
	if !ok {
		t.Fatal("expected valid normalization")
	}
	if got.Value.StringFixed(4) != "333.3333" {
		t.Fatalf("unexpected value %s", got.Value)
	}
}

func TestParseAmountAcceptsPlainDigitsOnly(t *testing.T) {
	for _, raw := range []string{"1e3", "1e-2147483648", "Inf", "NaN", "1_000", ",", ".", "1 000", "--1"} {
		if v, ok := ParseAmount(raw); ok {
			t.Fatalf("ParseAmount(%q) = %s, want rejection", raw, v)
		}
	}
	long := "123456789012345678901234567890.5"
	v, ok := ParseAmount(long)
	if !ok || v.String() != long {
		t.Fatalf("ParseAmount(%q) = %s, %v", long, v, ok)
	}
}

func TestParseUnit(t *testing.T) {
	cases := map[string]Unit{
		"g": Gram, "Gram": Gram, " KG ": Kilogram, "kilogram": Kilogram,
		"ml": Milliliter, "milliliter": Milliliter, "L": Liter, "liter": Liter,
	}
	for raw, want := range cases {
		got, err := ParseUnit(raw)
		if err != nil || got != want {
			t.Fatalf("ParseUnit(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseUnit("lb"); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
}

func TestUnitBase(t *testing.T) {
	for _, u := range Units() {
		if !u.Valid() {
			t.Fatalf("%s should be valid", u)
		}
	}
	if Kilogram.Base() != Gram || Liter.Base() != Milliliter {
		t.Fatal("unexpected base units")
	}
	if Unit("cup").Base() != "" {
		t.Fatal("unknown unit should have no base")
	}
}
