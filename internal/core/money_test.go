package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"100000", 10000000, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"1.٣", 0, false}, // Arabic-Indic digits
		{"5.٩", 0, false},
		{"٣", 0, false},
		{"92233720368547757.99", 9223372036854775799, true},
		{"92233720368547758", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		150:      "1.5",
		10000000: "100000",
		-2500:    "-25",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("%d expected %q, got %q", cents, want, got)
		}
	}
}

func TestMoneyDisplay(t *testing.T) {
	cases := map[int64]string{
		0:          "₹0",
		99900:      "₹999",
		123450:     "₹1,234.5",
		1234567:    "₹12,345.67",
		10000000:   "₹1,00,000",
		12345600:   "₹1,23,456",
		1000000000: "₹1,00,00,000",
		-200000:    "-₹2,000",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).Display(); got != want {
			t.Fatalf("%d expected %q, got %q", cents, want, got)
		}
	}
}

func TestMoneyUnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{`40000`, 4000000, true},
		{`40000.5`, 4000050, true},
		{`"1250.75"`, 125075, true},
		{`0`, 0, true},
		{`1e3`, 100000, true},
		{`-5`, 0, false},
		{`"abc"`, 0, false},
		{`true`, 0, false},
		{`1e15`, 100000000000000000, true},
		{`1e17`, 0, false},
		{`2e17`, 0, false},
		{`"1.٣"`, 0, false},
	}
	for _, tc := range cases {
		var m Money
		err := json.Unmarshal([]byte(tc.in), &m)
		if tc.ok {
			if err != nil || m.Cents != tc.want {
				t.Fatalf("%s expected %d, got %d (err=%v)", tc.in, tc.want, m.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%s expected error", tc.in)
		}
	}
}
